// Package webhooks implements the outbound webhook dispatch subsystem.
//
// On a domain event (schedule created, booking cancelled, ...) the
// Dispatcher resolves the set of interested subscribers, and for each one
// concurrently renders a payload body, signs it with the subscriber's
// secret, and POSTs it to the subscriber URL. Failures are isolated per
// subscriber: a malformed template or an unreachable endpoint never affects
// the triggering request or the remaining subscribers. Delivery is
// best-effort and attempted exactly once; there are no retries and no
// durability guarantees.
package webhooks

import (
	"context"

	"meetpoint/internal/types"
)

// Subscriber identifies one registered webhook endpoint. It is read-only
// from the dispatcher's point of view: the registry that owns these records
// is consumed through the SubscriberResolver interface only.
type Subscriber struct {
	ID string

	// URL is the endpoint the payload is POSTed to. Required, absolute
	// http(s).
	URL string

	// Secret keys the HMAC signature. Empty means the sentinel signature
	// is sent instead.
	Secret string

	// PayloadTemplate customizes the delivered body. Empty means the
	// default JSON envelope.
	PayloadTemplate string

	// AppID is an opaque application identifier carried through for
	// diagnostics; it plays no part in rendering.
	AppID string
}

// SubscriberFilter scopes subscriber resolution to the entity that owns the
// triggering event. Zero-value fields are not filtered on.
type SubscriberFilter struct {
	UserID string
	TeamID string
}

// SubscriberResolver looks up the subscribers interested in a trigger
// event. Implemented by the registry collaborator (in this repo, the
// Postgres-backed webhook repository); the dispatcher only depends on this
// interface.
type SubscriberResolver interface {
	Resolve(ctx context.Context, trigger types.TriggerEvent, filter SubscriberFilter) ([]Subscriber, error)
}

// DeliveryOutcome is the result of one attempted delivery to one
// subscriber. Status is zero when the request never reached the network
// layer. Error is set only on failure. Outcomes are ephemeral: they feed
// logs, metrics, and the in-memory journal, nothing durable.
type DeliveryOutcome struct {
	SubscriberURL string `json:"subscriberUrl"`
	OK            bool   `json:"ok"`
	Status        int    `json:"status,omitempty"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
}

func newRenderError(err error) *types.AppError {
	return types.NewAppError(types.ErrCodeWebhookRender, "failed to render webhook payload", err)
}

func newDeliveryError(msg string, err error) *types.AppError {
	return types.NewAppError(types.ErrCodeWebhookDelivery, msg, err)
}

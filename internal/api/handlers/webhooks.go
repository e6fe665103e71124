// Package handlers contains the HTTP handler implementations for the
// MeetPoint API. Each handler declares local interfaces for its
// dependencies so tests can inject fakes without touching the database.
package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"meetpoint/internal/core"
	"meetpoint/internal/db"
	"meetpoint/internal/security"
	"meetpoint/internal/types"
	"meetpoint/internal/webhooks"
)

// WebhookStore defines the data access contract for subscription records.
type WebhookStore interface {
	Create(ctx context.Context, rec *db.WebhookRecord) error
	List(ctx context.Context, userID string) ([]*db.WebhookRecord, error)
	Get(ctx context.Context, userID, id string) (*db.WebhookRecord, error)
	Delete(ctx context.Context, userID, id string) error
}

// DeliveryExporter streams the recent delivery log in compressed form.
type DeliveryExporter interface {
	ExportZstd(w io.Writer) error
}

// CreateWebhookRequest is the request body for POST /v1/webhooks.
type CreateWebhookRequest struct {
	SubscriberURL   string   `json:"subscriberUrl" validate:"required,max=2048"`
	EventTriggers   []string `json:"eventTriggers" validate:"required,min=1,dive,max=64"`
	Secret          string   `json:"secret,omitempty" validate:"max=256"`
	PayloadTemplate string   `json:"payloadTemplate,omitempty" validate:"max=8192"`
	AppID           string   `json:"appId,omitempty" validate:"max=128"`
	TeamID          string   `json:"teamId,omitempty" validate:"max=64"`
	Active          *bool    `json:"active,omitempty"`
}

// WebhookResponse is the public view of a subscription. The secret is never
// echoed back.
type WebhookResponse struct {
	ID              string    `json:"id"`
	SubscriberURL   string    `json:"subscriberUrl"`
	EventTriggers   []string  `json:"eventTriggers"`
	PayloadTemplate string    `json:"payloadTemplate,omitempty"`
	AppID           string    `json:"appId,omitempty"`
	TeamID          string    `json:"teamId,omitempty"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"createdAt"`
}

// WebhookHandler manages webhook subscription CRUD and delivery diagnostics.
type WebhookHandler struct {
	store     WebhookStore
	exporter  DeliveryExporter
	validator *core.Validator
	logger    *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler with the provided dependencies.
func NewWebhookHandler(store WebhookStore, exporter DeliveryExporter, v *core.Validator, l *slog.Logger) *WebhookHandler {
	if l == nil {
		l = slog.Default()
	}
	return &WebhookHandler{store: store, exporter: exporter, validator: v, logger: l}
}

// RegisterRoutes mounts webhook routes on the provided chi.Router.
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/deliveries/export", h.ExportDeliveries)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Delete("/", h.Delete)
		})
	})
}

// Create handles POST /v1/webhooks. The subscriber URL must be an absolute
// http(s) URL that passes the egress policy, every trigger must belong to
// the closed trigger set, and a payload template must compile.
func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthKeyMissing, "authentication required", nil))
		return
	}

	var req CreateWebhookRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := security.ValidateEgressURL(req.SubscriberURL); err != nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidURL,
			"subscriberUrl must be an absolute http(s) URL reaching a public address",
			err,
		))
		return
	}

	for _, trigger := range req.EventTriggers {
		if !types.TriggerEvent(trigger).IsValid() {
			core.Error(w, r, types.NewAppErrorWithDetails(
				types.ErrCodeValidationInvalidTrigger,
				"unknown event trigger",
				nil,
				map[string]any{"trigger": trigger},
			))
			return
		}
	}

	if err := webhooks.ValidateTemplate(req.PayloadTemplate); err != nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidTemplate,
			"payloadTemplate does not compile",
			err,
		))
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rec := &db.WebhookRecord{
		ID:              "wh_" + uuid.New().String(),
		UserID:          actor.UserID,
		TeamID:          req.TeamID,
		SubscriberURL:   req.SubscriberURL,
		Secret:          req.Secret,
		PayloadTemplate: req.PayloadTemplate,
		AppID:           req.AppID,
		EventTriggers:   req.EventTriggers,
		Active:          active,
		CreatedAt:       time.Now().UTC(),
	}

	if err := h.store.Create(r.Context(), rec); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("webhook subscription created",
		"webhook_id", rec.ID,
		"subscriber_url", rec.SubscriberURL,
		"triggers", len(rec.EventTriggers),
	)

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: webhookResponse(rec)})
}

// List handles GET /v1/webhooks.
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthKeyMissing, "authentication required", nil))
		return
	}

	recs, err := h.store.List(r.Context(), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	out := make([]WebhookResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, webhookResponse(rec))
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: out})
}

// Get handles GET /v1/webhooks/{id}.
func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthKeyMissing, "authentication required", nil))
		return
	}

	rec, err := h.store.Get(r.Context(), actor.UserID, chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: webhookResponse(rec)})
}

// Delete handles DELETE /v1/webhooks/{id}.
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthKeyMissing, "authentication required", nil))
		return
	}

	if err := h.store.Delete(r.Context(), actor.UserID, chi.URLParam(r, "id")); err != nil {
		core.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportDeliveries handles GET /v1/webhooks/deliveries/export. The response
// is a zstd-compressed stream of JSON lines, one per recorded dispatch.
func (h *WebhookHandler) ExportDeliveries(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundWebhook, "delivery journal is not enabled", nil))
		return
	}

	w.Header().Set("Content-Type", "application/zstd")
	w.Header().Set("Content-Disposition", `attachment; filename="deliveries.jsonl.zst"`)
	w.WriteHeader(http.StatusOK)

	if err := h.exporter.ExportZstd(w); err != nil {
		// Headers are already out; all we can do is log.
		h.logger.Error("delivery export failed", "error", err)
	}
}

func webhookResponse(rec *db.WebhookRecord) WebhookResponse {
	return WebhookResponse{
		ID:              rec.ID,
		SubscriberURL:   rec.SubscriberURL,
		EventTriggers:   rec.EventTriggers,
		PayloadTemplate: rec.PayloadTemplate,
		AppID:           rec.AppID,
		TeamID:          rec.TeamID,
		Active:          rec.Active,
		CreatedAt:       rec.CreatedAt,
	}
}

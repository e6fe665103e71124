package webhooks

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"meetpoint/internal/types"
)

// DispatchRecorder receives delivery telemetry. Implemented by the
// Prometheus metrics package; nil disables recording.
type DispatchRecorder interface {
	RecordFanout(trigger types.TriggerEvent, subscribers int)
	RecordDelivery(trigger types.TriggerEvent, ok bool, elapsed time.Duration)
}

// Dispatcher orchestrates one fan-out delivery attempt across all
// subscribers matching an event: resolve, then per subscriber concurrently
// render, sign, deliver. It owns no state shared between subscriber
// pipelines; the only shared resource is the transport's pooled HTTP
// client.
type Dispatcher struct {
	resolver  SubscriberResolver
	transport *Transport
	logger    types.Logger

	clock       types.Clock
	recorder    DispatchRecorder
	journal     *DeliveryJournal
	maxParallel int
	mirrorURL   string
}

// DispatcherOption configures optional Dispatcher behavior.
type DispatcherOption func(*Dispatcher)

// WithClock overrides the clock, for deterministic createdAt in tests.
func WithClock(c types.Clock) DispatcherOption {
	return func(d *Dispatcher) { d.clock = c }
}

// WithRecorder attaches a delivery telemetry recorder.
func WithRecorder(r DispatchRecorder) DispatcherOption {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithJournal attaches the in-memory delivery journal.
func WithJournal(j *DeliveryJournal) DispatcherOption {
	return func(d *Dispatcher) { d.journal = j }
}

// WithMaxParallel bounds the number of concurrent subscriber pipelines per
// dispatch. Zero or negative means unbounded.
func WithMaxParallel(n int) DispatcherOption {
	return func(d *Dispatcher) { d.maxParallel = n }
}

// WithMirrorURL configures a fixed endpoint that receives every event
// envelope with the sentinel signature, independent of subscriber
// resolution.
func WithMirrorURL(url string) DispatcherOption {
	return func(d *Dispatcher) { d.mirrorURL = url }
}

// NewDispatcher wires a Dispatcher. resolver, transport, and logger are
// required.
func NewDispatcher(resolver SubscriberResolver, transport *Transport, logger types.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		resolver:  resolver,
		transport: transport,
		logger:    logger,
		clock:     types.RealClock{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch performs one best-effort fan-out for the trigger event. It
// never returns an error and never panics: every per-subscriber failure is
// caught at that subscriber's boundary and recorded as a failed outcome,
// and a resolver failure abandons the whole dispatch with only a log line.
//
// All subscribers of one dispatch see the same createdAt timestamp. The
// returned outcomes hold exactly one entry per resolved subscriber (plus
// one for the mirror endpoint when configured); callers that fired the
// dispatch asynchronously simply discard them.
func (d *Dispatcher) Dispatch(ctx context.Context, trigger types.TriggerEvent, payload map[string]any, filter SubscriberFilter) []DeliveryOutcome {
	createdAt := d.clock.Now().UTC().Format(time.RFC3339)

	subs, err := d.resolver.Resolve(ctx, trigger, filter)
	if err != nil {
		d.logger.Error("webhook subscriber resolution failed",
			"trigger", string(trigger),
			"error", err.Error(),
		)
		return nil
	}

	total := len(subs)
	if d.mirrorURL != "" {
		total++
	}
	if total == 0 {
		return []DeliveryOutcome{}
	}

	if d.recorder != nil {
		d.recorder.RecordFanout(trigger, len(subs))
	}

	// One goroutine per subscriber, joined via a barrier that waits for
	// all of them regardless of individual outcome. Pipelines swallow
	// their own failures, so the group never short-circuits.
	outcomes := make([]DeliveryOutcome, total)
	var g errgroup.Group
	if d.maxParallel > 0 {
		g.SetLimit(d.maxParallel)
	}

	for i, sub := range subs {
		i, sub := i, sub
		g.Go(func() error {
			outcomes[i] = d.deliverOne(ctx, trigger, createdAt, payload, sub)
			return nil
		})
	}

	if d.mirrorURL != "" {
		g.Go(func() error {
			outcomes[len(subs)] = d.deliverOne(ctx, trigger, createdAt, payload, Subscriber{URL: d.mirrorURL})
			return nil
		})
	}

	_ = g.Wait()

	if d.journal != nil {
		d.journal.Record(trigger, createdAt, outcomes)
	}

	return outcomes
}

// DispatchAsync fires the dispatch on a background goroutine detached from
// the caller's cancellation, so a request handler can return immediately
// after its own work is committed. Delivery failures can never affect the
// response already computed for the triggering action.
func (d *Dispatcher) DispatchAsync(ctx context.Context, trigger types.TriggerEvent, payload map[string]any, filter SubscriberFilter) {
	detached := context.WithoutCancel(ctx)
	go func() {
		d.Dispatch(detached, trigger, payload, filter)
	}()
}

// deliverOne runs the render -> sign -> deliver pipeline for a single
// subscriber. It is the per-subscriber error boundary: any failure,
// including a panic, is converted into a failed outcome.
func (d *Dispatcher) deliverOne(ctx context.Context, trigger types.TriggerEvent, createdAt string, payload map[string]any, sub Subscriber) (outcome DeliveryOutcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			outcome = DeliveryOutcome{
				SubscriberURL: sub.URL,
				Error:         fmt.Sprintf("panic during webhook delivery: %v", r),
			}
		}
		d.observe(trigger, sub, outcome, time.Since(start))
	}()

	rendered, err := RenderPayload(trigger, createdAt, payload, sub.PayloadTemplate)
	if err != nil {
		return DeliveryOutcome{SubscriberURL: sub.URL, Error: err.Error()}
	}

	signature := Sign(rendered.Body, sub.Secret)

	return d.transport.Deliver(ctx, sub.URL, rendered.Body, rendered.ContentType, signature)
}

// observe emits the log line and telemetry for one terminal outcome.
func (d *Dispatcher) observe(trigger types.TriggerEvent, sub Subscriber, outcome DeliveryOutcome, elapsed time.Duration) {
	if d.recorder != nil {
		d.recorder.RecordDelivery(trigger, outcome.OK, elapsed)
	}

	if outcome.OK {
		d.logger.Info("webhook delivered",
			"trigger", string(trigger),
			"subscriber_url", sub.URL,
			"status", outcome.Status,
		)
		return
	}

	args := []any{
		"trigger", string(trigger),
		"subscriber_url", sub.URL,
	}
	if sub.AppID != "" {
		args = append(args, "app_id", sub.AppID)
	}
	if outcome.Status != 0 {
		args = append(args, "status", outcome.Status)
	}
	if outcome.Error != "" {
		args = append(args, "error", outcome.Error)
	}
	d.logger.Warn("webhook delivery failed", args...)
}

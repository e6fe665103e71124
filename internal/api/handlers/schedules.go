package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"meetpoint/internal/core"
	"meetpoint/internal/types"
	"meetpoint/internal/webhooks"
)

// ScheduleStore defines the data access contract for schedules.
type ScheduleStore interface {
	Create(ctx context.Context, s *types.Schedule) error
	Get(ctx context.Context, userID, id string) (*types.Schedule, error)
	Update(ctx context.Context, s *types.Schedule) error
	Delete(ctx context.Context, userID, id string) error
}

// EventDispatcher fans an event out to webhook subscribers without blocking
// the request. Implemented by webhooks.Dispatcher.
type EventDispatcher interface {
	DispatchAsync(ctx context.Context, trigger types.TriggerEvent, payload map[string]any, filter webhooks.SubscriberFilter)
}

// CreateScheduleRequest is the request body for POST /v1/schedules.
type CreateScheduleRequest struct {
	Name         string               `json:"name" validate:"required,max=200"`
	TimeZone     string               `json:"timeZone" validate:"required,timezone"`
	Availability []types.Availability `json:"availability,omitempty" validate:"max=50,dive"`
}

// UpdateScheduleRequest is the request body for PUT /v1/schedules/{id}.
type UpdateScheduleRequest struct {
	Name         *string               `json:"name,omitempty" validate:"omitempty,max=200"`
	TimeZone     *string               `json:"timeZone,omitempty" validate:"omitempty,timezone"`
	Availability *[]types.Availability `json:"availability,omitempty" validate:"omitempty,max=50,dive"`
}

// ScheduleHandler manages schedule CRUD. Mutations fire the corresponding
// webhook trigger after the database write succeeds.
type ScheduleHandler struct {
	store      ScheduleStore
	dispatcher EventDispatcher
	validator  *core.Validator
	logger     *slog.Logger
}

// NewScheduleHandler creates a ScheduleHandler with the provided dependencies.
func NewScheduleHandler(store ScheduleStore, dispatcher EventDispatcher, v *core.Validator, l *slog.Logger) *ScheduleHandler {
	if l == nil {
		l = slog.Default()
	}
	return &ScheduleHandler{store: store, dispatcher: dispatcher, validator: v, logger: l}
}

// RegisterRoutes mounts schedule routes on the provided chi.Router.
func (h *ScheduleHandler) RegisterRoutes(r chi.Router) {
	r.Route("/schedules", func(r chi.Router) {
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})
}

// Create handles POST /v1/schedules and fires SCHEDULE_CREATED.
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthKeyMissing, "authentication required", nil))
		return
	}

	var req CreateScheduleRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	now := time.Now().UTC()
	schedule := &types.Schedule{
		ID:           "sch_" + uuid.New().String(),
		UserID:       actor.UserID,
		Name:         req.Name,
		TimeZone:     req.TimeZone,
		Availability: req.Availability,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.store.Create(r.Context(), schedule); err != nil {
		core.Error(w, r, err)
		return
	}

	h.fire(r.Context(), types.TriggerScheduleCreated, schedule)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: schedule})
}

// Get handles GET /v1/schedules/{id}.
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthKeyMissing, "authentication required", nil))
		return
	}

	schedule, err := h.store.Get(r.Context(), actor.UserID, chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: schedule})
}

// Update handles PUT /v1/schedules/{id} and fires SCHEDULE_UPDATED.
func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthKeyMissing, "authentication required", nil))
		return
	}

	var req UpdateScheduleRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	schedule, err := h.store.Get(r.Context(), actor.UserID, chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if req.Name != nil {
		schedule.Name = *req.Name
	}
	if req.TimeZone != nil {
		schedule.TimeZone = *req.TimeZone
	}
	if req.Availability != nil {
		schedule.Availability = *req.Availability
	}
	schedule.UpdatedAt = time.Now().UTC()

	if err := h.store.Update(r.Context(), schedule); err != nil {
		core.Error(w, r, err)
		return
	}

	h.fire(r.Context(), types.TriggerScheduleUpdated, schedule)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: schedule})
}

// Delete handles DELETE /v1/schedules/{id} and fires SCHEDULE_DELETED with
// the last known state of the schedule as payload.
func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthKeyMissing, "authentication required", nil))
		return
	}

	schedule, err := h.store.Get(r.Context(), actor.UserID, chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.store.Delete(r.Context(), actor.UserID, schedule.ID); err != nil {
		core.Error(w, r, err)
		return
	}

	h.fire(r.Context(), types.TriggerScheduleDeleted, schedule)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ScheduleHandler) fire(ctx context.Context, trigger types.TriggerEvent, schedule *types.Schedule) {
	if h.dispatcher == nil {
		return
	}
	h.dispatcher.DispatchAsync(ctx, trigger, schedule.WebhookPayload(), webhooks.SubscriberFilter{
		UserID: schedule.UserID,
	})
}

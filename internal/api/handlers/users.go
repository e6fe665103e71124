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

// UserStore defines the data access contract for users.
type UserStore interface {
	Create(ctx context.Context, u *types.User) error
	Get(ctx context.Context, id string) (*types.User, error)
}

// CreateUserRequest is the request body for POST /v1/users.
type CreateUserRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=64"`
	Email     string `json:"email" validate:"required,email"`
	TimeZone  string `json:"timeZone,omitempty" validate:"omitempty,timezone"`
	WeekStart string `json:"weekStart,omitempty" validate:"omitempty,oneof=Sunday Monday"`
}

// UserHandler manages user creation and lookup. A successful creation fires
// USER_CREATED to platform-wide subscribers.
type UserHandler struct {
	store      UserStore
	dispatcher EventDispatcher
	validator  *core.Validator
	logger     *slog.Logger
}

// NewUserHandler creates a UserHandler with the provided dependencies.
func NewUserHandler(store UserStore, dispatcher EventDispatcher, v *core.Validator, l *slog.Logger) *UserHandler {
	if l == nil {
		l = slog.Default()
	}
	return &UserHandler{store: store, dispatcher: dispatcher, validator: v, logger: l}
}

// RegisterRoutes mounts user routes on the provided chi.Router.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
	})
}

// Create handles POST /v1/users and fires USER_CREATED.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	timeZone := req.TimeZone
	if timeZone == "" {
		timeZone = "UTC"
	}
	weekStart := req.WeekStart
	if weekStart == "" {
		weekStart = "Sunday"
	}

	user := &types.User{
		ID:        "usr_" + uuid.New().String(),
		Username:  req.Username,
		Email:     req.Email,
		TimeZone:  timeZone,
		WeekStart: weekStart,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.store.Create(r.Context(), user); err != nil {
		core.Error(w, r, err)
		return
	}

	// USER_CREATED is a platform event, not scoped to any one user's
	// subscriptions.
	if h.dispatcher != nil {
		h.dispatcher.DispatchAsync(r.Context(), types.TriggerUserCreated, user.WebhookPayload(), webhooks.SubscriberFilter{})
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: user})
}

// Get handles GET /v1/users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: user})
}

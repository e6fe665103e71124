package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetpoint/internal/core"
	"meetpoint/internal/types"
	"meetpoint/internal/webhooks"
)

// --- Test doubles ---

type mockScheduleStore struct {
	schedules map[string]*types.Schedule
	err       error
}

func newMockScheduleStore() *mockScheduleStore {
	return &mockScheduleStore{schedules: make(map[string]*types.Schedule)}
}

func (m *mockScheduleStore) Create(ctx context.Context, s *types.Schedule) error {
	if m.err != nil {
		return m.err
	}
	m.schedules[s.ID] = s
	return nil
}

func (m *mockScheduleStore) Get(ctx context.Context, userID, id string) (*types.Schedule, error) {
	if m.err != nil {
		return nil, m.err
	}
	if s, ok := m.schedules[id]; ok && s.UserID == userID {
		copied := *s
		return &copied, nil
	}
	return nil, types.NewAppError(types.ErrCodeNotFoundSchedule, "schedule not found", nil)
}

func (m *mockScheduleStore) Update(ctx context.Context, s *types.Schedule) error {
	if m.err != nil {
		return m.err
	}
	m.schedules[s.ID] = s
	return nil
}

func (m *mockScheduleStore) Delete(ctx context.Context, userID, id string) error {
	if m.err != nil {
		return m.err
	}
	delete(m.schedules, id)
	return nil
}

// mockDispatcher records DispatchAsync calls.
type mockDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
}

type dispatchCall struct {
	Trigger types.TriggerEvent
	Payload map[string]any
	Filter  webhooks.SubscriberFilter
}

func (m *mockDispatcher) DispatchAsync(ctx context.Context, trigger types.TriggerEvent, payload map[string]any, filter webhooks.SubscriberFilter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, dispatchCall{Trigger: trigger, Payload: payload, Filter: filter})
}

func (m *mockDispatcher) Calls() []dispatchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]dispatchCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func newScheduleRouter(store ScheduleStore, d EventDispatcher) *chi.Mux {
	h := NewScheduleHandler(store, d, core.NewValidator(), testLogger())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// --- Tests ---

func TestScheduleHandler_Create_FiresScheduleCreated(t *testing.T) {
	store := newMockScheduleStore()
	dispatcher := &mockDispatcher{}
	router := newScheduleRouter(store, dispatcher)

	body, _ := json.Marshal(CreateScheduleRequest{
		Name:     "Working Hours",
		TimeZone: "Europe/Berlin",
		Availability: []types.Availability{
			{Days: []int{1, 2, 3, 4, 5}, StartTime: "09:00", EndTime: "17:00"},
		},
	})

	req := withActor(httptest.NewRequest(http.MethodPost, "/schedules", bytes.NewReader(body)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, store.schedules, 1)

	calls := dispatcher.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, types.TriggerScheduleCreated, calls[0].Trigger)
	assert.Equal(t, "Working Hours", calls[0].Payload["name"])
	assert.Equal(t, "usr_1", calls[0].Filter.UserID)
}

func TestScheduleHandler_Create_InvalidTimezone(t *testing.T) {
	store := newMockScheduleStore()
	dispatcher := &mockDispatcher{}
	router := newScheduleRouter(store, dispatcher)

	body, _ := json.Marshal(CreateScheduleRequest{
		Name:     "Bad TZ",
		TimeZone: "Mars/Olympus_Mons",
	})

	req := withActor(httptest.NewRequest(http.MethodPost, "/schedules", bytes.NewReader(body)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.schedules)
	assert.Empty(t, dispatcher.Calls())
}

func TestScheduleHandler_Create_PersistFailureSkipsDispatch(t *testing.T) {
	store := newMockScheduleStore()
	store.err = types.NewAppError(types.ErrCodeInternalDB, "db down", nil)
	dispatcher := &mockDispatcher{}
	router := newScheduleRouter(store, dispatcher)

	body, _ := json.Marshal(CreateScheduleRequest{Name: "X", TimeZone: "UTC"})

	req := withActor(httptest.NewRequest(http.MethodPost, "/schedules", bytes.NewReader(body)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, dispatcher.Calls())
}

func TestScheduleHandler_Update_FiresScheduleUpdated(t *testing.T) {
	store := newMockScheduleStore()
	store.schedules["sch_1"] = &types.Schedule{
		ID:       "sch_1",
		UserID:   "usr_1",
		Name:     "Old Name",
		TimeZone: "UTC",
	}
	dispatcher := &mockDispatcher{}
	router := newScheduleRouter(store, dispatcher)

	newName := "New Name"
	body, _ := json.Marshal(UpdateScheduleRequest{Name: &newName})

	req := withActor(httptest.NewRequest(http.MethodPut, "/schedules/sch_1", bytes.NewReader(body)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "New Name", store.schedules["sch_1"].Name)

	calls := dispatcher.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, types.TriggerScheduleUpdated, calls[0].Trigger)
	assert.Equal(t, "New Name", calls[0].Payload["name"])
}

func TestScheduleHandler_Delete_FiresScheduleDeleted(t *testing.T) {
	store := newMockScheduleStore()
	store.schedules["sch_1"] = &types.Schedule{
		ID:       "sch_1",
		UserID:   "usr_1",
		Name:     "Doomed",
		TimeZone: "UTC",
	}
	dispatcher := &mockDispatcher{}
	router := newScheduleRouter(store, dispatcher)

	req := withActor(httptest.NewRequest(http.MethodDelete, "/schedules/sch_1", nil))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, store.schedules)

	calls := dispatcher.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, types.TriggerScheduleDeleted, calls[0].Trigger)
	assert.Equal(t, "Doomed", calls[0].Payload["name"])
}

func TestScheduleHandler_Get_OtherUsersScheduleIsNotFound(t *testing.T) {
	store := newMockScheduleStore()
	store.schedules["sch_1"] = &types.Schedule{
		ID:       "sch_1",
		UserID:   "usr_other",
		TimeZone: "UTC",
	}
	router := newScheduleRouter(store, &mockDispatcher{})

	req := withActor(httptest.NewRequest(http.MethodGet, "/schedules/sch_1", nil))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScheduleHandler_CreatedAtIsUTC(t *testing.T) {
	store := newMockScheduleStore()
	router := newScheduleRouter(store, &mockDispatcher{})

	body, _ := json.Marshal(CreateScheduleRequest{Name: "X", TimeZone: "UTC"})
	req := withActor(httptest.NewRequest(http.MethodPost, "/schedules", bytes.NewReader(body)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	for _, s := range store.schedules {
		assert.Equal(t, time.UTC, s.CreatedAt.Location())
	}
}

package types

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretString_Redaction(t *testing.T) {
	s := SecretString("postgres://user:hunter2@db/meetpoint")

	assert.Equal(t, "***REDACTED***", s.String())
	assert.Equal(t, "postgres://user:hunter2@db/meetpoint", s.Unmask())

	out, err := json.Marshal(struct {
		URL SecretString `json:"url"`
	}{URL: s})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hunter2")
	assert.Contains(t, string(out), "REDACTED")
}

func TestErrorCode_HTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ErrCodeValidationInvalidJSON.HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, ErrCodeAuthKeyInvalid.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, ErrCodeNotFoundSchedule.HTTPStatus())
	assert.Equal(t, http.StatusConflict, ErrCodeConflictEmail.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, ErrCodeInternalDB.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, ErrCodeWebhookDelivery.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, ErrorCode("garbage").HTTPStatus())
}

func TestAppError_Unwrap(t *testing.T) {
	inner := assert.AnError
	err := NewAppError(ErrCodeInternalDB, "query failed", inner)

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "internal_database_error")
	assert.Contains(t, err.Error(), "query failed")
}

func TestTriggerEvent_IsValid(t *testing.T) {
	for _, trigger := range AllTriggerEvents {
		assert.True(t, trigger.IsValid(), string(trigger))
	}
	assert.False(t, TriggerEvent("SCHEDULE_EXPLODED").IsValid())
	assert.False(t, TriggerEvent("").IsValid())
	assert.False(t, TriggerEvent("schedule_created").IsValid())
}

func TestActorContext(t *testing.T) {
	ctx := context.Background()

	_, ok := GetActor(ctx)
	assert.False(t, ok)

	actor := Actor{ID: "key_1", Type: ActorTypeAPIKey, UserID: "usr_1"}
	ctx = WithActor(ctx, actor)

	got, ok := GetActor(ctx)
	require.True(t, ok)
	assert.Equal(t, actor, got)
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))

	ctx = WithRequestID(ctx, "req_42")
	assert.Equal(t, "req_42", GetRequestID(ctx))
}

func TestSchedule_WebhookPayload(t *testing.T) {
	s := &Schedule{
		ID:       "sch_1",
		UserID:   "usr_1",
		Name:     "Working Hours",
		TimeZone: "Europe/Berlin",
		Availability: []Availability{
			{Days: []int{1, 2}, StartTime: "09:00", EndTime: "17:00"},
		},
	}

	payload := s.WebhookPayload()
	assert.Equal(t, "sch_1", payload["id"])
	assert.Equal(t, "Europe/Berlin", payload["timeZone"])

	// The payload must round-trip through JSON for template rendering.
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	var back map[string]any
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, "Working Hours", back["name"])
}

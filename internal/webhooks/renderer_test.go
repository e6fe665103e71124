package webhooks

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetpoint/internal/types"
)

func TestRenderPayload_DefaultEnvelope(t *testing.T) {
	payload := map[string]any{
		"id":   "sch_123",
		"name": "Working Hours",
	}

	rendered, err := RenderPayload(types.TriggerScheduleCreated, "2026-08-31T12:00:00Z", payload, "")
	require.NoError(t, err)
	assert.Equal(t, ContentTypeJSON, rendered.ContentType)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal([]byte(rendered.Body), &envelope))
	assert.Equal(t, "SCHEDULE_CREATED", envelope["triggerEvent"])
	assert.Equal(t, "2026-08-31T12:00:00Z", envelope["createdAt"])

	inner, ok := envelope["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sch_123", inner["id"])
	assert.Equal(t, "Working Hours", inner["name"])
}

func TestRenderPayload_TemplateProducingJSON(t *testing.T) {
	payload := map[string]any{"name": "Alice", "email": "alice@example.com"}
	tmpl := `{"who": "{{name}}", "contact": "{{email}}"}`

	rendered, err := RenderPayload(types.TriggerUserCreated, "2026-08-31T12:00:00Z", payload, tmpl)
	require.NoError(t, err)
	assert.Equal(t, ContentTypeJSON, rendered.ContentType)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(rendered.Body), &out))
	assert.Equal(t, "Alice", out["who"])
	assert.Equal(t, "alice@example.com", out["contact"])
}

func TestRenderPayload_TemplateProducingFormBody(t *testing.T) {
	payload := map[string]any{"id": "usr_9", "name": "Bob"}
	tmpl := `id={{id}}&name={{name}}`

	rendered, err := RenderPayload(types.TriggerUserCreated, "2026-08-31T12:00:00Z", payload, tmpl)
	require.NoError(t, err)
	assert.Equal(t, ContentTypeForm, rendered.ContentType)
	assert.Equal(t, "id=usr_9&name=Bob", rendered.Body)
}

func TestRenderPayload_NestedFieldPath(t *testing.T) {
	payload := map[string]any{
		"organizer": map[string]any{"email": "host@example.com"},
	}
	tmpl := `organizer={{organizer.email}}`

	rendered, err := RenderPayload(types.TriggerBookingCreated, "2026-08-31T12:00:00Z", payload, tmpl)
	require.NoError(t, err)
	assert.Equal(t, "organizer=host@example.com", rendered.Body)
}

func TestRenderPayload_UnresolvableFieldRendersEmpty(t *testing.T) {
	payload := map[string]any{"name": "Alice"}
	tmpl := `name={{name}}&missing={{no.such.field}}`

	rendered, err := RenderPayload(types.TriggerUserCreated, "2026-08-31T12:00:00Z", payload, tmpl)
	require.NoError(t, err)
	assert.Equal(t, "name=Alice&missing=", rendered.Body)
}

func TestRenderPayload_NullFieldRendersEmpty(t *testing.T) {
	payload := map[string]any{"team": nil}
	tmpl := `team={{team}}`

	rendered, err := RenderPayload(types.TriggerUserCreated, "2026-08-31T12:00:00Z", payload, tmpl)
	require.NoError(t, err)
	assert.Equal(t, "team=", rendered.Body)
}

func TestRenderPayload_QuotesInValuesAreRestored(t *testing.T) {
	payload := map[string]any{"note": `say "hello"`}
	tmpl := `note={{note}}`

	rendered, err := RenderPayload(types.TriggerFormSubmitted, "2026-08-31T12:00:00Z", payload, tmpl)
	require.NoError(t, err)
	assert.Equal(t, `note=say "hello"`, rendered.Body)
	assert.Equal(t, ContentTypeForm, rendered.ContentType)
}

func TestRenderPayload_JSONBodyIsCanonicalized(t *testing.T) {
	payload := map[string]any{"name": "Alice"}
	// Extra whitespace in the template output disappears after the
	// parse-and-reserialize round trip.
	tmpl := `{  "who" :  "{{name}}"  }`

	rendered, err := RenderPayload(types.TriggerUserCreated, "2026-08-31T12:00:00Z", payload, tmpl)
	require.NoError(t, err)
	assert.Equal(t, ContentTypeJSON, rendered.ContentType)
	assert.Equal(t, `{"who":"Alice"}`, rendered.Body)
}

func TestRenderPayload_MalformedTemplateFails(t *testing.T) {
	payload := map[string]any{"name": "Alice"}

	_, err := RenderPayload(types.TriggerUserCreated, "2026-08-31T12:00:00Z", payload, `{{name`)
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeWebhookRender, appErr.Code)
}

func TestValidateTemplate(t *testing.T) {
	assert.NoError(t, ValidateTemplate(""))
	assert.NoError(t, ValidateTemplate(`{"who": "{{name}}"}`))
	assert.Error(t, ValidateTemplate(`{{name`))
}

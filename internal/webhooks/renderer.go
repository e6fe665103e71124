package webhooks

import (
	"encoding/json"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"meetpoint/internal/types"
)

// Wire content types for delivered bodies.
const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// RenderedPayload is the wire-ready body plus its content type. It is
// consumed immediately by the signer and transport.
type RenderedPayload struct {
	Body        string
	ContentType string
}

// envelope is the default JSON body delivered when a subscriber has no
// custom payload template.
type envelope struct {
	TriggerEvent types.TriggerEvent `json:"triggerEvent"`
	CreatedAt    string             `json:"createdAt"`
	Payload      map[string]any     `json:"payload"`
}

// placeholderPattern matches subscriber template placeholders: bare
// dot-path field references such as {{name}} or {{user.email}}. These are
// rewritten onto Go template syntax before parsing.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*)\s*\}\}`)

// quoteEntities undoes the HTML-entity escaping of double quotes that the
// templating engine applies. Templates target JSON or form bodies, never
// HTML, so escaped quotes must come back as literal quotes before
// content-type inference.
var quoteEntities = strings.NewReplacer(`&#34;`, `"`, `&quot;`, `"`)

// RenderPayload produces the wire-ready body for one subscriber.
//
// Without a template the body is the canonical JSON serialization of the
// {triggerEvent, createdAt, payload} envelope. With a template the payload
// fields are interpolated into it; if the interpolated text parses as JSON
// the body is the re-serialized (canonicalized) JSON and the content type
// is application/json, otherwise the raw interpolated text is sent as
// application/x-www-form-urlencoded.
//
// Unresolvable placeholder fields interpolate to the empty string. The only
// error path is a malformed template, surfaced as a render AppError; the
// caller isolates it to the one subscriber that owns the template.
func RenderPayload(trigger types.TriggerEvent, createdAt string, payload map[string]any, tmpl string) (RenderedPayload, error) {
	if tmpl == "" {
		body, err := json.Marshal(envelope{
			TriggerEvent: trigger,
			CreatedAt:    createdAt,
			Payload:      payload,
		})
		if err != nil {
			return RenderedPayload{}, newRenderError(err)
		}
		return RenderedPayload{Body: string(body), ContentType: ContentTypeJSON}, nil
	}

	interpolated, err := applyTemplate(tmpl, payload)
	if err != nil {
		return RenderedPayload{}, newRenderError(err)
	}

	// Attempt-JSON-parse-else-form inference. Subscriber templates are
	// external configuration; an unparseable result is not an error, it
	// just ships as a raw form body.
	var parsed any
	if json.Unmarshal([]byte(interpolated), &parsed) == nil {
		canonical, err := json.Marshal(parsed)
		if err != nil {
			return RenderedPayload{}, newRenderError(err)
		}
		return RenderedPayload{Body: string(canonical), ContentType: ContentTypeJSON}, nil
	}

	return RenderedPayload{Body: interpolated, ContentType: ContentTypeForm}, nil
}

// ValidateTemplate checks that a subscriber payload template compiles. Used
// at registration time so a syntax error is rejected up front instead of
// failing every later dispatch.
func ValidateTemplate(tmpl string) error {
	if tmpl == "" {
		return nil
	}
	_, err := applyTemplate(tmpl, map[string]any{})
	return err
}

// applyTemplate compiles and executes a subscriber payload template against
// the event payload, then unescapes quote entities introduced by the
// engine's HTML-safe escaping.
func applyTemplate(tmpl string, payload map[string]any) (string, error) {
	rewritten := placeholderPattern.ReplaceAllString(tmpl, `{{field . "$1"}}`)

	t, err := template.New("payload").Funcs(template.FuncMap{
		"field": lookupField,
	}).Parse(rewritten)
	if err != nil {
		return "", fmt.Errorf("parsing payload template: %w", err)
	}

	var sb strings.Builder
	if err := t.Execute(&sb, payload); err != nil {
		return "", fmt.Errorf("executing payload template: %w", err)
	}

	return quoteEntities.Replace(sb.String()), nil
}

// lookupField walks a dot-path through nested payload maps. Missing fields
// and nulls interpolate to the empty string so that rendering stays
// best-effort.
func lookupField(payload map[string]any, path string) any {
	var current any = payload
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		current, ok = m[part]
		if !ok {
			return ""
		}
	}
	if current == nil {
		return ""
	}
	return current
}

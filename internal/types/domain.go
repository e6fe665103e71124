package types

import "time"

// Schedule is an availability schedule owned by a user. It is the primary
// entity whose lifecycle events (created/updated/deleted) feed the webhook
// dispatcher.
type Schedule struct {
	ID           string         `json:"id"`
	UserID       string         `json:"userId"`
	Name         string         `json:"name"`
	TimeZone     string         `json:"timeZone"`
	Availability []Availability `json:"availability"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Availability is a weekly recurring availability window within a schedule.
// Days are weekday numbers, 0 = Sunday.
type Availability struct {
	Days      []int  `json:"days"`
	StartTime string `json:"startTime"` // "09:00"
	EndTime   string `json:"endTime"`   // "17:00"
}

// WebhookPayload converts the schedule into the structured payload map
// delivered to subscribers. Field names follow the public wire contract, so
// payload templates can reference them as {{name}}, {{timeZone}} and so on.
func (s *Schedule) WebhookPayload() map[string]any {
	return map[string]any{
		"id":           s.ID,
		"userId":       s.UserID,
		"name":         s.Name,
		"timeZone":     s.TimeZone,
		"availability": availabilityPayload(s.Availability),
	}
}

func availabilityPayload(avail []Availability) []any {
	out := make([]any, 0, len(avail))
	for _, a := range avail {
		days := make([]any, 0, len(a.Days))
		for _, d := range a.Days {
			days = append(days, d)
		}
		out = append(out, map[string]any{
			"days":      days,
			"startTime": a.StartTime,
			"endTime":   a.EndTime,
		})
	}
	return out
}

// User is a platform account. Only the fields the API surface and webhook
// payloads need are modeled here.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	TimeZone  string    `json:"timeZone"`
	WeekStart string    `json:"weekStart"`
	CreatedAt time.Time `json:"createdAt"`
}

// WebhookPayload converts the user into the structured payload map delivered
// to subscribers on USER_CREATED.
func (u *User) WebhookPayload() map[string]any {
	return map[string]any{
		"id":        u.ID,
		"username":  u.Username,
		"email":     u.Email,
		"timeZone":  u.TimeZone,
		"weekStart": u.WeekStart,
	}
}

// APIKey is a stored API credential. The plaintext secret is never stored;
// KeyHash is a bcrypt hash and KeyPrefix the short visible prefix used for
// indexed lookup.
type APIKey struct {
	ID         string
	UserID     string
	KeyPrefix  string
	KeyHash    string
	Note       string
	RevokedAt  *time.Time
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// Active reports whether the key can still authenticate requests.
func (k *APIKey) Active() bool {
	return k.RevokedAt == nil
}

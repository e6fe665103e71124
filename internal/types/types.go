// Package types holds the foundation types shared across the MeetPoint
// platform: domain entities, error taxonomy, trigger identifiers, and the
// small interfaces (Logger, Clock) that keep the rest of the codebase
// testable and free of direct dependencies on log/slog or the wall clock.
package types

import "time"

// Logger is the minimal structured logging interface used throughout the
// platform. log/slog satisfies the first three methods; With returns
// *slog.Logger rather than Logger, so cmd wiring provides a thin adapter.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// redactedPlaceholder replaces secret values in logs and serialization.
const redactedPlaceholder = "***REDACTED***"

var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString is a string type that prevents accidental logging or
// serialization of sensitive values (webhook signing secrets, database
// URLs). String() and MarshalJSON() return a redacted placeholder; use
// Unmask() where the raw value is genuinely needed.
type SecretString string

// String returns a redacted placeholder instead of the raw value.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder as a JSON string.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// Unmask returns the raw plaintext value of the secret.
func (s SecretString) Unmask() string {
	return string(s)
}

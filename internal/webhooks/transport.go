package webhooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// maxResponseBodyRead limits how much of a subscriber's response body is
// read for diagnostics.
const maxResponseBodyRead = 4096

// Transport performs the outbound HTTP delivery for one rendered, signed
// payload. It never treats a non-2xx response as an error: the outcome
// records whatever the endpoint answered. Network failures are converted
// into failed outcomes, not propagated.
//
// Each destination host gets its own circuit breaker so that a persistently
// dead endpoint stops consuming connection slots; an open breaker fails the
// delivery immediately without a network call. The underlying http.Client
// is pooled and safe for concurrent use.
type Transport struct {
	client    *http.Client
	userAgent string

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[*http.Response]
}

// NewTransport creates a Transport on top of the given HTTP client.
// The client is expected to carry its own timeout; the transport adds none.
func NewTransport(client *http.Client, userAgent string) *Transport {
	return &Transport{
		client:    client,
		userAgent: userAgent,
		breakers:  make(map[string]*gobreaker.CircuitBreaker[*http.Response]),
	}
}

// Deliver POSTs the body to url with the content type and signature
// headers, and normalizes whatever happens into a DeliveryOutcome.
//
// Empty url or body is a configuration error caught before any network
// I/O. Delivery is attempted exactly once; there are no retries here.
func (t *Transport) Deliver(ctx context.Context, url, body, contentType, signature string) DeliveryOutcome {
	if url == "" || body == "" {
		err := newDeliveryError("missing required elements to send webhook payload", nil)
		return DeliveryOutcome{SubscriberURL: url, Error: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		derr := newDeliveryError("invalid subscriber url", err)
		return DeliveryOutcome{SubscriberURL: url, Error: derr.Error()}
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set(SignatureHeader, signature)
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.breakerFor(req.URL.Host).Execute(func() (*http.Response, error) {
		return t.client.Do(req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			derr := newDeliveryError(fmt.Sprintf("circuit open for host %s", req.URL.Host), err)
			return DeliveryOutcome{SubscriberURL: url, Error: derr.Error()}
		}
		derr := newDeliveryError("webhook request failed", err)
		return DeliveryOutcome{SubscriberURL: url, Error: derr.Error()}
	}
	defer resp.Body.Close()

	text, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyRead))

	return DeliveryOutcome{
		SubscriberURL: url,
		OK:            resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status:        resp.StatusCode,
		Message:       string(text),
	}
}

// breakerFor returns the circuit breaker for a destination host, creating
// it on first use. Breakers count network-level failures only; an endpoint
// answering with 5xx still counts as reachable.
func (t *Transport) breakerFor(host string) *gobreaker.CircuitBreaker[*http.Response] {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cb, ok := t.breakers[host]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})
	t.breakers[host] = cb
	return cb
}

package webhooks

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransport_DeliverSuccess(t *testing.T) {
	var gotMethod, gotContentType, gotSignature, gotUserAgent, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotSignature = r.Header.Get(SignatureHeader)
		gotUserAgent = r.Header.Get("User-Agent")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	tr := NewTransport(srv.Client(), "MeetPoint-Test/1.0")
	outcome := tr.Deliver(context.Background(), srv.URL, `{"a":1}`, ContentTypeJSON, "deadbeef")

	assert.True(t, outcome.OK)
	assert.Equal(t, http.StatusOK, outcome.Status)
	assert.Equal(t, "ok", outcome.Message)
	assert.Empty(t, outcome.Error)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, ContentTypeJSON, gotContentType)
	assert.Equal(t, "deadbeef", gotSignature)
	assert.Equal(t, "MeetPoint-Test/1.0", gotUserAgent)
	assert.Equal(t, `{"a":1}`, gotBody)
}

func TestTransport_NonSuccessStatusIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	tr := NewTransport(srv.Client(), "")
	outcome := tr.Deliver(context.Background(), srv.URL, "body", ContentTypeForm, "sig")

	assert.False(t, outcome.OK)
	assert.Equal(t, http.StatusInternalServerError, outcome.Status)
	assert.Equal(t, "boom", outcome.Message)
	assert.Empty(t, outcome.Error)
}

func TestTransport_NetworkErrorBecomesFailedOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // connection refused from here on

	tr := NewTransport(&http.Client{}, "")
	outcome := tr.Deliver(context.Background(), url, "body", ContentTypeForm, "sig")

	assert.False(t, outcome.OK)
	assert.Zero(t, outcome.Status)
	assert.NotEmpty(t, outcome.Error)
}

func TestTransport_MissingURLOrBody(t *testing.T) {
	tr := NewTransport(&http.Client{}, "")

	outcome := tr.Deliver(context.Background(), "", "body", ContentTypeJSON, "sig")
	assert.False(t, outcome.OK)
	assert.Contains(t, outcome.Error, "missing required elements")

	outcome = tr.Deliver(context.Background(), "http://example.com", "", ContentTypeJSON, "sig")
	assert.False(t, outcome.OK)
	assert.Contains(t, outcome.Error, "missing required elements")
}

func TestTransport_CircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	tr := NewTransport(&http.Client{}, "")
	for i := 0; i < 6; i++ {
		outcome := tr.Deliver(context.Background(), url, "body", ContentTypeForm, "sig")
		require.False(t, outcome.OK)
	}

	outcome := tr.Deliver(context.Background(), url, "body", ContentTypeForm, "sig")
	assert.False(t, outcome.OK)
	assert.Contains(t, outcome.Error, "circuit open")
}

func TestTransport_ResponseBodyCaptureIsBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 100; i++ {
			w.Write(make([]byte, 1024))
		}
	}))
	defer srv.Close()

	tr := NewTransport(srv.Client(), "")
	outcome := tr.Deliver(context.Background(), srv.URL, "body", ContentTypeForm, "sig")

	assert.True(t, outcome.OK)
	assert.Len(t, outcome.Message, maxResponseBodyRead)
}

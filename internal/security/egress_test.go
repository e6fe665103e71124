package security

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEgressURL(t *testing.T) {
	valid := []string{
		"https://example.com/hook",
		"http://example.com:8080/hook?x=1",
		"https://8.8.8.8/hook",
	}
	for _, u := range valid {
		assert.NoError(t, ValidateEgressURL(u), u)
	}

	invalid := []string{
		"",
		"not a url at all\x7f",
		"ftp://example.com/hook",
		"example.com/hook",
		"https://",
		"http://127.0.0.1/hook",
		"http://10.1.2.3/hook",
		"http://172.16.0.1/hook",
		"http://192.168.1.1/hook",
		"http://169.254.169.254/latest/meta-data",
		"http://[::1]/hook",
		"http://[fe80::1]/hook",
	}
	for _, u := range invalid {
		assert.Error(t, ValidateEgressURL(u), u)
	}
}

func TestIsBlockedIP(t *testing.T) {
	blocked := []string{
		"127.0.0.1",
		"10.0.0.1",
		"172.31.255.255",
		"192.168.0.1",
		"169.254.169.254",
		"0.0.0.0",
		"100.64.0.1",
		"::1",
		"fe80::1",
		"fc00::1",
	}
	for _, s := range blocked {
		assert.True(t, isBlockedIP(net.ParseIP(s)), s)
	}

	allowed := []string{
		"8.8.8.8",
		"1.1.1.1",
		"172.15.0.1",
		"172.32.0.1",
		"2606:4700::1111",
	}
	for _, s := range allowed {
		assert.False(t, isBlockedIP(net.ParseIP(s)), s)
	}
}

func TestEgressClient_BlocksLoopbackConnections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must never reach a loopback listener")
	}))
	defer srv.Close()

	client := NewEgressClient(2*time.Second, 3)
	resp, err := client.Get(srv.URL)
	if resp != nil {
		resp.Body.Close()
	}
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEgressBlocked)
}

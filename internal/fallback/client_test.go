package fallback

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{Endpoint: srv.URL, Timeout: timeout})
}

func TestDetectSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/detect", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("file")
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"payload":"https://dgi.example/invoice?id=9","method_tried":["wechat"],"duration_ms":113.4}`))
	}, time.Second)

	payload, ok, err := c.Detect(context.Background(), []byte("image-bytes"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://dgi.example/invoice?id=9", payload)
}

func TestDetectNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"method_tried":["wechat","yolo"]}`))
	}, time.Second)

	payload, ok, err := c.Detect(context.Background(), []byte("x"))
	require.NoError(t, err, "a clean miss is not an availability error")
	assert.False(t, ok)
	assert.Empty(t, payload)
}

func TestDetectMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing success field", `{"payload":"x"}`},
		{"not json", `<html>bad gateway</html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}, time.Second)

			_, ok, err := c.Detect(context.Background(), []byte("x"))
			assert.False(t, ok)
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestDetectServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, time.Second)

	_, ok, err := c.Detect(context.Background(), []byte("x"))
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDetectTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{"success":false}`))
	}, 50*time.Millisecond)

	start := time.Now()
	_, ok, err := c.Detect(context.Background(), []byte("x"))
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), 250*time.Millisecond, "timeout must bound the call")
}

func TestDetectUnreachable(t *testing.T) {
	c := New(Config{Endpoint: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	_, ok, err := c.Detect(context.Background(), []byte("x"))
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHealthy(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}, time.Second)

	ok, latency := c.Healthy(context.Background())
	assert.True(t, ok)
	assert.Greater(t, latency, time.Duration(0))
}

func TestHealthyUnreachable(t *testing.T) {
	c := New(Config{Endpoint: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	ok, _ := c.Healthy(context.Background())
	assert.False(t, ok)
}

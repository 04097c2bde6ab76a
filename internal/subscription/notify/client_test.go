package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/internal/platform/config"
	"inkwell/pkg/platform/sentinel"
)

func newTestClient(server *httptest.Server, timeout time.Duration) *Client {
	return NewClient(config.NotificationClientConfig{
		BaseURL:     server.URL,
		SenderEmail: "newsletter@inkwell.dev",
		AuthToken:   config.Secret("test-server-token"),
		TimeoutMS:   int(timeout.Milliseconds()),
	})
}

func TestSendDeliversPostmarkPayload(t *testing.T) {
	var received sendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/email", r.URL.Path)
		assert.Equal(t, "test-server-token", r.Header.Get("X-Postmark-Server-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server, 5*time.Second)

	err := client.Send(context.Background(), Email{
		To:       "ursula_le_guin@gmail.com",
		Subject:  "Welcome!",
		HTMLBody: "<p>Confirm here</p>",
		TextBody: "Confirm here",
	})
	require.NoError(t, err)

	assert.Equal(t, "newsletter@inkwell.dev", received.From)
	assert.Equal(t, "ursula_le_guin@gmail.com", received.To)
	assert.Equal(t, "Welcome!", received.Subject)
	assert.Equal(t, "<p>Confirm here</p>", received.HTMLBody)
	assert.Equal(t, "Confirm here", received.TextBody)
}

func TestSendClientErrorIsRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"ErrorCode":300,"Message":"Invalid email address"}`))
	}))
	defer server.Close()

	client := newTestClient(server, 5*time.Second)

	err := client.Send(context.Background(), Email{To: "not-an-email"})
	require.ErrorIs(t, err, ErrRejected)
}

func TestSendServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server, 5*time.Second)

	err := client.Send(context.Background(), Email{To: "ursula_le_guin@gmail.com"})
	require.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestSendSlowServerTimesOut(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := newTestClient(server, 50*time.Millisecond)

	err := client.Send(context.Background(), Email{To: "ursula_le_guin@gmail.com"})
	require.ErrorIs(t, err, ErrTimeout)
}

func TestSendConnectionRefusedIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(server, time.Second)

	err := client.Send(context.Background(), Email{To: "ursula_le_guin@gmail.com"})
	require.ErrorIs(t, err, sentinel.ErrUnavailable)
}

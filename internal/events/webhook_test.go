package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleet-console/fleet-console/internal/config"
	"github.com/fleet-console/fleet-console/internal/storage"
)

func TestWebhookPublisher(t *testing.T) {
	var got Event
	var header, auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("X-Fleet-Event")
		auth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	pub := NewWebhookPublisher(config.WebhookConfig{
		URL:     srv.URL,
		Headers: map[string]string{"Authorization": "Bearer t0ken"},
		Timeout: time.Second,
	})
	defer pub.Close()

	e := NewEvent(storage.Change{Entity: storage.EntityDevice, Action: storage.ActionDelete, IDs: []string{"DEV-002"}}, time.Now())
	require.NoError(t, pub.Publish(context.Background(), e))

	assert.Equal(t, "device.delete", header)
	assert.Equal(t, "Bearer t0ken", auth)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, []string{"DEV-002"}, got.IDs)
}

func TestWebhookPublisher_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	pub := NewWebhookPublisher(config.WebhookConfig{URL: srv.URL, Timeout: time.Second})

	err := pub.Publish(context.Background(), NewEvent(storage.Change{Entity: storage.EntityTheme, Action: storage.ActionUpdate}, time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestNew_Webhook(t *testing.T) {
	cfg := config.Default()
	cfg.Events.Driver = "webhook"
	cfg.Webhook.URL = "http://127.0.0.1:1/events"

	pub, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &WebhookPublisher{}, pub)
}

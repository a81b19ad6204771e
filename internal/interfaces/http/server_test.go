package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saludplena/claims-engine/internal/config"
)

func TestServer_StartAndStop(t *testing.T) {
	cfg := config.ServerConfig{
		Port:            0, // ephemeral
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: time.Second,
	}
	srv := NewServer(cfg, http.NewServeMux(), nil)

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	// Give the listener a moment, then shut down gracefully.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, srv.Stop(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop in time")
	}
}

func TestServer_StopWithoutStart(t *testing.T) {
	srv := NewServer(config.ServerConfig{Port: 0}, http.NewServeMux(), nil)
	assert.NoError(t, srv.Stop(context.Background()))
}

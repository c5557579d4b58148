package api

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerStopsOnCancel(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	s := NewServer("127.0.0.1:0", handler, zerolog.Nop())

	var stopped atomic.Bool
	s.OnShutdown(func() { stopped.Store(true) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.True(t, stopped.Load())
	assert.NoError(t, s.Stop())
}

func TestServerReportsListenErrors(t *testing.T) {
	s := NewServer("256.0.0.1:bad", http.NotFoundHandler(), zerolog.Nop())
	err := s.Start(context.Background())
	assert.Error(t, err)
}

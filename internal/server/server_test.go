package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, net.Listener) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := New(handler, Config{
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: time.Second,
	}, logger)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return srv, ln
}

func TestServer_ShutdownRunsHooksInReverseOrder(t *testing.T) {
	srv, ln := newTestServer(t)

	var order []string
	srv.OnShutdown("store", func(ctx context.Context) error {
		order = append(order, "store")
		return nil
	})
	srv.OnShutdown("cache", func(ctx context.Context) error {
		order = append(order, "cache")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNoContent
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Equal(t, []string{"cache", "store"}, order)
}

func TestServer_ShutdownJoinsHookErrors(t *testing.T) {
	srv, ln := newTestServer(t)

	closed := false
	srv.OnShutdown("store", func(ctx context.Context) error {
		closed = true
		return nil
	})
	errCache := errors.New("redis: connection reset")
	srv.OnShutdown("cache", func(ctx context.Context) error {
		return errCache
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := srv.serve(ctx, ln)
	require.Error(t, err)
	assert.ErrorIs(t, err, errCache)
	assert.Contains(t, err.Error(), "cache")
	assert.True(t, closed, "later hooks still run after a failure")
}

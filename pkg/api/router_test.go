package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/netsspi/pkg/api/handlers"
	"github.com/marmos91/netsspi/pkg/provider/ntlm"
)

type readyServer struct{}

func (readyServer) Ready() bool              { return true }
func (readyServer) ActiveConnections() int32 { return 0 }

func TestRouter(t *testing.T) {
	health := handlers.NewHealthHandler(handlers.Instance{StartedAt: time.Now()}, readyServer{}, ntlm.New(ntlm.Config{}))
	srv := httptest.NewServer(NewRouter(health))
	defer srv.Close()

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}

	tests := []struct {
		path string
		want int
	}{
		{"/health", http.StatusOK},
		{"/health/ready", http.StatusOK},
		{"/health/packages", http.StatusOK},
		{"/", http.StatusTemporaryRedirect},
		{"/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		resp, err := client.Get(srv.URL + tt.path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, tt.want, resp.StatusCode, tt.path)
	}
}

func TestAPIConfigDefaults(t *testing.T) {
	cfg := APIConfig{}.withDefaults()
	assert.Equal(t, ":9090", cfg.Address)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.Equal(t, time.Minute, cfg.IdleTimeout)

	assert.Equal(t, ":9191", APIConfig{Port: 9191}.withDefaults().Address)
	assert.Equal(t, "127.0.0.1:0", APIConfig{Port: 9191, Address: "127.0.0.1:0"}.withDefaults().Address)
}

func TestServerLifecycle(t *testing.T) {
	health := handlers.NewHealthHandler(handlers.Instance{StartedAt: time.Now()}, readyServer{}, nil)
	srv := NewServer(APIConfig{Address: "127.0.0.1:0"}, health)
	assert.Nil(t, srv.Addr())
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	resp, err := http.Get("http://" + srv.Addr().String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("status server did not stop")
	}
	assert.NoError(t, srv.Stop(context.Background()))
}

func TestServerListenConflict(t *testing.T) {
	first := NewServer(APIConfig{Address: "127.0.0.1:0"}, handlers.NewHealthHandler(handlers.Instance{}, nil, nil))
	require.NoError(t, first.Listen())
	defer func() { _ = first.Stop(context.Background()) }()

	second := NewServer(APIConfig{Address: first.Addr().String()}, handlers.NewHealthHandler(handlers.Instance{}, nil, nil))
	assert.Error(t, second.Start(context.Background()))
}

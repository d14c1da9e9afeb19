package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marmos91/netsspi/pkg/protocol"
	"github.com/marmos91/netsspi/pkg/provider/ntlm"
)

type fakeServer struct {
	ready bool
	conns int32
}

func (s *fakeServer) Ready() bool              { return s.ready }
func (s *fakeServer) ActiveConnections() int32 { return s.conns }

type failingProvider struct{}

func (failingProvider) EnumerateSecurityPackages(context.Context, *protocol.EnumerateSecurityPackagesRequest) (*protocol.EnumerateSecurityPackagesResponse, protocol.Status) {
	return nil, protocol.StatusInternalError
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

func TestLiveness_ReturnsOK(t *testing.T) {
	handler := NewHealthHandler(Instance{
		Version:   "1.2.3",
		Transport: "tcp",
		Address:   "127.0.0.1:4750",
		StartedAt: time.Now().Add(-2 * time.Minute),
	}, &fakeServer{conns: 2}, nil)

	w := httptest.NewRecorder()
	handler.Liveness(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	resp := decode(t, w)
	if resp.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", resp.Status)
	}
	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("Expected Data to be a map, got %T", resp.Data)
	}
	if data["service"] != "netsspi" {
		t.Errorf("Expected service 'netsspi', got '%v'", data["service"])
	}
	if data["active_connections"] != float64(2) {
		t.Errorf("Expected 2 active connections, got %v", data["active_connections"])
	}
	if data["uptime_sec"].(float64) < 120 {
		t.Errorf("Expected uptime >= 120s, got %v", data["uptime_sec"])
	}
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name   string
		server ServerState
		want   int
		errMsg string
	}{
		{"no server", nil, http.StatusServiceUnavailable, "server not initialized"},
		{"not listening", &fakeServer{}, http.StatusServiceUnavailable, "server not accepting connections"},
		{"ready", &fakeServer{ready: true}, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(Instance{}, tt.server, nil)
			w := httptest.NewRecorder()
			handler.Readiness(w, httptest.NewRequest("GET", "/health/ready", nil))

			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, w.Code)
			}
			resp := decode(t, w)
			if resp.Error != tt.errMsg {
				t.Errorf("Expected error %q, got %q", tt.errMsg, resp.Error)
			}
		})
	}
}

func TestPackages_ListsProviderPackages(t *testing.T) {
	handler := NewHealthHandler(Instance{}, nil, ntlm.New(ntlm.Config{Packages: []string{"NTLM"}}))
	w := httptest.NewRecorder()
	handler.Packages(w, httptest.NewRequest("GET", "/health/packages", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	resp := decode(t, w)
	packages, ok := resp.Data.([]any)
	if !ok || len(packages) != 1 {
		t.Fatalf("Expected one package, got %v", resp.Data)
	}
	pkg := packages[0].(map[string]any)
	if pkg["name"] != ntlm.PackageNTLM {
		t.Errorf("Expected package %q, got %v", ntlm.PackageNTLM, pkg["name"])
	}
	if pkg["max_token"] != float64(2888) {
		t.Errorf("Expected max_token 2888, got %v", pkg["max_token"])
	}
}

func TestPackages_ProviderFailure(t *testing.T) {
	handler := NewHealthHandler(Instance{}, nil, failingProvider{})
	w := httptest.NewRecorder()
	handler.Packages(w, httptest.NewRequest("GET", "/health/packages", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}
	if resp := decode(t, w); resp.Status != "unhealthy" {
		t.Errorf("Expected status 'unhealthy', got %q", resp.Status)
	}
}

// Package handlers implements the HTTP status endpoints of a netsspi server.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/marmos91/netsspi/pkg/protocol"
)

// ServerState is the part of the dispatch server the probes read.
type ServerState interface {
	Ready() bool
	ActiveConnections() int32
}

// PackageEnumerator lists the packages a provider serves.
type PackageEnumerator interface {
	EnumerateSecurityPackages(ctx context.Context, req *protocol.EnumerateSecurityPackagesRequest) (*protocol.EnumerateSecurityPackagesResponse, protocol.Status)
}

// Instance describes the running server for the liveness document.
type Instance struct {
	Version   string
	Transport string
	Address   string
	StartedAt time.Time
}

// HealthHandler serves the liveness, readiness and package probes.
type HealthHandler struct {
	instance Instance
	server   ServerState
	provider PackageEnumerator
}

// NewHealthHandler creates a health handler. server and provider may be nil,
// in which case readiness and the package listing report unhealthy.
func NewHealthHandler(instance Instance, server ServerState, provider PackageEnumerator) *HealthHandler {
	return &HealthHandler{instance: instance, server: server, provider: provider}
}

// LivenessData is the payload of GET /health.
type LivenessData struct {
	Service           string `json:"service"`
	Version           string `json:"version,omitempty"`
	Transport         string `json:"transport,omitempty"`
	Address           string `json:"address,omitempty"`
	StartedAt         string `json:"started_at"`
	Uptime            string `json:"uptime"`
	UptimeSec         int64  `json:"uptime_sec"`
	ActiveConnections int32  `json:"active_connections"`
}

// Liveness handles GET /health. It succeeds while the process is up.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.instance.StartedAt)
	data := LivenessData{
		Service:   "netsspi",
		Version:   h.instance.Version,
		Transport: h.instance.Transport,
		Address:   h.instance.Address,
		StartedAt: h.instance.StartedAt.UTC().Format(time.RFC3339),
		Uptime:    uptime.Truncate(time.Second).String(),
		UptimeSec: int64(uptime.Seconds()),
	}
	if h.server != nil {
		data.ActiveConnections = h.server.ActiveConnections()
	}
	writeJSON(w, http.StatusOK, healthyResponse(data))
}

// Readiness handles GET /health/ready. It returns 503 until the dispatch
// server accepts connections and again once shutdown starts.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.server == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("server not initialized"))
		return
	}
	if !h.server.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("server not accepting connections"))
		return
	}
	writeJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"active_connections": h.server.ActiveConnections(),
	}))
}

// PackageHealth describes one served package.
type PackageHealth struct {
	Name         string `json:"name"`
	Comment      string `json:"comment"`
	Capabilities uint32 `json:"capabilities"`
	MaxToken     uint32 `json:"max_token"`
	RPCID        uint16 `json:"rpc_id"`
}

// Packages handles GET /health/packages by enumerating the provider.
func (h *HealthHandler) Packages(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("provider not initialized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp, status := h.provider.EnumerateSecurityPackages(ctx, &protocol.EnumerateSecurityPackagesRequest{})
	if status.IsError() {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(status.String()))
		return
	}

	packages := make([]PackageHealth, 0, len(resp.Packages))
	for _, p := range resp.Packages {
		packages = append(packages, PackageHealth{
			Name:         p.Name.Text(),
			Comment:      p.Comment.Text(),
			Capabilities: p.Capabilities,
			MaxToken:     p.MaxToken,
			RPCID:        p.RPCID,
		})
	}
	writeJSON(w, http.StatusOK, healthyResponse(packages))
}

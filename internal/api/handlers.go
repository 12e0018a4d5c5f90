// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/qemu-vmnet/internal/log"
)

type statusResponse struct {
	Status string `json:"status"`
}

// ClientResponse is one forwarding table entry.
type ClientResponse struct {
	MAC       string    `json:"mac"`
	Addr      string    `json:"addr"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Frames    uint64    `json:"frames"`
}

// ClientsResponse is the body of GET /api/clients.
type ClientsResponse struct {
	Count   int              `json:"count"`
	Clients []ClientResponse `json:"clients"`
}

// LimitsResponse is the body of GET /api/limits.
type LimitsResponse struct {
	ClientTTL   string  `json:"client_ttl"`
	MaxClients  int     `json:"max_clients"`
	ClientRate  float64 `json:"client_rate"`
	ClientBurst int     `json:"client_burst"`
	Hairpin     bool    `json:"hairpin"`
}

// ReloadResponse is the body of POST /api/config/reload.
type ReloadResponse struct {
	ChangedFields   []string `json:"changed_fields"`
	RestartRequired bool     `json:"restart_required"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.bridge.Running() {
		writeServiceUnavailable(w, "bridge not running")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ready"})
}

func (s *Server) handleListClients(w http.ResponseWriter, _ *http.Request) {
	clients := s.bridge.Clients()
	resp := ClientsResponse{
		Count:   len(clients),
		Clients: make([]ClientResponse, 0, len(clients)),
	}
	for _, c := range clients {
		addr := ""
		if c.Addr != nil {
			addr = c.Addr.String()
		}
		resp.Clients = append(resp.Clients, ClientResponse{
			MAC:       c.MAC.String(),
			Addr:      addr,
			FirstSeen: c.FirstSeen.UTC(),
			LastSeen:  c.LastSeen.UTC(),
			Frames:    c.Frames,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvictClient(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "mac")
	mac, err := net.ParseMAC(raw)
	if err != nil || len(mac) != 6 {
		writeBadRequest(w, fmt.Errorf("invalid MAC address %q", raw))
		return
	}

	if !s.bridge.Evict(mac) {
		writeNotFound(w)
		return
	}

	logger := log.WithContext(r.Context(), log.WithComponent("api"))
	logger.Info().
		Str(log.FieldEvent, "client.evicted").
		Str(log.FieldClientMAC, mac.String()).
		Msg("client evicted via admin API")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLimits(w http.ResponseWriter, _ *http.Request) {
	l := s.bridge.Limits()
	writeJSON(w, http.StatusOK, LimitsResponse{
		ClientTTL:   l.ClientTTL.String(),
		MaxClients:  l.MaxClients,
		ClientRate:  l.ClientRate,
		ClientBurst: l.ClientBurst,
		Hairpin:     l.Hairpin,
	})
}

func (s *Server) handleConfigReload(w http.ResponseWriter, r *http.Request) {
	if s.reloader == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "config reload not available"})
		return
	}

	summary, err := s.reloader.Reload(r.Context())
	if err != nil {
		logger := log.WithContext(r.Context(), log.WithComponent("api"))
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "config.reload_failed").
			Msg("config reload failed")
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "config reload failed", Detail: err.Error()})
		return
	}

	changed := summary.ChangedFields
	if changed == nil {
		changed = []string{}
	}
	writeJSON(w, http.StatusOK, ReloadResponse{
		ChangedFields:   changed,
		RestartRequired: summary.RestartRequired,
	})
}

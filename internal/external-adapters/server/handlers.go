package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ochairo/unitynuget/internal/domain/services"
	"github.com/ochairo/unitynuget/internal/external-adapters/fetch"
)

// NpmError is the error document of the npm protocol
type NpmError struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// StatusResponse is the body of /-/status. Progress is in percent and NextUpdateSeconds is 0
// after a failed run.
type StatusResponse struct {
	Running           bool       `json:"running"`
	Progress          float64    `json:"progress"`
	Packages          int        `json:"packages"`
	Information       []string   `json:"information"`
	Warnings          []string   `json:"warnings"`
	Errors            []string   `json:"errors"`
	LastSuccess       *time.Time `json:"last_success,omitempty"`
	NextUpdateSeconds int64      `json:"next_update_seconds"`
}

// HealthResponse is the body of /-/health; Status is "degraded" while any breaker is open.
type HealthResponse struct {
	Status      string               `json:"status"`
	Initialized bool                 `json:"initialized"`
	Breakers    []fetch.BreakerState `json:"breakers"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// catalog returns the published catalog, or writes the initializing error and returns nil
func (s *Server) catalog(w http.ResponseWriter) *services.Catalog {
	if c := s.Catalogs.Catalog(); c != nil {
		return c
	}
	status := s.Catalogs.Status()
	reason := "The server is not yet initialized. Please retry later."
	if status.Running {
		reason = fmt.Sprintf("The server is initializing, %.1f%% completed. Please retry later.", status.ProgressPercent())
	}
	writeJSON(w, http.StatusServiceUnavailable, NpmError{Error: "not_initialized", Reason: reason})
	return nil
}

func (s *Server) handleAll(w http.ResponseWriter, r *http.Request) {
	c := s.catalog(w)
	if c == nil {
		return
	}
	all := make(map[string]any)
	for _, info := range c.All() {
		all[info.Name] = info
	}
	all["_updated"] = 99999
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) handlePackage(w http.ResponseWriter, r *http.Request) {
	c := s.catalog(w)
	if c == nil {
		return
	}
	pkg, ok := c.Package(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, NpmError{Error: "not_found", Reason: "document not found"})
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	c := s.catalog(w)
	if c == nil {
		return
	}
	id := strings.ToLower(r.PathValue("id"))
	file := r.PathValue("file")
	artifactPath, ok := c.ArtifactPath(file)
	if !ok || !strings.HasPrefix(file, id+"-") {
		writeJSON(w, http.StatusNotFound, NpmError{Error: "not_found", Reason: "file not found"})
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, artifactPath)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.Catalogs.Status()
	resp := StatusResponse{
		Running:           status.Running,
		Progress:          status.ProgressPercent(),
		Information:       status.Information,
		Warnings:          status.Warnings,
		Errors:            status.Errors,
		NextUpdateSeconds: int64(s.Catalogs.TimeRemaining() / time.Second),
	}
	if !status.LastSuccess.IsZero() {
		last := status.LastSuccess.UTC()
		resp.LastSuccess = &last
	}
	if c := s.Catalogs.Catalog(); c != nil {
		resp.Packages = c.Len()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "ok",
		Initialized: s.Catalogs.Catalog() != nil,
		Breakers:    []fetch.BreakerState{},
	}
	if s.Health != nil {
		resp.Breakers = s.Health.BreakerStates()
	}
	for _, b := range resp.Breakers {
		if b.State == "open" {
			resp.Status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	if len(s.PublicKey) == 0 {
		writeJSON(w, http.StatusNotFound, NpmError{Error: "not_found", Reason: "signing is disabled"})
		return
	}
	w.Header().Set("Content-Type", "application/pgp-keys")
	w.Write(s.PublicKey)
}

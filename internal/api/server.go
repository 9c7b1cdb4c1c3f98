// Package api serves the read-only query surface over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShoplistBot/internal/models"
	"github.com/Kerhoff/ShoplistBot/internal/service"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server provides the HTTP API.
type Server struct {
	svc    *service.Service
	db     Pinger
	logger *logrus.Logger
	mux    *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, db Pinger, logger *logrus.Logger) *Server {
	s := &Server{svc: svc, db: db, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	// API – Families
	s.mux.HandleFunc("GET /api/families/{id}", s.handleGetFamily)
	s.mux.HandleFunc("GET /api/families/{id}/members", s.handleGetMembers)

	// API – Items and templates
	s.mux.HandleFunc("GET /api/families/{id}/items", s.handleGetItems)
	s.mux.HandleFunc("GET /api/families/{id}/templates", s.handleGetTemplates)
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors to HTTP statuses.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrInvalidInput):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("API request failed")
		s.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// pathID extracts the {id} path value and converts it to int64.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	if raw == "" {
		return 0, fmt.Errorf("missing id in path")
	}
	return strconv.ParseInt(raw, 10, 64)
}

// familyID reads the family id from the path. It writes an error response
// and returns false when it is invalid.
func (s *Server) familyID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := pathID(r)
	if err != nil || id <= 0 {
		s.respondError(w, http.StatusBadRequest, "family id must be a positive integer")
		return 0, false
	}
	return id, true
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.WithError(err).Warn("health check failed")
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// Families
// ---------------------------------------------------------------------------

type familyResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type memberResponse struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	IsAdmin     bool   `json:"is_admin"`
}

func (s *Server) handleGetFamily(w http.ResponseWriter, r *http.Request) {
	id, ok := s.familyID(w, r)
	if !ok {
		return
	}

	family, err := s.svc.GetFamily(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	// The invite code grants access to the list and is not exposed here.
	s.respondJSON(w, http.StatusOK, familyResponse{
		ID:        family.ID,
		Name:      family.Name,
		CreatedAt: family.CreatedAt,
	})
}

func (s *Server) handleGetMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := s.familyID(w, r)
	if !ok {
		return
	}

	members, err := s.svc.GetFamilyMembers(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse{ID: m.ID, DisplayName: m.Label(), IsAdmin: m.IsAdmin})
	}
	s.respondJSON(w, http.StatusOK, out)
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

func (s *Server) handleGetItems(w http.ResponseWriter, r *http.Request) {
	id, ok := s.familyID(w, r)
	if !ok {
		return
	}

	state := models.StateActive
	if raw := r.URL.Query().Get("state"); raw != "" {
		parsed, ok := models.ParseItemState(raw)
		if !ok {
			s.respondError(w, http.StatusBadRequest, "state must be active, archived or trashed")
			return
		}
		state = parsed
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	if _, err := s.svc.GetFamily(r.Context(), id); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	var (
		items any
		err   error
	)
	switch state {
	case models.StateArchived:
		items, err = s.svc.ListArchived(r.Context(), id, limit)
	case models.StateTrashed:
		items, err = s.svc.ListTrashed(r.Context(), id, limit)
	default:
		var active []*models.ActiveItem
		active, err = s.svc.ListActive(r.Context(), id)
		if err == nil && limit > 0 && len(active) > limit {
			active = active[:limit]
		}
		items = active
	}
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"state": state,
		"items": items,
	})
}

func (s *Server) handleGetTemplates(w http.ResponseWriter, r *http.Request) {
	id, ok := s.familyID(w, r)
	if !ok {
		return
	}

	if _, err := s.svc.GetFamily(r.Context(), id); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	templates, err := s.svc.Templates(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if templates == nil {
		templates = []*models.Template{}
	}
	s.respondJSON(w, http.StatusOK, templates)
}

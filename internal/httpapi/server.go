// Package httpapi serves a read-only JSON view of live and finished
// encounters for operators and dashboards.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/encounter"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
	"github.com/cory-johannsen/skirmish/internal/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// OutcomeReader looks up outcomes that have left the in-memory archive.
type OutcomeReader interface {
	LoadOutcome(ctx context.Context, encounterID string) (combat.Outcome, error)
	ListOutcomes(ctx context.Context, limit int) ([]storage.OutcomeSummary, error)
}

// Config holds the collaborators of the API.
type Config struct {
	Encounters *encounter.Manager
	Registry   *inventory.Registry
	// Outcomes is optional; without it only archived outcomes are served.
	Outcomes OutcomeReader
	Logger   *zap.Logger
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EncounterView is the body of GET /v1/encounters/{id}. Exactly one of
// State and Outcome is set.
type EncounterView struct {
	State   *combat.CombatState `json:"state,omitempty"`
	Outcome *combat.Outcome     `json:"outcome,omitempty"`
}

// VerifyResult is the body of GET /v1/encounters/{id}/log/verify.
type VerifyResult struct {
	Entries int    `json:"entries"`
	Valid   bool   `json:"valid"`
	Error   string `json:"error,omitempty"`
}

type api struct {
	cfg    Config
	logger *zap.Logger
}

// New returns the HTTP handler.
//
// Precondition: cfg.Encounters and cfg.Registry must be non-nil.
func New(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &api{cfg: cfg, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.accessLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/v1", func(r chi.Router) {
		r.Get("/encounters", a.listEncounters)
		r.Route("/encounters/{id}", func(r chi.Router) {
			r.Get("/", a.getEncounter)
			r.Get("/log", a.getLog)
			r.Get("/log/verify", a.verifyLog)
		})
		r.Get("/outcomes", a.listOutcomes)
		r.Get("/catalog/weapons", a.listWeapons)
	})
	return r
}

func (a *api) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func (a *api) listEncounters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.cfg.Encounters.List())
}

// lookup resolves id to a live state, an archived outcome, or a stored outcome.
func (a *api) lookup(ctx context.Context, id string) (EncounterView, error) {
	if act, err := a.cfg.Encounters.Get(id); err == nil {
		return EncounterView{State: act.Snapshot()}, nil
	}
	if out, ok := a.cfg.Encounters.Archived(id); ok {
		return EncounterView{Outcome: &out}, nil
	}
	if a.cfg.Outcomes != nil {
		out, err := a.cfg.Outcomes.LoadOutcome(ctx, id)
		if err == nil {
			return EncounterView{Outcome: &out}, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return EncounterView{}, err
		}
	}
	return EncounterView{}, storage.ErrNotFound
}

func (a *api) getEncounter(w http.ResponseWriter, r *http.Request) {
	view, err := a.lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (v EncounterView) log() []combat.LogEntry {
	if v.State != nil {
		return v.State.Log
	}
	return v.Outcome.Log
}

func (a *api) getLog(w http.ResponseWriter, r *http.Request) {
	view, err := a.lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	entries := view.log()
	if since := r.URL.Query().Get("since"); since != "" {
		n, err := strconv.Atoi(since)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]errorBody{"error": {Code: "bad_request", Message: "since must be a non-negative integer"}})
			return
		}
		if n > len(entries) {
			n = len(entries)
		}
		entries = entries[n:]
	}
	if entries == nil {
		entries = []combat.LogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *api) verifyLog(w http.ResponseWriter, r *http.Request) {
	view, err := a.lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	entries := view.log()
	res := VerifyResult{Entries: len(entries), Valid: true}
	if err := combat.VerifyLog(entries); err != nil {
		res.Valid = false
		res.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) listOutcomes(w http.ResponseWriter, r *http.Request) {
	if a.cfg.Outcomes == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]errorBody{"error": {Code: "not_configured", Message: "no outcome store configured"}})
		return
	}
	limit := defaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxListLimit {
			writeJSON(w, http.StatusBadRequest, map[string]errorBody{"error": {Code: "bad_request", Message: "limit must be between 1 and 500"}})
			return
		}
		limit = n
	}
	list, err := a.cfg.Outcomes.ListOutcomes(r.Context(), limit)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if list == nil {
		list = []storage.OutcomeSummary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *api) listWeapons(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.cfg.Registry.AllWeapons())
}

func (a *api) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]errorBody{"error": {Code: "not_found", Message: "encounter not found"}})
	case errors.Is(err, combat.ErrLogTampered):
		a.logger.Error("stored outcome failed verification", zap.Error(err))
		writeJSON(w, http.StatusConflict, map[string]errorBody{"error": {Code: "log_tampered", Message: err.Error()}})
	default:
		a.logger.Error("http api", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]errorBody{"error": {Code: "internal", Message: "internal error"}})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

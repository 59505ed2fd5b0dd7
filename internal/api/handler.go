// Package api exposes the assistant over HTTP and MCP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/bankassist/internal/assistant"
	"github.com/kalambet/bankassist/internal/cache"
	"github.com/kalambet/bankassist/internal/session"
	"github.com/kalambet/bankassist/internal/storage"
	"github.com/kalambet/bankassist/internal/usecase"
)

// Answerer runs one turn.
type Answerer interface {
	Handle(ctx context.Context, sess *session.Session, query string) assistant.Answer
}

// CacheAdmin lists and clears the response cache.
type CacheAdmin interface {
	Entries(ctx context.Context) []cache.Entry
	Clear(ctx context.Context) error
}

// TurnReader reads the audit log.
type TurnReader interface {
	RecentTurns(ctx context.Context, userID string, limit int) ([]storage.TurnRow, error)
	GetTurn(ctx context.Context, id string) (storage.TurnRow, error)
}

// DebugReader exposes the recent turn traces.
type DebugReader interface {
	Recent() []assistant.DebugRecord
}

type AppDeps struct {
	Assistant Answerer
	Sessions  *Registry
	Cache     CacheAdmin
	Turns     TurnReader
	Debug     DebugReader
	Token     string
}

type OpenSessionRequest struct {
	UserID string `json:"user_id" validate:"required,max=64"`
}

type OpenSessionResponse struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Greeting  string `json:"greeting"`
}

type QueryRequest struct {
	Query string `json:"query" validate:"required,max=2000"`
}

// CacheEntryView is a cache entry without its embedding.
type CacheEntryView struct {
	Query     string          `json:"query"`
	Response  string          `json:"response"`
	Source    string          `json:"source"`
	UseCase   usecase.UseCase `json:"use_case"`
	Validated bool            `json:"validated"`
	CreatedAt time.Time       `json:"timestamp"`
}

func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", handleHealth())

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/sessions", handleOpenSession(deps))
		r.Post("/sessions/{id}/query", handleQuery(deps))
		r.Get("/sessions/{id}/memory", handleMemory(deps))
		r.Get("/cache", handleListCache(deps))
		r.Delete("/cache", handleClearCache(deps))
		r.Get("/turns", handleListTurns(deps))
		r.Get("/turns/{id}", handleGetTurn(deps))
		r.Get("/debug/logs", handleDebugLogs(deps))
	})
	return r
}

func handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleOpenSession(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OpenSessionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		sess, greeting, err := deps.Sessions.Open(req.UserID)
		if err != nil {
			kindError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, OpenSessionResponse{
			SessionID: sess.ID,
			UserID:    sess.UserID,
			Name:      sess.Name,
			Greeting:  greeting,
		})
	}
}

func handleQuery(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := deps.Sessions.Get(chi.URLParam(r, "id"))
		if !ok {
			httpError(w, http.StatusNotFound, "not_found_error", "session not found or expired")
			return
		}
		var req QueryRequest
		if !decodeBody(w, r, &req) {
			return
		}
		writeJSON(w, http.StatusOK, deps.Assistant.Handle(r.Context(), sess, req.Query))
	}
}

func handleMemory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := deps.Sessions.Get(chi.URLParam(r, "id"))
		if !ok {
			httpError(w, http.StatusNotFound, "not_found_error", "session not found or expired")
			return
		}
		writeJSON(w, http.StatusOK, sess.Memory())
	}
}

func handleListCache(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, cacheViews(deps.Cache.Entries(r.Context())))
	}
}

func handleClearCache(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Cache.Clear(r.Context()); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to clear cache: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	}
}

func handleListTurns(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 200)
		turns, err := deps.Turns.RecentTurns(r.Context(), r.URL.Query().Get("user_id"), limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list turns: %v", err)
			return
		}
		if turns == nil {
			turns = []storage.TurnRow{}
		}
		writeJSON(w, http.StatusOK, turns)
	}
}

func handleGetTurn(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		turn, err := deps.Turns.GetTurn(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "turn not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get turn: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, turn)
	}
}

func handleDebugLogs(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Debug.Recent())
	}
}

func cacheViews(entries []cache.Entry) []CacheEntryView {
	out := make([]CacheEntryView, len(entries))
	for i, e := range entries {
		out[i] = CacheEntryView{
			Query:     e.Query,
			Response:  e.Response,
			Source:    e.Source,
			UseCase:   e.UseCase,
			Validated: e.Validated,
			CreatedAt: e.CreatedAt,
		}
	}
	return out
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return defaultVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

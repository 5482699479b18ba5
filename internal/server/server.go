package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shelfmatch/internal/app"
	"shelfmatch/internal/ratelimit"
	"shelfmatch/internal/util"
)

const (
	passcodeHeader = "X-Admin-Passcode"
	maxBodyBytes   = 16 << 20 // submissions may carry a base64 cover
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                *app.App
	RedisAddr          string
	RedisPassword      string
	SubmitPerMinute    int
	RecommendPerMinute int
	TrustedProxies     []string
}

// Server exposes HTTP endpoints for the review and recommendation API.
type Server struct {
	app              *app.App
	mux              *http.ServeMux
	trusted          *util.TrustedProxies
	submitLimiter    *ratelimit.FixedWindowLimiter
	recommendLimiter *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app is required")
	}
	submitLimit := cfg.SubmitPerMinute
	if submitLimit <= 0 {
		submitLimit = 10
	}
	recommendLimit := cfg.RecommendPerMinute
	if recommendLimit <= 0 {
		recommendLimit = 30
	}
	newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
		prefix := "shelfmatch:ratelimit:" + name
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	submitLimiter, err := newLimiter("submit", submitLimit)
	if err != nil {
		return nil, err
	}
	recommendLimiter, err := newLimiter("recommend", recommendLimit)
	if err != nil {
		return nil, err
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	s := &Server{
		app:              cfg.App,
		mux:              http.NewServeMux(),
		trusted:          trusted,
		submitLimiter:    submitLimiter,
		recommendLimiter: recommendLimiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/api/reviews", s.handleReviews)
	s.mux.HandleFunc("/api/reviews/", s.handleReviewByID)
	s.mux.HandleFunc("/api/recommendations", s.handleRecommendations)
	s.mux.HandleFunc("/api/status", s.handleStatus)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListReviews(w, r)
	case http.MethodPost:
		s.handleSubmitReview(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.app.List(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": reviews,
		"count": len(reviews),
	})
}

type submitRequest struct {
	Author  string `json:"author"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Score   int    `json:"score"`
	Image   string `json:"image,omitempty"`
}

func (s *Server) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, s.submitLimiter, "too many review submissions") {
		s.audit(r, "reviews.submit", "rate_limited")
		return
	}
	var req submitRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.audit(r, "reviews.submit", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	review, err := s.app.Submit(r.Context(), app.SubmitInput{
		Author:  req.Author,
		Title:   req.Title,
		Content: req.Content,
		Score:   req.Score,
		Image:   req.Image,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "reviews.submit", "success", "review_id", review.ID)
	writeJSON(w, http.StatusCreated, review)
}

// DELETE /api/reviews/{id}
func (s *Server) handleReviewByID(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/api/reviews/")
	if raw == "" || strings.Contains(raw, "/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid review id")
		return
	}
	passcode := r.Header.Get(passcodeHeader)
	if err := s.app.Delete(r.Context(), id, passcode); err != nil {
		outcome := "fail"
		if errors.Is(err, app.ErrUnauthorized) {
			outcome = "denied"
		}
		s.audit(r, "reviews.delete", outcome, "review_id", id)
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "reviews.delete", "success", "review_id", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type recommendRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.recommendLimiter, "too many recommendation requests") {
		s.audit(r, "recommendations", "rate_limited")
		return
	}
	var req recommendRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	rec, err := s.app.Recommend(r.Context(), req.Query)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, s.app.Status())
}

func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": verr.Error(),
			"field": verr.Field,
		})
	case errors.Is(err, app.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, "review not found")
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	key := r.URL.Path + "|" + util.ClientIP(r, s.trusted)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trusted),
		"request_id", util.RequestIDFromRequest(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bookreview/internal/app"
	"bookreview/internal/ratelimit"
	"bookreview/internal/util"
	"bookreview/pkg/auth"
	"bookreview/pkg/domain"
	"bookreview/pkg/store"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App

	RedisAddr     string
	RedisPassword string

	RegisterRateLimitPerMinute int
	LoginRateLimitPerMinute    int
	AdminRateLimitPerMinute    int

	MaxUploadBytes int64
}

// Server exposes the REST surface for the storefront and admin panel.
type Server struct {
	app            *app.App
	mux            *http.ServeMux
	maxUploadBytes int64

	registerLimiter *ratelimit.FixedWindowLimiter
	loginLimiter    *ratelimit.FixedWindowLimiter
	adminLimiter    *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	registerLimit := cfg.RegisterRateLimitPerMinute
	if registerLimit <= 0 {
		registerLimit = 5
	}
	loginLimit := cfg.LoginRateLimitPerMinute
	if loginLimit <= 0 {
		loginLimit = 10
	}
	adminLimit := cfg.AdminRateLimitPerMinute
	if adminLimit <= 0 {
		adminLimit = 10
	}
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 * 1024 * 1024
	}
	newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
		prefix := "bookreview:ratelimit:" + name
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	registerLimiter, err := newLimiter("register", registerLimit)
	if err != nil {
		return nil, err
	}
	loginLimiter, err := newLimiter("login", loginLimit)
	if err != nil {
		return nil, err
	}
	adminLimiter, err := newLimiter("admin", adminLimit)
	if err != nil {
		return nil, err
	}
	s := &Server{
		app:             cfg.App,
		mux:             http.NewServeMux(),
		maxUploadBytes:  maxUploadBytes,
		registerLimiter: registerLimiter,
		loginLimiter:    loginLimiter,
		adminLimiter:    adminLimiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler wrapped in the middleware chain.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// users
	s.mux.HandleFunc("/user/register", s.handleRegister)
	s.mux.HandleFunc("/user/login", s.handleLogin)
	s.mux.HandleFunc("/user/admin", s.handleAdminLogin)
	s.mux.Handle("/user/profile", s.withUser(s.handleProfile))

	// books
	s.mux.HandleFunc("/books/add", s.handleAddBook)
	s.mux.HandleFunc("/books/all", s.handleAllBooks)
	s.mux.Handle("/books/review", s.withUser(s.handleMyReviews))
	s.mux.HandleFunc("/books/", s.handleBookByID)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "API Work")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"status": "ok"})
}

// auth wrappers
type userHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) withUser(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		next(w, r, user)
	})
}

// requireUser resolves the bearer token to an account. Failures write the
// 401 envelope and return ok=false.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return domain.User{}, false
	}
	user, err := s.app.UserFromToken(token)
	if err != nil {
		if errors.Is(err, app.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "User not found")
		} else {
			writeError(w, http.StatusUnauthorized, "Invalid token")
		}
		return domain.User{}, false
	}
	return user, true
}

// requireAdmin verifies the admin token. The admin has no account record,
// so there is no store lookup.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return false
	}
	if err := s.app.VerifyAdminToken(token); err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return false
	}
	return true
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		slog.Warn("missing bearer prefix", "path", r.URL.Path)
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		slog.Warn("empty bearer token", "path", r.URL.Path)
		return "", false
	}
	return token, true
}

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{"success": false, "message": msg})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// writeAppError maps app-layer sentinels onto the error taxonomy.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrAllFieldsRequired),
		errors.Is(err, app.ErrInvalidEmail),
		errors.Is(err, app.ErrUserExists),
		errors.Is(err, app.ErrEmailInUse),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, app.ErrBookFieldsRequired),
		errors.Is(err, app.ErrCoverImageRequired),
		errors.Is(err, app.ErrInvalidPrice),
		errors.Is(err, app.ErrRatingAndTextRequired),
		errors.Is(err, app.ErrRatingOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrUserNotExists),
		errors.Is(err, app.ErrInvalidCredentials),
		errors.Is(err, store.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrBookNotFound),
		errors.Is(err, app.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrUpload):
		writeError(w, http.StatusBadGateway, app.ErrUpload.Error())
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
}

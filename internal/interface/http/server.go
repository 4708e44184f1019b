// Package http implements the REST and WebSocket interface.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub/internal/application/command"
	"github.com/tutorhub/tutorhub/internal/application/query"
	"github.com/tutorhub/tutorhub/internal/domain/message"
	"github.com/tutorhub/tutorhub/internal/domain/offering"
	"github.com/tutorhub/tutorhub/internal/domain/policy"
	"github.com/tutorhub/tutorhub/internal/domain/shared"
	"github.com/tutorhub/tutorhub/internal/domain/tutor"
	"github.com/tutorhub/tutorhub/internal/domain/user"
	"github.com/tutorhub/tutorhub/internal/infrastructure/realtime"
)

// Config contains HTTP server configuration.
type Config struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		AllowedOrigins: []string{"*"},
	}
}

// Address returns the listen address.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Commands bundles the write handlers the interface exposes.
type Commands struct {
	CreateOffering    *command.CreateOfferingHandler
	UpdateOffering    *command.UpdateOfferingHandler
	DeleteOffering    *command.DeleteOfferingHandler
	AcceptOffering    *command.AcceptOfferingHandler
	UploadAttachments *command.UploadAttachmentsHandler
	SendMessage       *command.SendMessageHandler
	DeleteMessage     *command.DeleteMessageHandler
	TutorProfile      *command.TutorProfileHandler
	VerifyTutor       *command.VerifyTutorHandler
	UserProfile       *command.UserProfileHandler
}

// Queries bundles the read handlers the interface exposes.
type Queries struct {
	Dashboard *query.GetDashboardHandler
}

// Dependencies holds everything the server needs.
type Dependencies struct {
	Commands Commands
	Queries  Queries

	Users     user.Repository
	Offerings offering.Repository
	Messages  message.Repository
	Tutors    tutor.Repository
	Policies  policy.Set

	Hub         *realtime.Hub
	ChannelAuth *realtime.ChannelAuth
	Sessions    *SessionAuth

	Logger *slog.Logger
}

// Server is the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	mux        *http.ServeMux
	httpServer *http.Server
	logger     *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewServer creates the server and registers all routes.
func NewServer(config Config, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: config,
		deps:   deps,
		mux:    http.NewServeMux(),
		logger: logger.With("component", "http_server"),
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         config.Address(),
		Handler:      s.buildMiddlewareChain(s.mux),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/v1/auth/register", s.handleRegister)

	s.mux.Handle("GET /api/v1/offerings", s.authenticated(s.handleListOfferings))
	s.mux.Handle("POST /api/v1/offerings", s.authenticated(s.handleCreateOffering))
	s.mux.Handle("GET /api/v1/offerings/{id}", s.authenticated(s.handleGetOffering))
	s.mux.Handle("PATCH /api/v1/offerings/{id}", s.authenticated(s.handleUpdateOffering))
	s.mux.Handle("DELETE /api/v1/offerings/{id}", s.authenticated(s.handleDeleteOffering))
	s.mux.Handle("POST /api/v1/offerings/{id}/accept", s.authenticated(s.handleAcceptOffering))
	s.mux.Handle("POST /api/v1/offerings/{id}/attachments", s.authenticated(s.handleUploadAttachments))

	s.mux.Handle("GET /api/v1/offerings/{id}/messages", s.authenticated(s.handleListMessages))
	s.mux.Handle("POST /api/v1/offerings/{id}/messages", s.authenticated(s.handleSendMessage))
	s.mux.Handle("DELETE /api/v1/messages/{id}", s.authenticated(s.handleDeleteMessage))

	s.mux.Handle("POST /api/v1/tutor-profiles", s.authenticated(s.handleCreateTutorProfile))
	s.mux.Handle("PATCH /api/v1/tutor-profiles/{id}", s.authenticated(s.handleUpdateTutorProfile))
	s.mux.Handle("DELETE /api/v1/tutor-profiles/{id}", s.authenticated(s.handleDeleteTutorProfile))
	s.mux.Handle("POST /api/v1/tutor-profiles/{id}/verify", s.authenticated(s.handleVerifyTutor))
	s.mux.Handle("GET /api/v1/tutor-profiles/pending", s.authenticated(s.handleListPendingTutors))

	s.mux.Handle("POST /api/v1/profile", s.authenticated(s.handleCreateUserProfile))
	s.mux.Handle("PATCH /api/v1/profile", s.authenticated(s.handleUpdateUserProfile))
	s.mux.Handle("DELETE /api/v1/profile", s.authenticated(s.handleDeleteUserProfile))

	s.mux.Handle("GET /api/v1/dashboard", s.authenticated(s.handleGetDashboard))

	s.mux.Handle("POST /api/v1/realtime/auth", s.authenticated(s.handleChannelAuth))
	s.mux.Handle("GET /ws", s.authenticated(s.handleWebSocket))
}

func (s *Server) buildMiddlewareChain(handler http.Handler) http.Handler {
	h := handler
	h = s.loggingMiddleware(h)
	h = s.recoveryMiddleware(h)
	h = s.corsMiddleware(h)
	return h
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", getClientIP(r),
		)
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered",
					"error", err,
					"stack", string(debug.Stack()),
					"path", r.URL.Path,
				)
				writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowed := false
		for _, o := range s.config.AllowedOrigins {
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}

		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authenticated resolves the bearer token to a user ID and stores it in the
// request context.
func (s *Server) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing bearer token")
			return
		}

		userID, err := s.deps.Sessions.Verify(token)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from the Authorization header, falling back
// to the access_token query parameter for WebSocket upgrades.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("access_token")
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("http server listening", "addr", s.config.Address())

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	return s.httpServer.Shutdown(ctx)
}

// --- response helpers ---

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{"error": apiError{Code: code, Message: message}})
}

// writeDomainError maps domain sentinel errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case shared.IsDenied(err):
		writeJSONError(w, http.StatusForbidden, "forbidden", "You are not allowed to perform this action")
	case errors.Is(err, shared.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", "Resource not found")
	case errors.Is(err, shared.ErrAlreadyExists):
		writeJSONError(w, http.StatusConflict, "conflict", "Resource already exists")
	case errors.Is(err, shared.ErrStateTransition):
		writeJSONError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, shared.ErrEmptyValue), errors.Is(err, shared.ErrValidation):
		writeJSONError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
	default:
		writeJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
	}
}

type contextKey string

const contextKeyUserID contextKey = "user_id"

func actorID(r *http.Request) uuid.UUID {
	id, _ := r.Context().Value(contextKeyUserID).(uuid.UUID)
	return id
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

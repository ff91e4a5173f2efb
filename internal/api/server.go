package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/bantconfirm/whatsapp-platform/internal/auth"
	"github.com/bantconfirm/whatsapp-platform/internal/cache"
	"github.com/bantconfirm/whatsapp-platform/internal/chat"
	"github.com/bantconfirm/whatsapp-platform/internal/config"
	"github.com/bantconfirm/whatsapp-platform/internal/events"
	"github.com/bantconfirm/whatsapp-platform/internal/meta"
	"github.com/bantconfirm/whatsapp-platform/internal/metrics"
	"github.com/bantconfirm/whatsapp-platform/internal/models"
	"github.com/bantconfirm/whatsapp-platform/internal/storage"
	"github.com/bantconfirm/whatsapp-platform/internal/validation"
)

type contextKey string

const userContextKey contextKey = "user"

// RESTServer represents the REST API server
type RESTServer struct {
	config    *config.Config
	store     storage.Store
	auth      *auth.Service
	chat      *chat.Service
	meta      *meta.Client
	redis     *cache.Redis
	events    *events.Publisher
	metrics   *metrics.Metrics
	validator *validation.Validator
	router    chi.Router
	server    *http.Server
}

// Options carries optional dependencies for the REST server. Redis and
// events may be nil; the affected endpoints fall back to storage.
type Options struct {
	Redis  *cache.Redis
	Events *events.Publisher
}

// NewRESTServer creates a new REST API server
func NewRESTServer(cfg *config.Config, store storage.Store, authService *auth.Service, chatService *chat.Service, metaClient *meta.Client, m *metrics.Metrics, opts Options) *RESTServer {
	s := &RESTServer{
		config:    cfg,
		store:     store,
		auth:      authService,
		chat:      chatService,
		meta:      metaClient,
		redis:     opts.Redis,
		events:    opts.Events,
		metrics:   m,
		validator: validation.NewValidator(),
		router:    chi.NewRouter(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all routes
func (s *RESTServer) setupRoutes() {
	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(s.metricsMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.Handle("/metrics", promhttp.Handler())

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		s.setupAPIRoutes(r)
	})
}

// ListenAndServe starts the server
func (s *RESTServer) ListenAndServe(addr string) error {
	s.server.Addr = addr
	log.Info().Str("addr", addr).Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *RESTServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// authMiddleware resolves the bearer token into the current user record.
// The user is re-read from storage on every request.
func (s *RESTServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.respondError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.respondError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		user, err := s.auth.Verify(r.Context(), parts[1])
		if err != nil {
			if err == auth.ErrTokenExpired {
				s.respondError(w, http.StatusUnauthorized, "token expired")
				return
			}
			s.respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser returns the authenticated user attached by authMiddleware
func currentUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(userContextKey).(*models.User)
	return user
}

// metricsMiddleware counts requests by method and response status
func (s *RESTServer) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if s.metrics != nil {
			s.metrics.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Inc()
		}
	})
}

// respondJSON writes a JSON response
func (s *RESTServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Error().Err(err).Msg("Failed to encode response")
		}
	}
}

// respondError writes a JSON error response
func (s *RESTServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

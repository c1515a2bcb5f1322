// Package api serves the recommend endpoint and the health endpoints over chi.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/catalog"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/config"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/logger"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/observability"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/matcher"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/models"
)

// Recommender is the part of the matcher the handlers use.
type Recommender interface {
	Recommend(catalog []models.Place, prefs *models.Preferences, k int) ([]models.ScoredPlace, error)
}

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

type Options struct {
	Matcher       Recommender
	Catalog       catalog.Provider
	Server        config.ServerConfig
	TopK          int
	Logger        logger.Logger
	Observability *observability.Observability
	ReadyChecks   []ReadyCheck
	Version       string
}

type Server struct {
	matcher     Recommender
	catalog     catalog.Provider
	cfg         config.ServerConfig
	topK        int
	logger      logger.Logger
	obs         *observability.Observability
	readyChecks []ReadyCheck
	version     string
	router      chi.Router
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	if opts.Observability == nil {
		opts.Observability = observability.Noop()
	}
	if opts.Matcher == nil {
		opts.Matcher = matcher.New(matcher.DefaultWeights(), opts.Logger)
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}

	s := &Server{
		matcher:     opts.Matcher,
		catalog:     opts.Catalog,
		cfg:         opts.Server,
		topK:        opts.TopK,
		logger:      opts.Logger,
		obs:         opts.Observability,
		readyChecks: opts.ReadyChecks,
		version:     opts.Version,
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer wraps the handler with the configured timeouts.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       config.GetDuration(s.cfg.ReadTimeout),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      config.GetDuration(s.cfg.WriteTimeout),
		IdleTimeout:       60 * time.Second,
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.recoverer)
	r.Use(s.corsHandler())
	r.Use(s.accessLog)
	r.Use(Metrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody("Not found", "", ""))
	})
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/recommend", func(r chi.Router) {
		if s.cfg.RateLimit.Enabled && s.cfg.RateLimit.Requests > 0 {
			r.Use(s.rateLimit())
		}
		r.Post("/", s.handleRecommend)
		r.Options("/", s.handleOptions)
	})

	return r
}

func (s *Server) corsHandler() func(http.Handler) http.Handler {
	origins := s.cfg.CORS.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	maxAge := s.cfg.CORS.MaxAge
	if maxAge == 0 {
		maxAge = 300
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions, http.MethodPost},
		AllowedHeaders: []string{
			"X-CSRF-Token", "X-Requested-With", "Accept", "Accept-Version", "Content-Length",
			"Content-MD5", "Content-Type", "Date", "X-Api-Version", RequestIDHeader,
		},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: s.cfg.CORS.AllowCredentials,
		MaxAge:           maxAge,
	})
}

func (s *Server) rateLimit() func(http.Handler) http.Handler {
	window := config.GetDuration(s.cfg.RateLimit.Window)
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(
		s.cfg.RateLimit.Requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, errorBody("Too many requests", "RATE_LIMITED", ""))
		}),
	)
}

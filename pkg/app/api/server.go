// Package api implements app.Runner for the API server process.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/predictionlabs/prediction-oracle/internal/metrics"
	"github.com/predictionlabs/prediction-oracle/pkg/analyzer"
	apperrors "github.com/predictionlabs/prediction-oracle/pkg/app/errors"
	apphttp "github.com/predictionlabs/prediction-oracle/pkg/app/http"
	"github.com/predictionlabs/prediction-oracle/pkg/cards"
	"github.com/predictionlabs/prediction-oracle/pkg/config"
	"github.com/predictionlabs/prediction-oracle/pkg/crawler"
	"github.com/predictionlabs/prediction-oracle/pkg/marketstore"
	"github.com/predictionlabs/prediction-oracle/pkg/pgutil"
)

const (
	defaultRequestTimeout = 60

	apiVersion = "0.1.0"
)

// Server holds cfg to init the api server.
type Server struct {
	cfg *config.Config
}

// NewServer initializes new api server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("api server config is nil")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting API server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() { _ = db.Close() }()

	logger.Info("Connected to database",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database),
	)

	store := marketstore.NewStore(db)

	// The manual trigger endpoint runs the same pipeline the crawler
	// process does, so the API server wires up its own copy.
	ai := analyzer.New(cfg.Analyzer, logger)
	crawl := crawler.New(cfg.Crawler, crawler.NewClient(cfg.Crawler, logger), store, ai, logger)

	runCrawl := func(runCtx context.Context) {
		// Triggered crawls overlap when operators are impatient; the run id
		// ties start/finish log lines together.
		runLogger := logger.With(zap.String("run_id", uuid.NewString()))
		runLogger.Info("Background crawl started")
		stored, err := crawl.Run(runCtx)
		if err != nil {
			runLogger.Error("Background crawl failed", zap.Error(err))
			return
		}
		runLogger.Info("Background crawl finished", zap.Int("events", stored))
	}

	cardService := cards.NewLog(cards.NewService(store, logger), logger)

	router := s.setupRouter(ctx, cardService, runCrawl, logger)

	return apphttp.ServeAndWait(ctx, router, logger, &cfg.Server)
}

func (s *Server) setupRouter(
	ctx context.Context,
	cardService cards.Service,
	runCrawl func(context.Context),
	logger *zap.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Second * defaultRequestTimeout))
	r.Use(apphttp.CORS)
	r.Use(requestMetrics)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_ = writeJSON(w, map[string]string{"status": "healthy"})
	})

	// Service banner
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_ = writeJSON(w, map[string]string{
			"message": "AI Prediction Oracle API",
			"version": apiVersion,
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	// Card endpoints
	cards.RegisterRoutes(r, cardService, logger)

	r.Post("/api/admin/trigger-update", apphttp.HandleError(s.triggerUpdate(ctx, runCrawl, logger)))

	return r
}

// triggerUpdate guards the manual crawl trigger behind the admin secret and
// launches the crawl on the server's root context so it survives the request.
func (s *Server) triggerUpdate(
	ctx context.Context,
	runCrawl func(context.Context),
	logger *zap.Logger,
) apphttp.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		secret := r.URL.Query().Get("secret")
		if secret == "" {
			return apperrors.UnAuthorizedError(nil, "secret is required")
		}
		if subtle.ConstantTimeCompare([]byte(secret), []byte(s.cfg.Admin.Secret)) != 1 {
			return apperrors.ForbiddenError(nil, "invalid admin secret")
		}

		logger.Info("Manual update triggered")
		go runCrawl(ctx)

		return writeJSON(w, map[string]string{
			"message": "Background update triggered, check logs for progress",
		})
	}
}

// requestMetrics records request durations per route, method, and status.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		metrics.RequestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}

func writeJSON(w http.ResponseWriter, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	return json.NewEncoder(w).Encode(data)
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/unrolled/secure"

	"billing-desk/internal/audit"
	"billing-desk/internal/auth"
	"billing-desk/internal/backend"
	"billing-desk/internal/config"
	"billing-desk/internal/observability/logging"
	"billing-desk/internal/observability/metrics"
	"billing-desk/internal/statement/application"
	"billing-desk/internal/statement/export"
	statementredis "billing-desk/internal/statement/infrastructure/redis"
	statementhttp "billing-desk/internal/statement/interfaces/http"
)

func main() {
	cfg, err := config.Load(true)
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}
	if err := logging.Setup(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		log.Fatal().Err(err).Msg("logging setup error")
	}
	logger := logging.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	var auditLogger audit.Logger = audit.NewLogWriter(log.Logger)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("db open error")
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			logger.Fatal().Err(err).Msg("db ping error")
		}
		repo := audit.NewRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("audit schema error")
		}
		auditLogger = repo
	} else {
		logger.Warn().Msg("DATABASE_URL not set, audit entries go to the log")
	}
	metrics.Init(db, logging.WithComponent("metrics"))

	var cache application.SnapshotCache
	if cfg.RedisAddr != "" {
		rdb, err := statementredis.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connect error")
		}
		defer rdb.Close()
		cache = statementredis.NewSnapshotCache(rdb, cfg.StatementCacheTTL)
	}

	profile := export.DefaultProfile()
	if cfg.ExportProfile != "" {
		profile, err = export.LoadProfile(cfg.ExportProfile)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.ExportProfile).Msg("export profile error")
		}
	}

	client, err := backend.NewClient(
		cfg.BackendBaseURL,
		cfg.BackendToken,
		backend.WithTimeout(cfg.BackendTimeout),
		backend.WithLogger(logging.WithComponent("backend")),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("backend client error")
	}
	statements, err := application.NewStatementService(
		client,
		cache,
		export.NewRegistry(profile),
		application.SystemClock{},
		logging.WithComponent("statement"),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("statement service error")
	}
	mutations, err := application.NewMutationService(client, statements, logging.WithComponent("mutations"))
	if err != nil {
		logger.Fatal().Err(err).Msg("mutation service error")
	}
	handler, err := statementhttp.NewHandler(statements, mutations, auditLogger, cfg.ExportRateLimit, logging.WithComponent("http"))
	if err != nil {
		logger.Fatal().Err(err).Msg("statement handler error")
	}

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      newRouter(cfg, handler, logging.WithComponent("http")),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("http shutdown error")
		}
	}()

	logger.Info().Str("addr", cfg.HTTPAddr).Str("backend", cfg.BackendBaseURL).Msg("http listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("http server error")
	}
	logger.Info().Msg("http server stopped")
}

func newRouter(cfg *config.Config, handler *statementhttp.Handler, logger zerolog.Logger) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'",
		SSLRedirect:           cfg.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !cfg.IsProduction(),
	})
	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.AuthJWTSecret), policy)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(secureMiddleware.Handler)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	r.Use(authMiddleware.Wrap)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/api/v1", handler.Register)
	return r
}

func loggingMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(resp, r)
			logger.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", resp.status).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/your-username/click-lite-reports/internal/api"
	"github.com/your-username/click-lite-reports/internal/cache"
	"github.com/your-username/click-lite-reports/internal/client"
	"github.com/your-username/click-lite-reports/internal/config"
	"github.com/your-username/click-lite-reports/internal/dashboard"
	"github.com/your-username/click-lite-reports/internal/database"
	"github.com/your-username/click-lite-reports/internal/drilldown"
	"github.com/your-username/click-lite-reports/internal/export"
	"github.com/your-username/click-lite-reports/internal/filters"
	"github.com/your-username/click-lite-reports/internal/monitoring"
	"github.com/your-username/click-lite-reports/internal/options"
	"github.com/your-username/click-lite-reports/internal/preview"
	"github.com/your-username/click-lite-reports/internal/report"
	"github.com/your-username/click-lite-reports/internal/websocket"
)

var version = "dev"

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if level == zerolog.DebugLevel {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Info().Str("version", version).Msg("Starting Click-Lite Reports")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	metrics := monitoring.NewMetrics()
	health := monitoring.NewHealthMonitor(version)

	backend, err := client.New(client.Config{
		BaseURL:       cfg.Backend.APIBaseURL,
		AuthServerURL: cfg.Backend.AuthServerURL,
		PublicURL:     cfg.Backend.PublicURL,
		SessionCookie: cfg.Backend.SessionCookie,
		Timeout:       cfg.Backend.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize backend client")
	}
	health.RegisterChecker(monitoring.NewAPIHealthChecker("backend", cfg.Backend.APIBaseURL+"/api/health"))

	// Preview executor
	var executor preview.Executor = backend
	if cfg.Preview.Executor == "clickhouse" {
		db, err := database.New(cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer db.Close()
		executor = db
		health.RegisterChecker(monitoring.NewFuncChecker("clickhouse", db.Health))
	}

	// Preview result cache
	var resultCache *cache.QueryCache
	switch cfg.Cache.Backend {
	case "memory":
		mem := cache.NewMemoryCache(cfg.Cache.MaxEntries)
		defer mem.Close()
		resultCache = cache.NewQueryCache(cache.MemoryResults{Cache: mem}, cfg.Cache.TTL)
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		rc := cache.NewRedisCache(rdb)
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, previews will miss the cache")
		}
		resultCache = cache.NewQueryCache(rc, cfg.Cache.TTL)
		health.RegisterChecker(monitoring.NewFuncChecker("redis", rc.Ping))
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(metrics)
	go wsHub.Run(ctx)

	renderer := filters.Renderer{EscapeLiterals: cfg.Preview.EscapeLiterals}
	previews := preview.NewService(executor, preview.Options{
		ExecutorName: cfg.Preview.Executor,
		Renderer:     renderer,
		Cache:        resultCache,
		Metrics:      metrics,
		Publisher:    wsHub,
		Limit:        cfg.Preview.Limit,
		Timeout:      cfg.Preview.Timeout,
		Concurrency:  cfg.Preview.Concurrency,
	})
	expander := drilldown.NewExpander(previews, renderer)
	loader := options.NewLoader(previews, renderer, metrics)
	reports := report.NewService(backend)
	dashboards := dashboard.NewService(backend, previews, cfg.Preview.Concurrency)
	exportHandler := api.NewExportHandler(export.NewExporter(), previews)

	// Setup routes
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition", "X-Export-Rows"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", metrics.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", health.HTTPHandler())
		r.Get("/health/live", health.LivenessHandler())
		r.Get("/health/ready", health.ReadinessHandler())
		r.HandleFunc("/ws", websocket.HandleWebSocket(wsHub, cfg.Server.CORSOrigins))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.Preview.Timeout + 5*time.Second))
			r.Use(api.Session(cfg.Backend.PublicURL))

			r.Route("/sql", func(r chi.Router) {
				r.Post("/fields", api.ExtractFields())
				r.Post("/apply-filters", api.ApplyFilters(renderer))
			})

			r.Route("/preview", func(r chi.Router) {
				r.Post("/", api.RunPreview(previews))
				r.Get("/{id}/status", api.PreviewStatus(previews))
				r.Delete("/{id}", api.CancelPreview(previews))
			})

			r.Post("/visualizations/render", api.RenderVisualization())
			r.Post("/tables/view", api.TableView())
			r.Post("/drilldown", api.Drilldown(expander))

			r.Route("/filters", func(r chi.Router) {
				r.Post("/validate", api.ValidateFilters())
				r.Post("/options", api.FilterOptions(loader))
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/", api.ListReports(reports))
				r.Post("/", api.CreateReport(reports))
				r.Post("/validate", api.ValidateReport())
				r.Post("/fields", api.ReportFields())
				r.Post("/filters", api.AddReportFilter())
				r.Get("/{id}", api.GetReport(reports))
				r.Put("/{id}", api.UpdateReport(reports))
			})

			r.Route("/dashboards", func(r chi.Router) {
				r.Get("/", api.ListDashboards(dashboards))
				r.Post("/", api.CreateDashboard(dashboards))
				r.Get("/{id}", api.GetDashboard(dashboards))
				r.Put("/{id}", api.UpdateDashboard(dashboards))
				r.Delete("/{id}", api.DeleteDashboard(dashboards))
				r.Post("/{id}/favorite", api.SetFavorite(dashboards, true))
				r.Delete("/{id}/favorite", api.SetFavorite(dashboards, false))
				r.Post("/{id}/render", api.RenderDashboard(dashboards))
			})

			r.Get("/export/formats", exportHandler.GetExportFormats)
			r.Post("/export", exportHandler.Export)
		})
	})

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutting down server...")
		stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
		close(done)
	}()

	log.Info().
		Str("port", cfg.Server.Port).
		Str("executor", cfg.Preview.Executor).
		Str("cache", cfg.Cache.Backend).
		Msg("Server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server failed to start")
	}

	<-done
	log.Info().Msg("Server stopped")
}

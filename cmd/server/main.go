package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/odilbek/timeclock/internal/admin"
	"github.com/odilbek/timeclock/internal/auth"
	"github.com/odilbek/timeclock/internal/config"
	"github.com/odilbek/timeclock/internal/database"
	"github.com/odilbek/timeclock/internal/health"
	"github.com/odilbek/timeclock/internal/logging"
	"github.com/odilbek/timeclock/internal/store"
	"github.com/odilbek/timeclock/internal/timeclock"
	"github.com/odilbek/timeclock/internal/timelogs"
	"github.com/odilbek/timeclock/internal/webhook"
	"github.com/odilbek/timeclock/internal/worker"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		slog.Warn("Invalid timezone, using UTC", "timezone", cfg.Timezone, "error", err)
		loc = time.UTC
	}

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Database init failed", "error", err.Error())
		os.Exit(1)
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		slog.Error("Migrations failed", "error", err.Error())
		os.Exit(1)
	}

	if cfg.Env == "development" {
		if err := database.SeedDevData(db); err != nil {
			slog.Error("Seeding failed", "error", err.Error())
			os.Exit(1)
		}
	}

	st := store.New(db, loc)

	engine, err := timeclock.NewEngine(loc, cfg.WorkdayStart, cfg.BreakLimitSeconds)
	if err != nil {
		slog.Error("Engine init failed", "error", err.Error())
		os.Exit(1)
	}

	webhookClient := webhook.NewClient(cfg.WebhookBaseURL, loc, cfg.WebhookStub)

	if err := worker.InitClient(cfg.RedisURL); err != nil {
		slog.Error("Task client init failed", "error", err.Error())
		os.Exit(1)
	}
	defer worker.CloseClient()

	svc := timeclock.NewService(engine, st, worker.QueueDispatcher{}, logger)

	// Embedded worker: webhook deliveries and the break monitor run in this
	// process so they share the engine's notification dedup set.
	stopWorker, err := worker.Start(cfg, st, svc, webhookClient)
	if err != nil {
		slog.Error("Worker start failed", "error", err.Error())
		os.Exit(1)
	}
	defer stopWorker()

	stopScheduler, err := worker.StartScheduler(cfg)
	if err != nil {
		slog.Error("Scheduler start failed", "error", err.Error())
		os.Exit(1)
	}
	defer stopScheduler()

	auth.InitProviders(cfg)

	router := newRouter(cfg, st, engine, svc)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err.Error())
	}
}

func newRouter(cfg *config.Config, st *store.Store, engine *timeclock.Engine, svc *timeclock.Service) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   cfg.Env == "production",
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions("timeclock_session", sessionStore))

	router.GET("/health", gin.WrapF(health.Handler))

	router.POST("/auth/login", auth.HandleLogin(st))
	router.POST("/auth/logout", auth.HandleLogout)
	router.GET("/auth/google", auth.HandleOAuthLogin)
	router.GET("/auth/google/callback", auth.HandleOAuthCallback(st))

	api := router.Group("/api", auth.RequireAuth(st))
	{
		api.GET("/me", timelogs.HandleMe(engine))
		api.POST("/time/:action", timelogs.HandleAction(svc))
		api.GET("/time/logs", timelogs.HandleMyLogs(st))
	}

	adminAPI := router.Group("/api/admin", auth.RequireAuth(st), auth.RequireAdmin())
	{
		adminAPI.GET("/users", admin.HandleListUsers(st, engine))
		adminAPI.PATCH("/users/:id", admin.HandleUpdateUser(st))
		adminAPI.DELETE("/users/:id", admin.HandleDeleteUser(st))
		adminAPI.POST("/users/:id/password", admin.HandleResetPassword(st))
		adminAPI.GET("/stats", admin.HandleStats(st))
		adminAPI.GET("/logs", admin.HandleAllLogs(st))
		adminAPI.GET("/notifications", admin.HandleListNotifications(st))
		adminAPI.POST("/impersonate/:id", admin.HandleImpersonate(st))
		adminAPI.DELETE("/impersonate", admin.HandleExitImpersonation)
	}

	return router
}

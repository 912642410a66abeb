package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mundotango/citygroups/config"
	"github.com/mundotango/citygroups/internal/citygroups"
	"github.com/mundotango/citygroups/internal/compliance"
	"github.com/mundotango/citygroups/internal/handlers"
	"github.com/mundotango/citygroups/internal/middleware"
	"github.com/mundotango/citygroups/internal/repositories"
)

const shutdownTimeout = 15 * time.Second

// Dependencies are the collaborators the router hands to handlers. Auditor
// may be nil when compliance auditing is disabled.
type Dependencies struct {
	DB         *gorm.DB
	CityGroups *citygroups.Service
	Auditor    *compliance.Auditor
	Logger     *zap.Logger
	JWTSecret  string
}

func Start(cfg *config.Config, logger *zap.Logger) error {
	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := Dependencies{
		DB:         db,
		CityGroups: citygroups.NewService(repositories.NewGroupRepository(db), logger),
		Logger:     logger,
		JWTSecret:  cfg.JWTSecret,
	}

	if cfg.ComplianceEnabled {
		auditor, stopWatch, err := StartAuditor(ctx, db, cfg, logger)
		if err != nil {
			return err
		}
		defer auditor.Stop()
		defer stopWatch()
		deps.Auditor = auditor
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      NewRouter(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// StartAuditor builds the compliance auditor from cfg, starts its schedule
// and, when a rules file is configured, watches it for changes.
func StartAuditor(ctx context.Context, db *gorm.DB, cfg *config.Config, logger *zap.Logger) (*compliance.Auditor, func(), error) {
	auditor, err := NewAuditor(db, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := auditor.Start(ctx); err != nil {
		return nil, nil, err
	}

	stopWatch := func() {}
	if cfg.ComplianceRulesPath != "" {
		stopWatch, err = compliance.WatchRules(cfg.ComplianceRulesPath, auditor, logger)
		if err != nil {
			logger.Warn("compliance rules watcher unavailable (hot-reload disabled)", zap.Error(err))
			stopWatch = func() {}
		}
	}
	return auditor, stopWatch, nil
}

func NewAuditor(db *gorm.DB, cfg *config.Config, logger *zap.Logger) (*compliance.Auditor, error) {
	rules := compliance.DefaultRules()
	if cfg.ComplianceRulesPath != "" {
		loaded, err := compliance.LoadRules(cfg.ComplianceRulesPath)
		if err != nil {
			return nil, err
		}
		rules = loaded
	}

	scorer := compliance.NewDatabaseScorer(db, compliance.ProbeConfig{JWTSecret: cfg.JWTSecret})
	return compliance.NewAuditor(scorer, repositories.NewComplianceAuditRepository(db), logger,
		compliance.WithInterval(cfg.ComplianceInterval),
		compliance.WithRules(rules),
	), nil
}

func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(deps.Logger))

	setupRoutes(r, deps)
	return r
}

func setupRoutes(r *gin.Engine, deps Dependencies) {
	r.Use(middleware.DatabaseMiddleware(deps.DB))
	r.Use(middleware.CityGroupsMiddleware(deps.CityGroups))
	if deps.Auditor != nil {
		r.Use(middleware.ComplianceMiddleware(deps.Auditor))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := r.Group("/v1")
	{
		public.POST("/register", handlers.Register)
		public.POST("/login", handlers.Login)

		eventPublic := public.Group("/events")
		{
			eventPublic.GET("", handlers.ListEvents)
			eventPublic.GET("/:id", handlers.GetEvent)
		}

		groupPublic := public.Group("/groups")
		{
			groupPublic.GET("", handlers.ListCityGroups)
			groupPublic.GET("/:id", handlers.GetGroup)
			groupPublic.GET("/:id/events", handlers.GetGroupEvents)
			groupPublic.GET("/slug/:slug", handlers.GetGroupBySlug)
		}

		public.GET("/city-groups/resolve", handlers.ResolveCityGroup)
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware(deps.JWTSecret))
	{
		protected.GET("/profile", handlers.GetProfile)
		protected.POST("/me/city-group", handlers.JoinCityGroup)

		eventProtected := protected.Group("/events")
		{
			eventProtected.POST("", handlers.CreateEvent)
			eventProtected.DELETE("/:id", handlers.DeleteEvent)
			eventProtected.POST("/:id/city-group", handlers.AssignEventCityGroup)
		}

		groupProtected := protected.Group("/groups")
		{
			groupProtected.POST("/:id/events", handlers.AssignEventToGroup)
			groupProtected.DELETE("/:id/events/:eventId", handlers.RemoveEventFromGroup)
		}

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/compliance/status", handlers.GetComplianceStatus)
			admin.GET("/compliance/history", handlers.GetComplianceHistory)
			admin.POST("/compliance/refresh", handlers.RefreshCompliance)
		}
	}
}

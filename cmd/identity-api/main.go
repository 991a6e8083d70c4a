package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/stemkit-identity/api/swagger"
	"github.com/noah-isme/stemkit-identity/internal/handler"
	internalmiddleware "github.com/noah-isme/stemkit-identity/internal/middleware"
	"github.com/noah-isme/stemkit-identity/internal/models"
	"github.com/noah-isme/stemkit-identity/internal/repository"
	"github.com/noah-isme/stemkit-identity/internal/service"
	"github.com/noah-isme/stemkit-identity/pkg/cache"
	"github.com/noah-isme/stemkit-identity/pkg/config"
	"github.com/noah-isme/stemkit-identity/pkg/database"
	"github.com/noah-isme/stemkit-identity/pkg/jobs"
	"github.com/noah-isme/stemkit-identity/pkg/logger"
	corsmiddleware "github.com/noah-isme/stemkit-identity/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/stemkit-identity/pkg/middleware/requestid"
)

// @title StemKit Identity API
// @version 1.0.0
// @description Account registration, authentication and session lifecycle
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, user status cache disabled", zap.Error(err))
		redisClient = nil
	}
	statusCache := repository.NewStatusCacheRepository(redisClient)
	defer statusCache.Close() //nolint:errcheck

	hasher, err := service.NewPasswordHasher(cfg.Password.BcryptCost)
	if err != nil {
		logr.Fatal("invalid password hashing config", zap.Error(err))
	}
	signer, err := service.NewTokenSigner(service.TokenSignerConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		TTL:      cfg.JWT.Expiration,
	}, nil)
	if err != nil {
		logr.Fatal("invalid token signing config", zap.Error(err))
	}

	txManager := repository.NewTxManager(db)
	runner := service.NewSQLTxRunner(txManager)
	stores := service.SQLStores(db)

	metrics := service.NewMetricsService()
	audit := service.NewAuditService(repository.NewAuditRepository(db), jobs.QueueConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: 2,
		RetryDelay: 500 * time.Millisecond,
	}, logr)
	audit.Start(context.Background())
	defer audit.Stop()

	statusTTL := cfg.Redis.StatusCacheTTL
	if redisClient == nil {
		statusTTL = 0
	}
	components := service.Components{
		Stores:      stores,
		Runner:      runner,
		Hasher:      hasher,
		Signer:      signer,
		Ledger:      service.NewRefreshTokenLedger(stores.RefreshTokens, runner, cfg.JWT.RefreshExpiration, nil),
		Permissions: service.NewPermissionService(stores.Permissions, logr, nil),
		Status:      service.NewUserStatusService(stores.Users, statusCache, statusTTL, metrics, logr),
		Audit:       audit,
		Metrics:     metrics,
	}

	validate := validator.New()
	authServices := handler.AuthServices{
		Registration: service.NewRegistrationService(components, validate, logr),
		Login:        service.NewAuthService(components, validate, logr),
		Sessions:     service.NewSessionService(components, logr),
		Permissions:  components.Permissions,
	}
	termination := service.NewTerminationService(components, cfg.Session.LogoutMode, logr)
	authServices.Termination = termination

	if cfg.ExternalAuth.Enabled {
		verifier, err := service.NewOIDCVerifier(ctx, cfg.ExternalAuth.Provider, cfg.ExternalAuth.Issuer, cfg.ExternalAuth.ClientID)
		if err != nil {
			logr.Fatal("failed to initialise external identity provider", zap.Error(err))
		}
		authServices.External = service.NewExternalIdentityService(components, verifier, logr)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	authHandler := handler.NewAuthHandler(authServices)
	adminHandler := handler.NewUserAdminHandler(termination)

	authenticated := []gin.HandlerFunc{
		internalmiddleware.JWT(signer),
		internalmiddleware.ActiveUser(components.Status),
	}

	api := r.Group(cfg.APIPrefix + "/v1")
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/login-external", authHandler.LoginExternal)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout)

	me := auth.Group("/me", authenticated...)
	me.GET("", authHandler.Me)
	me.GET("/permissions", authHandler.MyPermissions)

	admin := api.Group("/admin", authenticated...)
	admin.Use(internalmiddleware.RequireRoles(models.RoleManager, models.RoleAdmin))
	admin.POST("/users/:id/ban", adminHandler.Ban)
	admin.POST("/users/:id/unban", adminHandler.Unban)
	admin.GET("/metrics", internalmiddleware.RequirePermission(components.Permissions, models.RoleManager), metricsHandler.Summary)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

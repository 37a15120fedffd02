// Package main provides the entry point for the Kusanagi helpdesk API server
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/Kusanagi/app/handlers"
	"github.com/amirphl/Kusanagi/app/middleware"
	"github.com/amirphl/Kusanagi/app/router"
	"github.com/amirphl/Kusanagi/app/services"
	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/config"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application holds the wired application components
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	utils.SetupLogger(
		cfg.Logging.FilePath,
		cfg.Logging.MaxSize,
		cfg.Logging.MaxBackups,
		cfg.Logging.MaxAge,
		cfg.Logging.Compress,
	)

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Starting helpdesk API server on %s", address)
		serverErr <- app.router.Start(address)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-quit:
		log.Printf("Received signal %v, shutting down", sig)
	}

	for _, stop := range app.stopFuncs {
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := app.router.GetApp().ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase opens the postgres connection and configures pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// initializeCache connects to redis when caching is enabled
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.RedisDB != 0 {
		opt.DB = cfg.RedisDB
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// startCacheHealthMonitor pings redis on an interval and logs failures.
// The returned func stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
				if err := client.Ping(pingCtx).Err(); err != nil {
					log.Printf("Cache health check failed: %v", err)
				}
				pingCancel()
			}
		}
	}()

	return cancel
}

// initializeApplication wires repositories, services, flows, handlers and the router
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := models.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	var stopFuncs []func()

	cache, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), cache, time.Minute))
		stopFuncs = append(stopFuncs, func() {
			if err := cache.Close(); err != nil {
				log.Printf("Failed to close redis client: %v", err)
			}
		})
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewUserSessionRepository(db)
	resetTokenRepo := repository.NewPasswordResetTokenRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	chatSessionRepo := repository.NewChatSessionRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Services
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
		cache,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	notificationSvc := services.NewNotificationService(
		services.NewMockEmailProvider(),
		cfg.Email.ResetURLBase,
	)

	// Business flows
	signupFlow := businessflow.NewSignupFlow(userRepo, auditRepo, db)
	loginFlow := businessflow.NewLoginFlow(userRepo, sessionRepo, resetTokenRepo, auditRepo, tokenService, notificationSvc, db)
	userFlow := businessflow.NewUserFlow(userRepo, auditRepo, db)
	ticketFlow := businessflow.NewTicketFlow(ticketRepo, userRepo, auditRepo, notificationSvc, db)
	chatFlow := businessflow.NewChatSessionFlow(chatSessionRepo, ticketRepo, userRepo, auditRepo, db)
	messageFlow := businessflow.NewMessageFlow(messageRepo, chatSessionRepo, ticketRepo, auditRepo, db)

	// Handlers
	authHandler := handlers.NewAuthHandler(signupFlow, loginFlow)
	userHandler := handlers.NewUserHandler(userFlow)
	ticketHandler := handlers.NewTicketHandler(ticketFlow)
	chatHandler := handlers.NewChatHandler(chatFlow)
	messageHandler := handlers.NewMessageHandler(messageFlow)

	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	r := router.NewFiberRouter(
		authMiddleware,
		authHandler,
		userHandler,
		ticketHandler,
		chatHandler,
		messageHandler,
		cfg.Security.AllowedOrigins,
	)

	return &Application{
		router:    r,
		config:    cfg,
		stopFuncs: stopFuncs,
	}, nil
}

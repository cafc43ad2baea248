package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/institute-portal/pkg/auth"
	"github.com/diagnosis/institute-portal/pkg/cache"
	"github.com/diagnosis/institute-portal/pkg/config"
	"github.com/diagnosis/institute-portal/pkg/database"
	"github.com/diagnosis/institute-portal/pkg/events"
	"github.com/diagnosis/institute-portal/pkg/logger"
	"github.com/diagnosis/institute-portal/pkg/mailer"
	mw "github.com/diagnosis/institute-portal/pkg/middleware"
	"github.com/diagnosis/institute-portal/services/portal/internal/gateway"
	"github.com/diagnosis/institute-portal/services/portal/internal/handlers"
	"github.com/diagnosis/institute-portal/services/portal/internal/repository"
	"github.com/diagnosis/institute-portal/services/portal/internal/service"
)

func main() {
	cfg := config.Load()
	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	client, err := database.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.ConnectTimeout)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}()

	db := client.Database(cfg.Mongo.Database)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		logger.Error("Failed to ensure indexes", "error", err)
		os.Exit(1)
	}

	// Redis is optional
	var (
		throttle  service.Throttle
		limiter   mw.Limiter
		idemStore mw.IdempotencyStore
	)
	redisClient, err := cache.Connect(ctx, cfg.Redis)
	if err != nil {
		logger.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		rl := cache.NewRateLimiter(redisClient)
		throttle = rl
		limiter = rl
		idemStore = cache.NewIdempotencyStore(redisClient)
	} else {
		logger.Warn("REDIS_URL not set, idempotency and rate limiting disabled")
	}

	// Connect to event bus
	var eventBus events.Publisher = events.NopBus{}
	if cfg.NATS.URL != "" {
		bus, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		eventBus = bus
	}
	defer eventBus.Close()

	mail, err := mailer.New(cfg)
	if err != nil {
		logger.Error("Failed to configure mailer", "error", err)
		os.Exit(1)
	}

	gw, err := gateway.New(cfg.Payments)
	if err != nil {
		logger.Error("Failed to configure payment gateway", "error", err)
		os.Exit(1)
	}

	tokens := auth.NewIssuer(auth.Options{
		Secret:               cfg.Auth.JWTSecret,
		Audience:             cfg.Auth.Audience,
		SessionTTL:           cfg.Auth.SessionTTL,
		PendingChallengeTTL:  cfg.Auth.PendingChallengeTTL,
		VerifiedChallengeTTL: cfg.Auth.VerifiedChallengeTTL,
	})

	// Initialize repositories
	userRepo := repository.NewUserRepository(db, cfg.Mongo.QueryTimeout)
	otpRepo := repository.NewOTPRepository(db, cfg.Mongo.QueryTimeout)
	studentRepo := repository.NewStudentRepository(db, cfg.Mongo.QueryTimeout)
	notificationRepo := repository.NewNotificationRepository(db, cfg.Mongo.QueryTimeout)
	facultyRepo := repository.NewFacultyRepository(db, cfg.Mongo.QueryTimeout)

	// Initialize services
	otpService := service.NewOTPService(userRepo, otpRepo, mail, eventBus, throttle, cfg)
	authService := service.NewAuthService(userRepo, otpService, service.NewPasswordHasher(cfg.Password), tokens)
	feesService := service.NewFeesService(studentRepo, gw, eventBus, cfg)
	messageService := service.NewMessageService(studentRepo, notificationRepo, mail, eventBus, cfg)
	academicService := service.NewAcademicService(studentRepo, facultyRepo)

	h := handlers.New(authService, feesService, messageService, academicService, tokens, cfg)

	// Setup router
	r := chi.NewRouter()

	r.Use(mw.Recover)
	if cfg.Server.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("portal"))
	r.Use(mw.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Portal.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", handlers.TokenHeader, "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Idempotent-Replayed"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.Health)

	h.Routes(r, handlers.Middlewares{
		Idempotent: mw.IdempotencyMiddleware(idemStore, handlers.TokenHeader),
		Throttled: mw.RateLimit(limiter, mw.RateLimitConfig{
			Requests: cfg.Auth.CredentialRateLimit,
			Window:   cfg.Auth.CredentialRateWindow,
			Scope:    "credentials",
		}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting portal service", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down portal service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Portal service error", "error", err)
		os.Exit(1)
	}
}

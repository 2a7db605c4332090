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

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"eventgate/config"
	"eventgate/internal/adapters/auth"
	"eventgate/internal/adapters/email"
	"eventgate/internal/adapters/payments"
	"eventgate/internal/adapters/token"
	delivery "eventgate/internal/delivery/http"
	"eventgate/internal/delivery/http/controllers"
	"eventgate/internal/delivery/http/middleware"
	pgrepo "eventgate/internal/repository/postgres"
	"eventgate/internal/services"
)

// @title EventGate API
// @version 1.0
// @description Event registration, payment, and attendance check-in service.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger := config.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "err", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("failed to parse redis url", "err", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	// Repositories
	eventRepo := pgrepo.NewEventRepository(db)
	attendanceRepo := pgrepo.NewAttendanceRepository(db)
	paymentRepo := pgrepo.NewPaymentRepository(db)
	userRepo := pgrepo.NewUserRepository(db)

	// Adapters
	tokenIssuer := token.NewIssuer()
	sessionIssuer := auth.NewJWTIssuer(cfg.JWTSecret)
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)
	revocations := auth.NewRedisRevocationStore(redisClient)
	hasher := auth.NewBcryptHasher(12)
	gateway := payments.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.GatewayTimeout)
	mailer := email.NewMailer(email.MailerConfig{
		Provider:        cfg.EmailProvider,
		FromAddress:     cfg.EmailFrom,
		FromName:        cfg.EmailFromName,
		Region:          cfg.SESRegion,
		AccessKeyID:     cfg.SESAccessKey,
		SecretAccessKey: cfg.SESSecretKey,
	}, logger)
	renderer := email.NewTemplateRenderer()

	// Services
	emailSvc := services.NewEmailService(mailer, renderer, logger)
	paymentSvc := services.NewPaymentService(eventRepo, paymentRepo, attendanceRepo, userRepo, gateway, tokenIssuer, emailSvc, logger, cfg.PaymentExpiry)
	registrationSvc := services.NewRegistrationService(eventRepo, attendanceRepo, paymentRepo, userRepo, paymentSvc, tokenIssuer, emailSvc, logger)
	checkInSvc := services.NewCheckInService(eventRepo, attendanceRepo, tokenIssuer, cfg.CheckInTokenValidity)
	attendeeSvc := services.NewAttendeeService(eventRepo, attendanceRepo)
	authSvc := services.NewAuthService(userRepo, hasher, sessionIssuer, revocations, cfg.SessionExpiry)

	// Controllers
	authController := controllers.NewAuthController(logger, authSvc)
	registrationController := controllers.NewRegistrationController(logger, registrationSvc)
	paymentController := controllers.NewPaymentController(logger, paymentSvc, cfg.WebhookSecret)
	checkInController := controllers.NewCheckInController(logger, checkInSvc)
	attendeeController := controllers.NewAttendeeController(logger, attendeeSvc)

	mux := delivery.NewRouter(logger, verifier, revocations,
		authController, registrationController, paymentController, checkInController, attendeeController)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: middleware.LoggingMiddleware(logger, mux),
	}

	go func() {
		logger.Info("server started", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
	logger.Info("server stopped")
}

package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventgate/internal/delivery/http/controllers"
	"eventgate/internal/delivery/http/middleware"
	"eventgate/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes.
func NewRouter(
	logger *slog.Logger,
	verifier domain.TokenVerifier,
	revocations domain.TokenRevocationStore,
	authController *controllers.AuthController,
	registrationController *controllers.RegistrationController,
	paymentController *controllers.PaymentController,
	checkInController *controllers.CheckInController,
	attendeeController *controllers.AttendeeController,
) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, revocations, logger)

	// Auth
	mux.HandleFunc("POST /auth/signup", authController.SignUp)
	mux.HandleFunc("POST /auth/login", authController.Login)
	mux.HandleFunc("POST /auth/logout", auth(authController.Logout))

	// Registration and check-in
	mux.HandleFunc("POST /events/{eventID}/registrations", auth(registrationController.Register))
	mux.HandleFunc("POST /events/{eventID}/checkin", auth(checkInController.CheckIn))

	// Payments. The webhook authenticates with the shared secret, not a user session.
	mux.HandleFunc("POST /payments", auth(paymentController.CreatePayment))
	mux.HandleFunc("GET /payments/{paymentID}", auth(paymentController.GetPaymentStatus))
	mux.HandleFunc("POST /payments/webhook", paymentController.Webhook)

	// Attendee views
	mux.HandleFunc("GET /attendee/events", auth(attendeeController.ListActive))
	mux.HandleFunc("GET /attendee/history", auth(attendeeController.ListHistory))

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

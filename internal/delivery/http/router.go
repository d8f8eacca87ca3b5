package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventcheckin/internal/delivery/http/controllers"
	"eventcheckin/internal/delivery/http/middleware"
	"eventcheckin/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(
	authController *controllers.AuthController,
	memberController *controllers.MemberController,
	verifier domain.TokenVerifier,
	members domain.MemberRepository,
	logger *slog.Logger,
) *http.ServeMux {
	mux := http.NewServeMux()

	requireAuth := middleware.RequireAuth(verifier, logger)
	requireAdmin := middleware.RequireAdmin(members, logger)

	// Sign-in lifecycle
	mux.HandleFunc("GET /auth/signin", authController.SignIn)
	mux.HandleFunc("GET /auth/callback", authController.Callback)
	mux.HandleFunc("POST /auth/token", authController.TokenSignIn)
	mux.HandleFunc("GET /auth/me", requireAuth(authController.Me))
	mux.HandleFunc("DELETE /auth/session", requireAuth(authController.SignOut))

	// Roster, admin only
	mux.HandleFunc("GET /members", requireAuth(requireAdmin(memberController.List)))
	mux.HandleFunc("GET /members/stats", requireAuth(requireAdmin(memberController.Stats)))
	mux.HandleFunc("POST /members/{memberID}/checkin", requireAuth(requireAdmin(memberController.CheckIn)))
	mux.HandleFunc("PATCH /members/{memberID}/role", requireAuth(requireAdmin(memberController.UpdateRole)))
	mux.HandleFunc("POST /members/preregister", requireAuth(requireAdmin(memberController.PreRegister)))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-confirm-api/internal/application/account"
	"github.com/go-confirm-api/internal/application/confirm"
	"github.com/go-confirm-api/internal/config"
	"github.com/go-confirm-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-confirm-api/internal/infrastructure/jwt"
	"github.com/go-confirm-api/internal/infrastructure/notify"
	"github.com/go-confirm-api/internal/transport/http/handler"
	appmiddleware "github.com/go-confirm-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         *dynamo.UserRepo
	EmailConfirmRepo *dynamo.ConfirmationRepo
	PhoneConfirmRepo *dynamo.ConfirmationRepo
	AccountWriter    *dynamo.AccountWriter
	Notifier         notify.Notifier
	JWTProvider      *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to the code-sending and
	// credential endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	confirmSvc := confirm.NewService(confirm.ServiceDeps{
		EmailStore: deps.EmailConfirmRepo,
		PhoneStore: deps.PhoneConfirmRepo,
		UserRepo:   deps.UserRepo,
		Config:     cfg.Confirm,
	})
	accountSvc := account.NewService(account.ServiceDeps{
		ConfirmService: confirmSvc,
		EmailCleaner:   deps.EmailConfirmRepo,
		PhoneCleaner:   deps.PhoneConfirmRepo,
		UserRepo:       deps.UserRepo,
		Writer:         deps.AccountWriter,
		TokenIssuer:    deps.JWTProvider,
	})

	healthH := handler.NewHealthHandler()
	confirmH := handler.NewConfirmHandler(confirmSvc, deps.Notifier)
	userH := handler.NewUserHandler(accountSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)

		r.With(sensitiveRL.Limit).Post("/confirm/email/create", confirmH.CreateEmail)
		r.With(sensitiveRL.Limit).Post("/confirm/phone/create", confirmH.CreatePhone)
		r.With(sensitiveRL.Limit).Post("/confirm", confirmH.Confirm)

		r.With(sensitiveRL.Limit).Post("/user/registration", userH.Register)
		r.With(sensitiveRL.Limit).Post("/user/login/email", userH.LoginByEmail)
		r.With(sensitiveRL.Limit).Post("/user/login/phone", userH.LoginByPhone)
		r.With(sensitiveRL.Limit).Patch("/user/password/confirm", userH.ChangePasswordByConfirm)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Patch("/user/password", userH.ChangePassword)
			r.Patch("/user/email-or-phone", userH.ChangeEmailOrPhone)
		})
	})

	return r
}

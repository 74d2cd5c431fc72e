package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	categoryapp "github.com/notes-api-nosql/internal/application/category"
	fileapp "github.com/notes-api-nosql/internal/application/file"
	mfaapp "github.com/notes-api-nosql/internal/application/mfa"
	noteapp "github.com/notes-api-nosql/internal/application/note"
	"github.com/notes-api-nosql/internal/application/session"
	"github.com/notes-api-nosql/internal/application/user"
	"github.com/notes-api-nosql/internal/config"
	"github.com/notes-api-nosql/internal/domain"
	"github.com/notes-api-nosql/internal/infrastructure/dynamo"
	jwtinfra "github.com/notes-api-nosql/internal/infrastructure/jwt"
	s3infra "github.com/notes-api-nosql/internal/infrastructure/s3"
	"github.com/notes-api-nosql/internal/infrastructure/smtp"
	"github.com/notes-api-nosql/internal/infrastructure/sns"
	"github.com/notes-api-nosql/internal/transport/http/handler"
	appmiddleware "github.com/notes-api-nosql/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo          *dynamo.UserRepo
	SessionRepo       *dynamo.SessionRepo
	NoteRepo          *dynamo.NoteRepo
	CategoryRepo      *dynamo.CategoryRepo
	FileRepo          *dynamo.FileRepo
	MFACredentialRepo *dynamo.MFACredentialRepo
	MFAChallengeRepo  *dynamo.MFAChallengeRepo
	S3Store           *s3infra.Store
	Mailer            smtp.Mailer
	SMSSender         sns.SMSSender
	JWTProvider       *jwtinfra.Provider
	MFAEncryptionKey  []byte
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
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

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	mfaSvc := mfaapp.NewService(mfaapp.ServiceDeps{
		CredentialRepo:    deps.MFACredentialRepo,
		UserRepo:          deps.UserRepo,
		Mailer:            deps.Mailer,
		SMSSender:         deps.SMSSender,
		EncryptionKey:     deps.MFAEncryptionKey,
		BackupCodeContext: cfg.MFABackupCodeContext,
		Issuer:            cfg.MFAIssuer,
	})
	sessionSvc := session.NewService(session.ServiceDeps{
		UserRepo:        deps.UserRepo,
		SessionRepo:     deps.SessionRepo,
		ChallengeRepo:   deps.MFAChallengeRepo,
		MFA:             mfaSvc,
		JWTProvider:     deps.JWTProvider,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	})
	userSvc := user.NewService(user.ServiceDeps{
		UserRepo:        deps.UserRepo,
		SessionRepo:     deps.SessionRepo,
		JWTProvider:     deps.JWTProvider,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	})
	noteSvc := noteapp.NewService(deps.NoteRepo, deps.CategoryRepo)
	categorySvc := categoryapp.NewService(deps.CategoryRepo, deps.NoteRepo)
	fileSvc := fileapp.NewService(deps.S3Store, deps.FileRepo, deps.NoteRepo)

	healthH := handler.NewHealthHandler()
	sessionH := handler.NewSessionHandler(sessionSvc)
	userH := handler.NewUserHandler(userSvc)
	mfaH := handler.NewMFAHandler(mfaSvc)
	noteH := handler.NewNoteHandler(noteSvc)
	categoryH := handler.NewCategoryHandler(categorySvc)
	fileH := handler.NewFileHandler(fileSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.With(sensitiveRL.Limit).Post("/sessions/mfa", sessionH.CompleteMFA)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.With(sensitiveRL.Limit).Post("/users", userH.Register)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)

			r.Get("/users/{id}", userH.Get)
			r.Put("/users/{id}", userH.Update)
			r.Post("/users/change-password", userH.ChangePassword)

			r.Route("/mfa", func(r chi.Router) {
				r.Get("/", mfaH.Status)
				r.Get("/status", mfaH.Status)
				r.Post("/setup", mfaH.Setup)
				r.Get("/setup/qr", mfaH.SetupQR)
				r.Post("/enable", mfaH.Enable)
				r.Post("/disable", mfaH.Disable)
				r.Post("/backup-codes", mfaH.RegenerateBackupCodes)
			})

			r.Route("/notes", func(r chi.Router) {
				r.Get("/", noteH.List)
				r.Post("/", noteH.Create)
				r.Get("/{id}", noteH.Get)
				r.Put("/{id}", noteH.Update)
				r.Delete("/{id}", noteH.Delete)
				r.Get("/{id}/files", fileH.ListByNote)
				r.Post("/{id}/files", fileH.Upload)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", categoryH.List)
				r.Post("/", categoryH.Create)
				r.Put("/{id}", categoryH.Update)
				r.Delete("/{id}", categoryH.Delete)
			})

			r.Route("/files", func(r chi.Router) {
				r.Get("/{id}", fileH.Download)
				r.Get("/{id}/url", fileH.DownloadURL)
				r.Delete("/{id}", fileH.Delete)
			})

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Delete("/users/{id}", userH.Delete)
			})
		})
	})

	return r
}

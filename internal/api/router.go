package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"ideias/internal/auth"
	"ideias/internal/blob"
	"ideias/internal/config"
	"ideias/internal/constants"
	"ideias/internal/db"
	"ideias/internal/ideas"
	"ideias/internal/seed"
	"ideias/internal/session"
	"ideias/internal/ws"
)

const maxJSONBodyBytes = 1 << 20 // 1 MB

// Deps are the services the HTTP layer is built on. Seeder is nil unless
// admin seeding is enabled; Redis is nil unless sessions live in Redis.
type Deps struct {
	Config   *config.Config
	DB       *db.DB
	Auth     *auth.Service
	Sessions *session.Manager
	Ideas    *ideas.Service
	Blobs    *blob.Service
	Hub      *ws.Hub
	Seeder   *seed.Seeder
	Redis    Pinger
}

type Server struct {
	router *chi.Mux
	config *config.Config
}

func NewServer(deps Deps) (*Server, error) {
	cfg := deps.Config

	ipResolver, err := NewClientIPResolver(cfg.Server.TrustedProxyCIDRs)
	if err != nil {
		return nil, fmt.Errorf("configuring client IP resolver: %w", err)
	}

	authHandler := NewAuthHandler(deps.Auth, deps.Sessions, ipResolver)
	ideaHandler := NewIdeaHandler(deps.Ideas)
	userHandler := NewUserHandler(db.NewUserRepository(deps.DB), deps.Sessions, deps.Blobs)
	boardHandler := NewBoardHandler(deps.Hub, cfg.Server.AllowedOrigins)
	healthHandler := NewHealthHandler(deps.DB, deps.Redis)

	sessionMiddleware := NewSessionMiddleware(deps.Sessions)
	requireAuth := sessionMiddleware.RequireAuth

	r := chi.NewRouter()
	r.Use(slogRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(cfg.Server.AllowedOrigins))
	r.Use(securityHeadersMiddleware)

	r.Get("/health", healthHandler.Check)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(sessionMiddleware.Load)

		r.Get("/health", healthHandler.Check)
		r.With(requireAuth).Get("/ws/board", boardHandler.ServeWS)

		// Photo uploads are capped by the blob service, not the JSON limit.
		r.With(requireAuth).Put("/users/me/photo", userHandler.UploadPhoto)
		r.Get("/users/photo", userHandler.GetPhoto)

		r.Group(func(r chi.Router) {
			r.Use(maxBodySizeMiddleware(maxJSONBodyBytes))

			r.Route("/auth", func(r chi.Router) {
				r.With(rateLimit(10, time.Minute, ipResolver)).Post("/signup", authHandler.Signup)
				r.With(rateLimit(10, time.Minute, ipResolver)).Post("/login", authHandler.Login)
				r.With(rateLimit(10, time.Minute, ipResolver)).Post("/google", authHandler.Google)
				r.With(rateLimit(20, time.Minute, ipResolver)).Get("/verify", authHandler.Verify)
				r.With(rateLimit(5, time.Minute, ipResolver)).Post("/request-reset", authHandler.RequestReset)
				r.With(rateLimit(10, time.Minute, ipResolver)).Post("/reset", authHandler.Reset)
				r.Post("/logout", authHandler.Logout)
				r.Get("/me", authHandler.Me)
			})

			r.Route("/campaigns", func(r chi.Router) {
				r.Get("/", ideaHandler.ListCampaigns)
				r.With(requireAuth).Post("/", ideaHandler.CreateCampaign)
			})

			r.Route("/ideas", func(r chi.Router) {
				r.Get("/", ideaHandler.ListIdeas)
				r.With(requireAuth).Post("/", ideaHandler.CreateIdea)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", ideaHandler.GetIdea)
					r.Get("/votes", ideaHandler.CountVotes)
					r.Get("/comments", ideaHandler.ListComments)

					r.Group(func(r chi.Router) {
						r.Use(requireAuth)
						r.Patch("/", ideaHandler.UpdateIdea)
						r.Post("/vote", ideaHandler.Vote)
						r.Post("/comments", ideaHandler.Comment)
						r.Post("/status", ideaHandler.UpdateStatus)
					})
				})
			})

			r.With(requireAuth).Get("/badges", ideaHandler.ListBadges)

			r.Route("/stats", func(r chi.Router) {
				r.Get("/leaderboard", ideaHandler.Leaderboard)
				r.With(requireAuth).Get("/dashboard", ideaHandler.Dashboard)
			})

			r.Get("/users/{id}", userHandler.GetUser)
			r.With(requireAuth).Post("/users/me/register", userHandler.SetRegister)

			if deps.Seeder != nil {
				adminHandler := NewAdminHandler(deps.Seeder)
				r.Post("/admin/seed", adminHandler.Seed)
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, constants.ErrCodeNotFound, "no endpoint matches the request")
	})

	return &Server{
		router: r,
		config: cfg,
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// corsMiddleware allows credentialed requests from loopback and configured
// origins so the session cookie travels with them.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			return originAllowed(origin, allowedOrigins)
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

func maxBodySizeMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"component", "api",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr,
		)
	})
}

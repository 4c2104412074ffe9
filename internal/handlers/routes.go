package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tvtracker/backend/internal/auth"
	"github.com/tvtracker/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Logger      *slog.Logger
	CORSOrigins []string

	Database  Pinger
	Users     UserStore
	Sessions  SessionManager
	Watches   WatchService
	Watchlist WatchlistService
	Stats     StatsEngine
	Groups    GroupService
	Avatars   AvatarUploader
}

// NewRouter builds the HTTP surface. Everything under /api except the auth
// endpoints requires a bearer access token.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	health := HealthHandler{Database: deps.Database}
	authH := AuthHandler{Users: deps.Users, Sessions: deps.Sessions}
	watch := WatchHandler{Watches: deps.Watches}
	watchlist := WatchlistHandler{Watchlist: deps.Watchlist}
	stats := StatsHandler{Engine: deps.Stats}
	groups := GroupHandler{Groups: deps.Groups, Avatars: deps.Avatars}
	chat := ChatHandler{Groups: deps.Groups}

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", health.Handle)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authH.SignUp)
			r.Post("/login", authH.Login)
			r.Post("/refresh", authH.Refresh)
			r.Post("/logout", authH.Logout)
			r.With(auth.RequireUser(deps.Sessions)).Get("/me", authH.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser(deps.Sessions))

			r.Route("/watch", func(r chi.Router) {
				r.Post("/", watch.Record)
				r.Get("/", watch.Recent)
				r.Get("/currently-watching", watch.CurrentlyWatching)
				r.Get("/progress/{tmdbId}", watch.Progress)
				r.Get("/check/{tmdbId}/{mediaType}", watch.Check)
				r.Delete("/remove", watch.RemoveByKey)
				r.Delete("/{id}", watch.RemoveByID)
			})

			r.Route("/watchlist", func(r chi.Router) {
				r.Post("/", watchlist.Add)
				r.Get("/", watchlist.List)
				r.Delete("/", watchlist.Remove)
				r.Get("/check/{tmdbId}/{mediaType}", watchlist.Check)
			})

			r.Get("/stats", stats.Get)

			r.Route("/groups", func(r chi.Router) {
				r.Post("/", groups.Create)
				r.Get("/", groups.List)
				r.Post("/avatars", groups.UploadAvatar)
				r.Post("/{id}/join", groups.Join)
				r.Get("/{id}/stats", groups.Stats)
			})

			r.Route("/chat", func(r chi.Router) {
				r.Post("/{groupId}", chat.Post)
				r.Get("/{groupId}", chat.List)
			})
		})
	})

	return r
}

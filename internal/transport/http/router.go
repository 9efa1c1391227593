package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"beomusic_backend/internal/handler"
	"beomusic_backend/internal/httputil"
	"beomusic_backend/internal/metrics"
	authmw "beomusic_backend/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes.
// AuthHandler and UserHandler are nil when identities come from Firebase Auth.
type RouterConfig struct {
	AuthHandler     *handler.AuthHandler
	UserHandler     *handler.UserHandler
	DeviceHandler   *handler.DeviceHandler
	CommentHandler  *handler.CommentHandler
	SessionHandler  *handler.SessionHandler
	AlbumHandler    *handler.AlbumHandler
	FavoriteHandler *handler.FavoriteHandler
	Verifier        authmw.TokenVerifier
	Logger          *logrus.Logger
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: cfg.Logger, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Public routes - local accounts only
	if cfg.AuthHandler != nil {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", cfg.AuthHandler.Register)
			r.Post("/login", cfg.AuthHandler.Login)
			r.Post("/refresh", cfg.AuthHandler.Refresh)
			r.Post("/logout", cfg.AuthHandler.Logout)
		})
	}

	// Comments are readable without signing in
	r.Get("/songs/{songId}/comments", cfg.CommentHandler.List)

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.Verifier))

		if cfg.AuthHandler != nil {
			r.Post("/auth/logout-all", cfg.AuthHandler.LogoutAll)
		}
		if cfg.UserHandler != nil {
			r.Get("/me", cfg.UserHandler.Me)
			r.Patch("/me", cfg.UserHandler.UpdateMe)
		}

		r.Post("/me/devices", cfg.DeviceHandler.Register)
		r.Delete("/me/devices", cfg.DeviceHandler.Unregister)

		r.Post("/songs/{songId}/comments", cfg.CommentHandler.Create)
		r.Delete("/comments/{commentId}", cfg.CommentHandler.Delete)

		r.Post("/songs/{songId}/comment-sessions", cfg.SessionHandler.Open)
		r.Route("/comment-sessions/{sessionId}", func(r chi.Router) {
			r.Get("/", cfg.SessionHandler.Get)
			r.Delete("/", cfg.SessionHandler.Close)
			r.Post("/more", cfg.SessionHandler.More)
			r.Post("/reset", cfg.SessionHandler.Reset)
		})

		r.Get("/me/albums", cfg.AlbumHandler.List)
		r.Post("/me/albums", cfg.AlbumHandler.Create)
		r.Route("/albums/{albumId}", func(r chi.Router) {
			r.Get("/", cfg.AlbumHandler.Get)
			r.Patch("/", cfg.AlbumHandler.Update)
			r.Delete("/", cfg.AlbumHandler.Delete)
			r.Get("/songs", cfg.AlbumHandler.Songs)
			r.Post("/songs", cfg.AlbumHandler.AddSong)
			r.Delete("/songs/{songId}", cfg.AlbumHandler.RemoveSong)
		})

		r.Get("/me/favorites", cfg.FavoriteHandler.List)
		r.Route("/me/favorites/{songId}", func(r chi.Router) {
			r.Get("/", cfg.FavoriteHandler.Status)
			r.Put("/", cfg.FavoriteHandler.Add)
			r.Delete("/", cfg.FavoriteHandler.Remove)
			r.Post("/toggle", cfg.FavoriteHandler.Toggle)
		})
	})

	return r
}

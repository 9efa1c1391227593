package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"beomusic_backend/internal/config"
	"beomusic_backend/internal/handler"
	"beomusic_backend/internal/repository"
	"beomusic_backend/internal/service"
	"beomusic_backend/internal/session"
	transport "beomusic_backend/internal/transport/http"
)

func newServeCmd() *cobra.Command {
	var withWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			router, err := a.router(ctx)
			if err != nil {
				return err
			}
			server := transport.NewServer(cfg.ServerPort, router, log)

			if !withWorker {
				return server.Run(ctx)
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return server.Run(gctx) })
			g.Go(func() error { return a.runWorker(gctx) })
			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&withWorker, "with-worker", false, "also run the notification worker in this process")
	return cmd
}

// router builds the services and handlers behind the HTTP API.
func (a *app) router(ctx context.Context) (chi.Router, error) {
	verifier, err := a.verifier(ctx)
	if err != nil {
		return nil, err
	}
	avatars, err := a.avatars(ctx)
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepository(a.db)
	deviceRepo := repository.NewDeviceTokenRepository(a.db)
	comments := a.commentStore()
	pages := a.assembler(comments)

	commentSvc := service.NewCommentService(
		comments,
		a.profileStore(userRepo),
		pages,
		a.publisher(),
		a.cfg.CommentPageSize,
		a.cfg.CommentMaxPageSize,
		a.log,
	)
	browser := session.NewBrowser(a.sessionStore(), pages, a.cfg.CommentPageSize, a.cfg.CommentMaxPageSize, a.log)
	library := service.NewLibraryService(repository.NewAlbumStore(a.docs), a.log)

	rc := transport.RouterConfig{
		DeviceHandler:   handler.NewDeviceHandler(service.NewDeviceService(deviceRepo, a.log), a.log),
		CommentHandler:  handler.NewCommentHandler(commentSvc, a.log),
		SessionHandler:  handler.NewSessionHandler(browser, a.log),
		AlbumHandler:    handler.NewAlbumHandler(library, a.log),
		FavoriteHandler: handler.NewFavoriteHandler(library, a.log),
		Verifier:        verifier,
		Logger:          a.log,
	}

	if a.cfg.AuthProvider == config.AuthProviderJWT {
		userSvc := service.NewUserService(userRepo, avatars, a.log)
		authSvc := service.NewAuthService(repository.NewRefreshTokenRepository(a.db), a.cfg, a.log)
		rc.AuthHandler = handler.NewAuthHandler(userSvc, authSvc, a.cfg, a.log)
		rc.UserHandler = handler.NewUserHandler(userSvc, a.log)
	}

	return transport.NewRouter(rc), nil
}

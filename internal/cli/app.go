package cli

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"beomusic_backend/internal/config"
	"beomusic_backend/internal/database"
	"beomusic_backend/internal/docstore"
	"beomusic_backend/internal/firebaseapp"
	"beomusic_backend/internal/model"
	"beomusic_backend/internal/pagination"
	"beomusic_backend/internal/queue"
	redisclient "beomusic_backend/internal/redis"
	"beomusic_backend/internal/repository"
	"beomusic_backend/internal/service"
	"beomusic_backend/internal/session"
	authmw "beomusic_backend/internal/transport/http/middleware"
)

// app holds the connections shared by the serve and worker commands.
type app struct {
	cfg *config.Config
	log *logrus.Logger

	db       *sqlx.DB
	redis    *redisclient.Client // nil without REDIS_URL
	firebase *firebase.App       // nil without Firebase credentials
	docs     docstore.Store

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}
	if err := a.open(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) open(ctx context.Context) error {
	cfg, log := a.cfg, a.log
	var err error

	a.db, err = database.Connect(cfg, log)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, a.db.Close)

	if cfg.RedisURL != "" {
		a.redis, err = redisclient.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, a.redis.Close)
		log.Info("Redis connected")
	} else {
		log.Warn("REDIS_URL not set: browse sessions stay in memory and comment notifications are off")
	}

	if cfg.FirebaseConfigured() {
		a.firebase, err = firebaseapp.NewApp(ctx, cfg, log)
		if err != nil {
			return err
		}
	}

	switch cfg.StoreBackend {
	case config.StoreFirestore:
		var client *firestore.Client
		client, err = a.firebase.Firestore(ctx)
		if err != nil {
			return fmt.Errorf("open firestore: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.docs = docstore.NewFirestoreStore(client)
	default:
		log.Warn("STORE_BACKEND=memory: comments are kept in process memory")
		a.docs = docstore.NewMemoryStore()
	}
	return nil
}

// Close releases connections in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithError(err).Warn("close failed")
		}
	}
	a.closers = nil
}

func (a *app) commentStore() repository.CommentStore {
	return repository.NewCommentStore(a.docs)
}

// profileStore reads profiles from the same place identities come from.
func (a *app) profileStore(users repository.UserRepository) repository.ProfileStore {
	if a.cfg.AuthProvider == config.AuthProviderFirebase {
		return repository.NewDocProfileStore(a.docs)
	}
	return repository.NewUserProfileStore(users)
}

func (a *app) publisher() queue.Publisher {
	if a.redis == nil {
		return nil
	}
	return queue.NewPublisher(a.redis.Client, a.log)
}

func (a *app) sessionStore() session.Store {
	if a.redis == nil {
		return session.NewMemoryStore(a.cfg.BrowseSessionTTL)
	}
	return session.NewRedisStore(a.redis.Client, a.cfg.BrowseSessionTTL)
}

func (a *app) assembler(comments repository.CommentStore) *pagination.Assembler {
	return pagination.NewAssembler(comments, a.log)
}

func (a *app) verifier(ctx context.Context) (authmw.TokenVerifier, error) {
	if a.cfg.AuthProvider != config.AuthProviderFirebase {
		return authmw.NewJWTVerifier(a.cfg.JWTSecret), nil
	}
	client, err := a.firebase.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("open firebase auth: %w", err)
	}
	return authmw.NewFirebaseVerifier(client), nil
}

// avatars returns nil when R2 is not configured.
func (a *app) avatars(ctx context.Context) (service.AvatarStorage, error) {
	media, err := service.NewMediaService(ctx, a.cfg, a.log)
	if errors.Is(err, model.ErrMediaDisabled) {
		a.log.Info("R2 not configured: avatar uploads disabled")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return media, nil
}

// pushSender returns nil when Firebase is not configured.
func (a *app) pushSender(ctx context.Context) (*service.FCMClient, error) {
	if a.firebase == nil {
		a.log.Warn("Firebase not configured: push notifications disabled")
		return nil, nil
	}
	return service.NewFCMClient(ctx, a.firebase, a.log)
}

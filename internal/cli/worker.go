package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"beomusic_backend/internal/queue"
	"beomusic_backend/internal/repository"
	"beomusic_backend/internal/worker"
)

var errRedisRequired = errors.New("REDIS_URL is required to run the worker")

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume comment events and send push notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.RedisURL == "" {
				return errRedisRequired
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.runWorker(ctx)
		},
	}
}

// runWorker blocks until ctx is canceled, then waits for in-flight events.
func (a *app) runWorker(ctx context.Context) error {
	if a.redis == nil {
		return errRedisRequired
	}

	fcm, err := a.pushSender(ctx)
	if err != nil {
		return err
	}
	var push worker.PushSender
	if fcm != nil {
		push = fcm
	}

	h := worker.NewHandler(a.commentStore(), repository.NewDeviceTokenRepository(a.db), push, a.log)

	mcfg := worker.DefaultManagerConfig()
	mcfg.WorkerCount = a.cfg.WorkerCount
	m := worker.NewManager(queue.NewConsumer(a.redis.Client, a.log), h, mcfg, a.log)

	if err := m.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	m.Stop()
	return nil
}

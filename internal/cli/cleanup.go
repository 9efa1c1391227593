package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"beomusic_backend/internal/database"
	"beomusic_backend/internal/repository"
	"beomusic_backend/internal/service"
)

func newCleanupCmd() *cobra.Command {
	var retention time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup-tokens",
		Short: "Delete refresh tokens that expired before the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if retention < 0 {
				return fmt.Errorf("--retention must not be negative")
			}

			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := database.Connect(cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()

			authSvc := service.NewAuthService(repository.NewRefreshTokenRepository(db), cfg, log)
			n, err := authSvc.CleanupExpired(cmd.Context(), retention)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d refresh tokens\n", n)
			return nil
		},
	}

	cmd.Flags().DurationVar(&retention, "retention", 7*24*time.Hour, "keep tokens that expired within this window")
	return cmd
}

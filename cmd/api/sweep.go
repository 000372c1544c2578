package main

import (
	"fmt"

	"consent-records/internal/config"
	"consent-records/internal/domain/accessgrants"
	"consent-records/internal/platform/logger"

	"github.com/spf13/cobra"
)

// sweepCmd registra ACCESS_EXPIRED una vez y termina (para cron).
func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Audita una vez los accesos vencidos",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DBDSN == "" {
				return errNoDSN
			}
			log := newLogger(cfg)
			defer logger.Sync(log)

			ctx := cmd.Context()
			db, err := openDB(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer db.Close()

			app, err := buildApp(ctx, cfg, log, db)
			if err != nil {
				return err
			}

			n := accessgrants.NewSweeper(app.Grants, log, cfg.ExpirySweepInterval).RunOnce(ctx)
			fmt.Printf("Audited %d expired grant(s).\n", n)
			return nil
		},
	}
}

package main

import (
	"errors"
	"fmt"

	pg "consent-records/internal/adapters/storage/postgres"
	"consent-records/internal/config"

	"github.com/spf13/cobra"
)

var errNoDSN = errors.New("DB_DSN is required")

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migraciones de base de datos",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Aplica las migraciones pendientes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DBDSN == "" {
				return errNoDSN
			}

			ctx := cmd.Context()
			db, err := pg.Open(ctx, cfg.DBDSN)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := pg.Migrate(ctx, db); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			v, err := pg.MigrationVersion(ctx, db)
			if err != nil {
				return err
			}
			fmt.Printf("Database at version %d.\n", v)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Muestra el estado de las migraciones",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DBDSN == "" {
				return errNoDSN
			}

			ctx := cmd.Context()
			db, err := pg.Open(ctx, cfg.DBDSN)
			if err != nil {
				return err
			}
			defer db.Close()

			return pg.MigrationStatus(ctx, db)
		},
	})

	return cmd
}

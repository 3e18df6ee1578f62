package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/cobra"

	"clientdesk.org/internal/config"
	"clientdesk.org/internal/migrate"
	"clientdesk.org/internal/store/pg"
	"clientdesk.org/internal/store/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
	Long: `Apply, revert or inspect schema migrations for the configured SQL store.

Examples:
  clientdesk migrate up -c clientdesk.yaml
  clientdesk migrate status
  clientdesk migrate down`,
}

func init() {
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd.Context(), func(ctx context.Context, m *migrate.Manager) error {
				applied, err := m.Up(ctx)
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					cmd.Println("schema is up to date")
				}
				for _, name := range applied {
					cmd.Printf("applied %s\n", name)
				}
				return nil
			})
		},
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd.Context(), func(ctx context.Context, m *migrate.Manager) error {
				name, err := m.Down(ctx)
				if err != nil {
					return err
				}
				if name == "" {
					cmd.Println("nothing to revert")
					return nil
				}
				cmd.Printf("reverted %s\n", name)
				return nil
			})
		},
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd.Context(), func(ctx context.Context, m *migrate.Manager) error {
				list, err := m.Status(ctx)
				if err != nil {
					return err
				}
				for _, mig := range list {
					state := "pending"
					if mig.Applied {
						state = "applied"
					}
					cmd.Printf("%-8s %s\n", state, mig.Name)
				}
				return nil
			})
		},
	})
}

func withManager(parent context.Context, fn func(context.Context, *migrate.Manager) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, 5*time.Minute)
	defer cancel()

	var (
		db      *sql.DB
		files   fs.FS
		dialect migrate.Dialect
		closeFn func() error
	)
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		store, err := pg.Open(cfg.Store.DSN, 1)
		if err != nil {
			return err
		}
		db, files, dialect, closeFn = store.DB(), pg.Migrations(), migrate.Postgres, store.Close
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.Store.DSN)
		if err != nil {
			return err
		}
		db, files, dialect, closeFn = store.DB(), sqlite.Migrations(), migrate.SQLite, store.Close
	default:
		return fmt.Errorf("store driver %q has no schema to migrate", cfg.Store.Driver)
	}
	defer closeFn()

	return fn(ctx, migrate.NewManager(db, files, migrate.WithDialect(dialect)))
}

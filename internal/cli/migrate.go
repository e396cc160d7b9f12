package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"qa-training-service/internal/config"
	pgstore "qa-training-service/internal/infra/postgres"
	pgmigrations "qa-training-service/internal/infra/postgres/migrations"
)

// NewMigrateCmd applies database migrations and optionally seeds the
// built-in scenario catalog.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrations(cmd.Context(), *configPath); err != nil {
				return err
			}
			if seed {
				return seedCatalog(cmd.Context(), *configPath)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "seed the built-in scenario catalog")
	return cmd
}

func runMigrations(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	return runMigrationsWithConfig(ctx, cfg)
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	if _, err := migrator.Migrate(ctx); err != nil {
		return err
	}
	log.Printf("migrations applied")
	return nil
}

func seedCatalog(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := pgstore.NewStore(pool)
	for name, quiz := range builtinCatalog() {
		if err := store.SaveQuiz(ctx, quiz); err != nil {
			return fmt.Errorf("seed quiz %s: %w", name, err)
		}
	}
	log.Printf("scenario catalog seeded")
	return nil
}

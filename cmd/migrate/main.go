package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"hill-valley/internal/config"
	"hill-valley/internal/logging"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}
	logging.Setup(os.Getenv("LOG_LEVEL"), true)

	var source string
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply the SQL migrations under db/migrations to DATABASE_URL.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&source, "source", "file://db/migrations", "migration source URL")

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open(source)
			if err != nil {
				return err
			}
			defer closeMigrate(m)
			if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("database migration failed: %w", err)
			}
			log.Info().Msg("database migrations applied")
			return nil
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations, one step by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("steps must be a positive number: %q", args[0])
				}
				steps = n
			}
			m, err := open(source)
			if err != nil {
				return err
			}
			defer closeMigrate(m)
			if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("rollback failed: %w", err)
			}
			log.Info().Int("steps", steps).Msg("migrations rolled back")
			return nil
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open(source)
			if err != nil {
				return err
			}
			defer closeMigrate(m)
			version, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				log.Info().Msg("no migrations applied")
				return nil
			}
			if err != nil {
				return err
			}
			log.Info().Uint("version", version).Bool("dirty", dirty).Msg("migration version")
			return nil
		},
	})

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
}

func open(source string) (*migrate.Migrate, error) {
	cfg, err := config.FromViper(config.NewViper())
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseDriver != config.DriverPostgres {
		return nil, fmt.Errorf("sql migrations target postgres; use --auto-migrate for %s", cfg.DatabaseDriver)
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	m, err := migrate.New(source, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("migration setup failed: %w", err)
	}
	return m, nil
}

func closeMigrate(m *migrate.Migrate) {
	if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
		log.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("failed to close migrator")
	}
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"hill-valley/internal/logging"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrationName = regexp.MustCompile(`^[a-z0-9_]+$`)

func main() {
	logging.Setup("info", true)

	var dir string
	cmd := &cobra.Command{
		Use:           "migrate-create NAME",
		Short:         "Create an empty up/down SQL migration pair.",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !migrationName.MatchString(name) {
				return fmt.Errorf("migration name must be lower case letters, digits and underscores: %q", name)
			}
			version := time.Now().UTC().Format("20060102150405")
			base := fmt.Sprintf("%s_%s", version, name)
			upPath := filepath.Join(dir, base+".up.sql")
			downPath := filepath.Join(dir, base+".down.sql")

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create migrations dir: %w", err)
			}
			if err := writeFile(upPath, "-- up migration\n"); err != nil {
				return fmt.Errorf("create up migration: %w", err)
			}
			if err := writeFile(downPath, "-- down migration\n"); err != nil {
				return fmt.Errorf("create down migration: %w", err)
			}
			log.Info().Str("up", upPath).Str("down", downPath).Msg("migration created")
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", filepath.Join("db", "migrations"), "migrations directory")

	if err := cmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("migrate-create")
	}
}

func writeFile(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

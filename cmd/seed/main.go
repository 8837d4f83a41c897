package main

import (
	"fmt"
	"os"

	"hill-valley/internal/config"
	"hill-valley/internal/db"
	"hill-valley/internal/logging"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}
	logging.Setup(os.Getenv("LOG_LEVEL"), true)

	var seedFile, questionsFile string
	var migrateFirst bool
	cmd := &cobra.Command{
		Use:           "seed",
		Short:         "Load party data from a YAML seed file and a questions CSV.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if seedFile == "" && questionsFile == "" {
				return fmt.Errorf("nothing to load: pass --file and/or --questions")
			}
			cfg, err := config.FromViper(config.NewViper())
			if err != nil {
				return err
			}
			conn, err := db.Open(cfg)
			if err != nil {
				return fmt.Errorf("database connection failed: %w", err)
			}
			if migrateFirst {
				if err := db.Migrate(conn); err != nil {
					return fmt.Errorf("database migration failed: %w", err)
				}
			}

			if seedFile != "" {
				seed, err := db.ReadSeed(seedFile)
				if err != nil {
					return err
				}
				counts, err := db.LoadSeed(conn, seed)
				if err != nil {
					return fmt.Errorf("load seed: %w", err)
				}
				log.Info().
					Int("questions", counts.Questions).
					Int("props", counts.Props).
					Int("costumes", counts.Costumes).
					Int("access_codes", counts.AccessCodes).
					Int("admins", counts.Admins).
					Str("file", seedFile).
					Msg("seed loaded")
			}

			if questionsFile != "" {
				file, err := os.Open(questionsFile)
				if err != nil {
					return err
				}
				defer file.Close()
				result, err := db.ImportQuestionsCSV(conn, file)
				if err != nil {
					return fmt.Errorf("import questions: %w", err)
				}
				for _, skipped := range result.Skipped {
					log.Warn().Int("row", skipped.Row).Str("reason", skipped.Message).Msg("question row skipped")
				}
				log.Info().Int("imported", result.Imported).Int("skipped", len(result.Skipped)).Str("file", questionsFile).Msg("questions imported")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&seedFile, "file", "f", "", "YAML seed file")
	cmd.Flags().StringVarP(&questionsFile, "questions", "q", "", "questions CSV file")
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "migrate the schema before loading")

	if err := cmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("seed")
	}
}

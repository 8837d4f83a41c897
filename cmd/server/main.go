package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hill-valley/internal/config"
	"hill-valley/internal/db"
	"hill-valley/internal/fbconn"
	"hill-valley/internal/logging"
	"hill-valley/internal/media"
	"hill-valley/internal/server"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const releaseVersion = "0.1.0"

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}
	cobra.CheckErr(newCmd().Execute())
}

func newCmd() *cobra.Command {
	v := config.NewViper()
	def := config.Default()

	cmd := &cobra.Command{
		Use:           "hill-valley",
		Short:         "Party server for trivia, costume voting and the video guestbook.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromViper(v)
			if err != nil {
				return err
			}
			logging.Setup(cfg.LogLevel, cfg.LogPretty)
			return serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringP("bind", "b", def.Bind, "address to bind to (env: BIND)")
	fs.IntP("port", "p", def.Port, "port to listen on (env: PORT)")
	fs.String("public-base-url", def.PublicBaseURL, "external URL used in QR codes (env: PUBLIC_BASE_URL)")
	fs.String("database-driver", def.DatabaseDriver, "postgres or sqlite (env: DATABASE_DRIVER)")
	fs.String("database-url", def.DatabaseURL, "database connection string (env: DATABASE_URL)")
	fs.Bool("auto-migrate", def.AutoMigrate, "migrate the schema on startup (env: AUTO_MIGRATE)")
	fs.String("log-level", def.LogLevel, "debug, info, warn or error (env: LOG_LEVEL)")
	fs.Bool("log-pretty", def.LogPretty, "human readable console logs (env: LOG_PRETTY)")
	fs.String("allowed-origins", "", "comma separated CORS origins (env: ALLOWED_ORIGINS)")
	fs.Int("trivia-max-participants", def.TriviaMaxParticipants, "players per trivia game (env: TRIVIA_MAX_PARTICIPANTS)")
	fs.Int("questions-per-level", def.QuestionsPerLevel, "questions asked per level, 0 for all (env: QUESTIONS_PER_LEVEL)")
	fs.Bool("require-access-code", def.RequireAccessCode, "require a guest access code for writes (env: REQUIRE_ACCESS_CODE)")
	fs.Bool("results-public", def.ResultsPublic, "publish results once voting closes (env: RESULTS_PUBLIC)")
	fs.Bool("costume-moderation", def.CostumeModeration, "hold costumes for approval (env: COSTUME_MODERATION)")
	fs.Bool("guestbook-moderation", def.GuestbookModeration, "hold guestbook videos for approval (env: GUESTBOOK_MODERATION)")
	fs.Int64("max-video-bytes", def.MaxVideoBytes, "guestbook video size limit (env: MAX_VIDEO_BYTES)")
	fs.Int64("max-photo-bytes", def.MaxPhotoBytes, "costume photo size limit (env: MAX_PHOTO_BYTES)")
	fs.String("media-dir", def.MediaDir, "upload directory when firebase storage is off (env: MEDIA_DIR)")
	fs.Duration("admin-session-ttl", def.AdminSessionTTL, "admin login lifetime (env: ADMIN_SESSION_TTL)")
	fs.String("firebase-credentials-file", "", "service account json (env: FIREBASE_CREDENTIALS_FILE)")
	fs.String("firebase-project-id", "", "firebase project (env: FIREBASE_PROJECT_ID)")
	fs.String("firebase-storage-bucket", "", "storage bucket for uploads (env: FIREBASE_STORAGE_BUCKET)")
	fs.String("firebase-database-url", "", "realtime database for live mirrors (env: FIREBASE_DATABASE_URL)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("hill-valley v{{.Version}}\n")

	return cmd
}

func serve(parent context.Context, cfg config.Config) error {
	conn, err := db.Open(cfg)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(conn); err != nil {
			return fmt.Errorf("database migration failed: %w", err)
		}
		log.Info().Msg("database schema migrated")
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := serverOptions(ctx, cfg)
	if err != nil {
		return err
	}
	srv := server.New(conn, cfg, opts...)
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       10 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpServer.Addr).Str("public_url", cfg.PublicBaseURL).Msg("hill-valley server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown failed")
	}
	srv.Wait()
	if sqlDB, err := conn.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}

// serverOptions picks the media store and, with Firebase configured, the
// token verifier and the realtime mirror.
func serverOptions(ctx context.Context, cfg config.Config) ([]server.Option, error) {
	if !cfg.FirebaseEnabled() {
		store, err := media.NewDiskStore(cfg.MediaDir)
		if err != nil {
			return nil, fmt.Errorf("media directory: %w", err)
		}
		log.Info().Str("dir", cfg.MediaDir).Msg("storing uploads on disk")
		return []server.Option{server.WithMedia(store)}, nil
	}

	fc, err := fbconn.NewFirebaseConnector(ctx, cfg)
	if err != nil {
		return nil, err
	}
	bucket, err := fc.Bucket(ctx)
	if err != nil {
		return nil, err
	}
	opts := []server.Option{
		server.WithMedia(media.NewBucketStore(bucket)),
		server.WithTokenVerifier(fc),
	}
	if mirror := fc.Mirror(); mirror != nil {
		opts = append(opts, server.WithPublisher(mirror))
	}
	log.Info().Str("project", cfg.FirebaseProjectID).Bool("mirror", cfg.FirebaseDatabaseURL != "").Msg("firebase enabled")
	return opts, nil
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/dukerupert/choreboard/internal/backup"
	"github.com/dukerupert/choreboard/internal/config"
	"github.com/dukerupert/choreboard/internal/database"
	"github.com/dukerupert/choreboard/internal/logging"
	"github.com/dukerupert/choreboard/internal/server"
)

const usage = `usage: choreboard [command] [flags]

commands:
  serve      run the HTTP server (default)
  backup     upload an encrypted database snapshot and prune old ones
  snapshots  list snapshots in the bucket
  restore    replace the database with a snapshot (stop the server first)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "choreboard:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet("choreboard "+cmd, flag.ContinueOnError)
	switch cmd {
	case "serve":
		cfg, err := config.Load(fs, args, os.Getenv)
		if err != nil {
			return err
		}
		return serve(cfg)
	case "backup":
		passphrase := passphraseFlag(fs)
		cfg, err := config.Load(fs, args, os.Getenv)
		if err != nil {
			return err
		}
		return runBackup(cfg, passphraseOrEnv(*passphrase))
	case "snapshots":
		cfg, err := config.Load(fs, args, os.Getenv)
		if err != nil {
			return err
		}
		return listSnapshots(cfg)
	case "restore":
		passphrase := passphraseFlag(fs)
		key := fs.String("key", "", "snapshot key to restore (default: newest)")
		cfg, err := config.Load(fs, args, os.Getenv)
		if err != nil {
			return err
		}
		return restore(cfg, *key, passphraseOrEnv(*passphrase))
	case "help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func passphraseFlag(fs *flag.FlagSet) *string {
	return fs.String("passphrase", "", "snapshot passphrase (or CHOREBOARD_BACKUP_PASSPHRASE)")
}

func passphraseOrEnv(p string) string {
	if p != "" {
		return p
	}
	return os.Getenv("CHOREBOARD_BACKUP_PASSPHRASE")
}

func serve(cfg config.Config) error {
	if err := cfg.ValidateServe(); err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	srv := server.New(db, server.Options{
		JWTSecret:      []byte(cfg.JWTSecret),
		JWTIssuer:      cfg.JWTIssuer,
		JoinLimit:      cfg.JoinRateLimit,
		JoinWindow:     cfg.JoinRateWindow.Duration,
		AllowedOrigins: cfg.AllowedOrigins,
	}, logger)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("choreboard listening", "addr", httpServer.Addr, "db", cfg.DBPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func backupConfig(cfg config.Config) backup.Config {
	return backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.Backup.Endpoint,
			Bucket:    cfg.Backup.Bucket,
			Region:    cfg.Backup.Region,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
		},
		DBPath:        cfg.DBPath,
		Prefix:        cfg.Backup.Prefix,
		RetentionDays: cfg.Backup.RetentionDays,
	}
}

func runBackup(cfg config.Config, passphrase string) error {
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	m, err := backup.NewManager(backupConfig(cfg), db, logger.With("component", "backup"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snap, err := m.Run(ctx, passphrase)
	if err != nil {
		return err
	}
	if _, err := m.Prune(ctx); err != nil {
		logger.Warn("prune failed", "error", err)
	}
	fmt.Println(snap.Key)
	return nil
}

func listSnapshots(cfg config.Config) error {
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	m, err := backup.NewManager(backupConfig(cfg), nil, logger.With("component", "backup"))
	if err != nil {
		return err
	}
	snaps, err := m.List(context.Background())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snaps)
}

func restore(cfg config.Config, key, passphrase string) error {
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	m, err := backup.NewManager(backupConfig(cfg), nil, logger.With("component", "backup"))
	if err != nil {
		return err
	}

	ctx := context.Background()
	if key == "" {
		snaps, err := m.List(ctx)
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			return errors.New("no snapshots found")
		}
		key = snaps[0].Key
	}

	if err := m.Restore(ctx, key, passphrase); err != nil {
		return err
	}
	logger.Info("restore complete; start the server to use it", "key", key)
	return nil
}

package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"spool/internal/config"
	"spool/internal/daemon"
	"spool/internal/engine/ytdlpengine"
	"spool/internal/logging"
	"spool/internal/notify"
	"spool/internal/orchestrator"
	"spool/internal/store"
)

func newRunCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the download daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, path, exists, err := config.Load(*configFlag)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				OutputPaths: []string{
					"stdout",
					filepath.Join(cfg.Paths.LogDir, "spool.log"),
				},
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			logger.Info("configuration loaded",
				logging.String("path", path),
				logging.Bool("from_file", exists))

			db, err := store.Open(cfg.StateDBPath(), logger)
			if err != nil {
				return fmt.Errorf("open state database: %w", err)
			}

			notifier := notify.Multi{
				notify.NewLog(logger),
				notify.NewNtfy(cfg, logger),
			}
			orch, err := orchestrator.New(ctx, cfg, db, ytdlpengine.New(), notifier, logger)
			if err != nil {
				db.Close()
				return fmt.Errorf("init orchestrator: %w", err)
			}

			d, err := daemon.New(cfg, db, orch, logger)
			if err != nil {
				db.Close()
				return fmt.Errorf("create daemon: %w", err)
			}
			defer d.Close()

			if err := d.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			logger.Info("spoold shutting down")
			return nil
		},
	}
}

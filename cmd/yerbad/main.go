// Command yerbad is the Yerba workflow scheduling daemon.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lngonzalezg/yerba/internal/config"
	"github.com/lngonzalezg/yerba/internal/daemon"
	"github.com/lngonzalezg/yerba/internal/event"
	"github.com/lngonzalezg/yerba/internal/lifecycle"
	"github.com/lngonzalezg/yerba/internal/manager"
	"github.com/lngonzalezg/yerba/internal/scheduler"
	"github.com/lngonzalezg/yerba/internal/store"
	"github.com/lngonzalezg/yerba/internal/taskqueue/localqueue"
	"github.com/lngonzalezg/yerba/pkg/logger"
	"github.com/lngonzalezg/yerba/pkg/version"
)

func main() {
	var configPath string
	var debug bool

	cmd := &cobra.Command{
		Use:     "yerbad",
		Short:   "Yerba workflow scheduling daemon",
		Version: version.GetShortVersion(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, debug)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to YAML configuration file")
	flags.BoolVar(&debug, "debug", false, "enable debug logging")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err.Error())
		os.Exit(1)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logger.INFO
	}
	if debug {
		level = logger.DEBUG
	}
	logger.SetLevel(level)

	st, err := store.Open(cfg.Database)
	if err != nil {
		logger.Error("failed to open workflow store", "error", err.Error())
		os.Exit(1)
	}
	defer st.Close()

	notifier := event.New()
	eng := manager.New(st, notifier)

	// a row left Running by a prior crash is stopped before the daemon
	// starts accepting requests.
	if err := eng.Cleanup(); err != nil {
		logger.Warn("startup recovery failed", "error", err.Error())
	}

	queue := localqueue.New(cfg.LocalQueueWorkers)
	adapter := scheduler.NewAdapter(queue, notifier)

	lc := lifecycle.NewManager()
	lc.Register("scheduler", "adapter", adapter)

	d := daemon.New(cfg.Socket, eng, adapter, lc)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("yerbad starting", "socket", cfg.Socket, "database", cfg.Database)
	if err := d.Run(ctx); err != nil {
		logger.Error("daemon loop exited with error", "error", err.Error())
		os.Exit(1)
	}

	if err := eng.Cleanup(); err != nil {
		logger.Warn("shutdown cleanup failed", "error", err.Error())
	}
	logger.Info("yerbad stopped")
	return nil
}

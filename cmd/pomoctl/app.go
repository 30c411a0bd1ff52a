package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"pomodoroplaza/internal/config"
	"pomodoroplaza/internal/controller"
	"pomodoroplaza/internal/db"
	"pomodoroplaza/internal/notify"
	"pomodoroplaza/internal/repository"
	"pomodoroplaza/internal/statestore"
)

var Version = "dev"

// app is the single-user session shared by every subcommand.
type app struct {
	cfg      config.Config
	database *sql.DB
	ctrl     *controller.Controller
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var dbPath string

	rootCmd := &cobra.Command{
		Use:           "pomoctl",
		Short:         "Pomodoro Plaza timers from the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context(), dbPath)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (defaults to DB_PATH)")

	rootCmd.AddCommand(listCmd(a))
	rootCmd.AddCommand(addCmd(a))
	rootCmd.AddCommand(editCmd(a))
	rootCmd.AddCommand(deleteCmd(a))
	rootCmd.AddCommand(moveCmd(a))
	rootCmd.AddCommand(resetCmd(a))
	rootCmd.AddCommand(startCmd(a))
	rootCmd.AddCommand(pauseCmd(a))
	rootCmd.AddCommand(stopCmd(a))
	rootCmd.AddCommand(breakCmd(a))
	rootCmd.AddCommand(pauseDurationCmd(a))
	rootCmd.AddCommand(statusCmd(a))
	rootCmd.AddCommand(runCmd(a))
	rootCmd.AddCommand(historyCmd(a))
	rootCmd.AddCommand(heatmapCmd(a))
	rootCmd.AddCommand(shareCmd(a))
	rootCmd.AddCommand(importCmd(a))
	rootCmd.AddCommand(exportCmd(a))

	return rootCmd
}

func (a *app) open(ctx context.Context, dbPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.cfg = config.Load()
	if dbPath != "" {
		a.cfg.DBPath = dbPath
	}

	database, err := db.OpenMigrated(a.cfg.DBPath, a.cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("open %s: %w", a.cfg.DBPath, err)
	}
	a.database = database

	logger := log.New(os.Stderr, "pomoctl: ", 0)
	a.ctrl = controller.Load(ctx, statestore.New(repository.NewStateRepository(database), statestore.LocalKey), controller.Options{
		Location:            a.cfg.Location,
		BreakPolicy:         a.cfg.BreakPolicy,
		TickInterval:        a.cfg.TickInterval,
		DefaultPauseMinutes: a.cfg.DefaultPauseMinutes,
		Notifier:            notify.Build(a.cfg.NotificationsEnabled, a.cfg.NotifyWebhookURL, logger),
		Logger:              logger,
	})
	return nil
}

func (a *app) close() error {
	if a.ctrl != nil {
		a.ctrl.Close()
	}
	if a.database != nil {
		return a.database.Close()
	}
	return nil
}

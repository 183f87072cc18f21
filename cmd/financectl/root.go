package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"financeflow/internal/cli"
	"financeflow/internal/core"
	"financeflow/internal/lifecycle"
	"financeflow/internal/log"
	"financeflow/internal/services"
	"financeflow/internal/storage"
)

// env holds the process dependencies the commands touch, so tests can
// swap the store and the clock.
type env struct {
	out       io.Writer
	openStore func(path string) (storage.Store, error)
	now       func() time.Time
	getenv    func(string) string
}

func defaultEnv() *env {
	return &env{
		out: os.Stdout,
		openStore: func(path string) (storage.Store, error) {
			return storage.NewSQLiteRepository(path)
		},
		now:    time.Now,
		getenv: os.Getenv,
	}
}

// app is the state shared by every subcommand once flags are resolved.
type app struct {
	env *env

	flagConfig string
	flagDB     string
	flagUser   string
	flagDate   string
	flagJSON   bool
	flagDebug  bool

	profile cli.Profile
	store   storage.Store
	budget  *services.BudgetService
}

func newRootCmd(e *env) *cobra.Command {
	a := &app{env: e}

	root := &cobra.Command{
		Use:           "financectl",
		Short:         "Daily budget ledger",
		Long:          "Track daily spending against a target, move the difference to savings, and borrow from it when needed.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(e.out)
	root.SetErr(e.out)

	root.PersistentFlags().StringVar(&a.flagConfig, "config", cli.ProfilePath(), "Config file")
	root.PersistentFlags().StringVar(&a.flagDB, "db", "", "SQLite database path (default from config)")
	root.PersistentFlags().StringVarP(&a.flagUser, "user", "u", "", "User id (default from config, then $USER)")
	root.PersistentFlags().StringVarP(&a.flagDate, "date", "d", "", "Day to act on, YYYY-MM-DD (default today)")
	root.PersistentFlags().BoolVar(&a.flagJSON, "json", false, "Print JSON instead of text")
	root.PersistentFlags().BoolVar(&a.flagDebug, "debug", false, "Log at debug level to stderr")

	root.AddCommand(
		a.setupCmd(),
		a.overviewCmd(),
		a.dayCmd(),
		a.spendCmd(),
		a.unspendCmd(),
		a.taskCmd(),
		a.transferCmd(),
		a.borrowCmd(),
		a.excessCmd(),
		a.dueCmd(),
		a.notesCmd(),
		a.tokenCmd(),
		a.configCmd(),
	)
	return root
}

// loadProfile resolves the config file and applies it under the flags.
func (a *app) loadProfile() error {
	p, err := cli.LoadProfile(a.flagConfig)
	if err != nil {
		return err
	}
	if a.flagDB != "" {
		p.DBPath = a.flagDB
	}
	if a.flagUser != "" {
		p.User = a.flagUser
	}
	if p.User == "" {
		p.User = a.env.getenv("USER")
	}
	if p.User == "" {
		p.User = "local"
	}
	a.profile = p
	return nil
}

// open prepares the store and the budget service. Commands that touch data
// call it first and defer close.
func (a *app) open() error {
	if err := a.loadProfile(); err != nil {
		return err
	}
	store, err := a.env.openStore(a.profile.DBPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", a.profile.DBPath, err)
	}

	level := slog.LevelWarn
	if a.flagDebug {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level, Component: log.ComponentCLI, Output: os.Stderr})

	a.store = store
	a.budget = services.NewBudgetService(store, nil,
		services.WithClock(a.env.now),
		services.WithOverviewCache(nil),
		services.WithLogger(logger),
	)
	return nil
}

func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
		a.store = nil
	}
}

// withBudget wraps a RunE that needs an open store.
func (a *app) withBudget(run func(ctx context.Context, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.open(); err != nil {
			return err
		}
		defer a.close()
		return run(cmd.Context(), cmd, args)
	}
}

// date is the --date flag, or today.
func (a *app) date() (core.Date, error) {
	if a.flagDate == "" {
		return core.DateOf(a.env.now()), nil
	}
	return core.ParseDate(a.flagDate)
}

// apply runs one lifecycle action on --date and prints the result.
func (a *app) apply(ctx context.Context, action lifecycle.Action) error {
	date, err := a.date()
	if err != nil {
		return err
	}
	res, err := a.budget.Apply(ctx, a.profile.User, date, action)
	if err != nil {
		return err
	}
	if a.flagJSON {
		return printJSON(a.env.out, res)
	}
	printActionResult(a.env.out, res)
	return nil
}

// Command eventctl runs operator tasks against the configured store:
//
//	eventctl migrate                   apply schema migrations / ensure indexes
//	eventctl seed                      load demo accounts, events and announcements
//	eventctl promote --email <email>   grant the admin role
//
// It reads the same environment (and .env file) as the server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/sakif/eventhub/internal/auth"
	"github.com/sakif/eventhub/internal/config"
	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/repository"
	"github.com/sakif/eventhub/internal/seed"
	"github.com/sakif/eventhub/internal/service"
	"github.com/sakif/eventhub/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "eventctl:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "eventctl",
		Usage: "administer an eventhub store",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "create or upgrade the schema (sqlite) or indexes (mongo)",
				Action: withStore(migrate),
			},
			{
				Name:   "seed",
				Usage:  "load demo data into an empty store",
				Action: withStore(seedStore),
			},
			{
				Name:  "promote",
				Usage: "grant the admin role to an existing account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "email of the account to promote", Required: true},
				},
				Action: withStore(promote),
			},
		},
	}
}

// command is an action that runs against an open store.
type command func(c *cli.Context, st repository.Store, logger *slog.Logger) error

// withStore loads the configuration and opens the store around a command.
// Opening is what migrates: sqlite applies pending migrations and mongo
// creates its indexes.
func withStore(run command) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := cfg.Logger(os.Stderr)

		st, err := store.Open(c.Context, cfg)
		if err != nil {
			return fmt.Errorf("opening %s: %w", store.Describe(cfg), err)
		}
		defer st.Close()

		logger.Debug("store opened", slog.String("store", store.Describe(cfg)))
		return run(c, st, logger)
	}
}

func migrate(c *cli.Context, _ repository.Store, logger *slog.Logger) error {
	logger.Info("store is up to date")
	return nil
}

func seedStore(c *cli.Context, st repository.Store, logger *slog.Logger) error {
	res, err := seed.Run(c.Context, st, auth.NewPasswordService(), time.Now())
	if err != nil {
		return err
	}
	if res.Skipped {
		logger.Info("store already seeded, nothing to do", slog.String("admin", seed.AdminEmail))
		return nil
	}

	logger.Info("seed complete",
		slog.Int("users", res.Users),
		slog.Int("events", res.Events),
		slog.Int("announcements", res.Announcements),
	)
	fmt.Fprintf(c.App.Writer, "admin login: %s / admin123\n", seed.AdminEmail)
	return nil
}

func promote(c *cli.Context, st repository.Store, logger *slog.Logger) error {
	users := service.NewUserService(st, st, logger)
	user, err := users.SetRole(c.Context, c.String("email"), model.RoleAdmin)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s (%s) is now an admin\n", user.Username, user.Email)
	return nil
}

// Command ecoforctl runs schema migrations and seeds reference data.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/noah-isme/ecofor-market/internal/db"
	"github.com/noah-isme/ecofor-market/internal/obs"
)

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "ecoforctl:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	dbFlag := &cli.StringFlag{
		Name:     "database-url",
		Usage:    "postgres connection string",
		EnvVars:  []string{"DATABASE_URL"},
		Required: true,
	}
	return &cli.App{
		Name:  "ecoforctl",
		Usage: "Ecofor Market operations",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "info", EnvVars: []string{"LOG_LEVEL"}},
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "manage the database schema",
				Flags: []cli.Flag{dbFlag},
				Subcommands: []*cli.Command{
					{Name: "up", Usage: "apply pending migrations", Action: migrateAction(migrateUp)},
					{
						Name:  "down",
						Usage: "roll back migrations",
						Flags: []cli.Flag{&cli.IntFlag{Name: "steps", Value: 1, Usage: "number of migrations to roll back, 0 for all"}},
						Action: migrateAction(func(c *cli.Context, m *migrate.Migrate) error {
							steps := c.Int("steps")
							if steps <= 0 {
								return ignoreNoChange(m.Down())
							}
							return ignoreNoChange(m.Steps(-steps))
						}),
					},
					{Name: "version", Usage: "print the current schema version", Action: migrateAction(migrateVersion)},
				},
			},
			{
				Name:  "seed",
				Usage: "insert sample catalog products and staff accounts",
				Flags: []cli.Flag{
					dbFlag,
					&cli.StringFlag{Name: "admin-password", EnvVars: []string{"SEED_ADMIN_PASSWORD"}, Required: true},
					&cli.StringFlag{Name: "support-password", EnvVars: []string{"SEED_SUPPORT_PASSWORD"}, Required: true},
					&cli.BoolFlag{Name: "skip-products", Usage: "only create staff accounts"},
				},
				Action: seedAction,
			},
		},
	}
}

func logger(c *cli.Context) zerolog.Logger {
	return obs.NewLogger("console", c.String("log-level"))
}

func migrateAction(run func(*cli.Context, *migrate.Migrate) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		m, err := db.NewMigrator(c.String("database-url"))
		if err != nil {
			return err
		}
		defer m.Close()
		return run(c, m)
	}
}

func migrateUp(c *cli.Context, m *migrate.Migrate) error {
	log := logger(c)
	if err := db.RunMigrations(m); err != nil {
		return err
	}
	log.Info().Msg("migrations applied")
	return nil
}

func migrateVersion(c *cli.Context, m *migrate.Migrate) error {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Fprintln(c.App.Writer, "none")
		return nil
	}
	if err != nil {
		return err
	}
	out := strconv.FormatUint(uint64(version), 10)
	if dirty {
		out += " (dirty)"
	}
	fmt.Fprintln(c.App.Writer, out)
	return nil
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func seedAction(c *cli.Context) error {
	log := logger(c)
	pool, err := pgxpool.New(c.Context, c.String("database-url"))
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer pool.Close()

	res, err := Seed(c.Context, db.New(pool), SeedOptions{
		AdminPassword:   c.String("admin-password"),
		SupportPassword: c.String("support-password"),
		SkipProducts:    c.Bool("skip-products"),
	})
	if err != nil {
		return err
	}
	log.Info().
		Int("products", res.Products).
		Int("accounts", res.Accounts).
		Msg("seed complete")
	return nil
}

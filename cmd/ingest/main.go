package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/andresuchdata/erpflow/internal/app"
	"github.com/andresuchdata/erpflow/internal/config"
	"github.com/andresuchdata/erpflow/internal/repository/postgres"
	"github.com/andresuchdata/erpflow/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

type ctxKey struct{}

var appKey ctxKey

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

// initApp opens the database through pgx and builds the ingestion stack.
func initApp(c *cli.Context) error {
	logger.Configure(c.String("log-level"), c.String("log-format"))

	sqlDB, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := sqlDB.PingContext(c.Context); err != nil {
		sqlDB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	db := postgres.Wrap(sqlDB, "pgx")

	if !c.Bool("skip-migrate") {
		if err := postgres.Migrate(c.Context, db); err != nil {
			sqlDB.Close()
			return err
		}
	}

	a, err := app.New(c.Context, config.Load(), db)
	if err != nil {
		sqlDB.Close()
		return err
	}
	c.Context = context.WithValue(c.Context, appKey, a)
	return nil
}

func closeApp(c *cli.Context) error {
	if a, ok := c.Context.Value(appKey).(*app.App); ok && a != nil {
		return a.DB.Close()
	}
	return nil
}

func appFrom(c *cli.Context) *app.App {
	return c.Context.Value(appKey).(*app.App)
}

func main() {
	_ = godotenv.Load()

	cliApp := &cli.App{
		Name:  "ingest",
		Usage: "Load ERP exports into the warehouse and maintain derived tables",
		Flags: []cli.Flag{
			newDBURLFlag(),
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "console",
				Usage:   "console or json",
				EnvVars: []string{"LOG_FORMAT"},
			},
			&cli.BoolFlag{
				Name:  "skip-migrate",
				Usage: "Do not apply migrations before running the command",
			},
		},
		Before: initApp,
		After:  closeApp,
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Apply schema migrations and exit",
				Action: func(c *cli.Context) error { return nil },
			},
			{
				Name:      "load-file",
				Usage:     "Ingest workbooks synchronously, one after another",
				ArgsUsage: "<file.xlsx>...",
				Flags: []cli.Flag{
					&cli.TimestampFlag{
						Name:   "snapshot-date",
						Usage:  "Snapshot date for periodic reports (YYYY-MM-DD)",
						Layout: "2006-01-02",
					},
					&cli.BoolFlag{
						Name:  "keep-going",
						Usage: "Continue with the next file after a failure",
					},
				},
				Action: loadFiles,
			},
			{
				Name:  "rebuild",
				Usage: "Re-run transforms from the raw tables, then refresh lead times and alerts",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "family",
						Usage: "Families to rebuild (default: all)",
					},
					&cli.TimestampFlag{
						Name:   "snapshot-date",
						Usage:  "AR aging snapshot to rebuild (default: latest)",
						Layout: "2006-01-02",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Value: 4,
					},
				},
				Action: rebuild,
			},
			{
				Name:  "storage-import",
				Usage: "Ingest archived workbooks from object storage",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Only import keys under this prefix",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "List what would be imported",
					},
				},
				Action: storageImport,
			},
			{
				Name:  "history",
				Usage: "Show recent uploads and journal totals",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "since",
						Value: 24 * time.Hour,
					},
					&cli.IntFlag{
						Name:  "limit",
						Value: 20,
					},
				},
				Action: history,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("ingest failed")
	}
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/andresuchdata/bakeplan/internal/config"
	"github.com/andresuchdata/bakeplan/internal/repository/postgres"
	"github.com/andresuchdata/bakeplan/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"
)

type contextKey string

const dbKey contextKey = "db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db-url",
		Usage:   "Database connection string (defaults to the DB_* settings)",
		EnvVars: []string{"DATABASE_URL"},
	}
}

func newMarketFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "market",
		Aliases: []string{"m"},
		Usage:   "Restrict to one market id",
	}
}

func newDateFlag(name, usage string, required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     name,
		Usage:    usage + " (YYYY-MM-DD)",
		Required: required,
	}
}

func initDB(c *cli.Context) error {
	cfg := config.Load()
	dsn := c.String("db-url")
	if dsn == "" {
		dsn = postgres.DSN(&cfg.Database)
	}

	// Initialize database connection
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Store the database connection in the context
	c.Context = context.WithValue(c.Context, dbKey, postgres.Wrap(sqlx.NewDb(db, "pgx"), cfg.Database.MaxConcurrentTx))
	return nil
}

func closeDB(c *cli.Context) error {
	// Close the database connection when done
	if db, ok := c.Context.Value(dbKey).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) (*postgres.DB, error) {
	db, ok := c.Context.Value(dbKey).(*postgres.DB)
	if !ok || db == nil {
		return nil, fmt.Errorf("database is not initialised")
	}
	return db, nil
}

func main() {
	app := &cli.App{
		Name:  "bakeplan",
		Usage: "Forecast daily bakery production and reconcile it against actual sales",
		Flags: []cli.Flag{
			newDBURLFlag(),
		},
		Before: func(c *cli.Context) error {
			cfg := config.Load()
			logger.ConfigureOutput(cfg.Log.Level, cfg.Log.Format, os.Stderr)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Generate and store production forecasts for a date",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newDateFlag("date", "Production date", true),
					newMarketFlag(),
					&cli.StringSliceFlag{
						Name:  "product",
						Usage: "Only forecast these product ids",
					},
					&cli.StringFlag{
						Name:  "weather",
						Usage: "Override the stored weather forecast (sunny, cloudy, rain, storm, wind, cold, none)",
					},
					&cli.Float64Flag{
						Name:  "service-level",
						Usage: "Service level target in (0,1); defaults to the cost-derived critical ratio",
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runGenerate,
			},
			{
				Name:  "list",
				Usage: "List stored forecasts for a date",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newDateFlag("date", "Production date", true),
					newMarketFlag(),
				},
				Before: initDB,
				After:  closeDB,
				Action: runList,
			},
			{
				Name:  "compare",
				Usage: "Compare a day's forecasts with actual sales and inventory",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newDateFlag("date", "Date to reconcile", true),
					newMarketFlag(),
				},
				Before: initDB,
				After:  closeDB,
				Action: runCompare,
			},
			{
				Name:  "analyze",
				Usage: "Build the accuracy report for a date range",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newDateFlag("from", "First day of the range, defaults to 29 days before --to", false),
					newDateFlag("to", "Last day of the range, defaults to today", false),
					newMarketFlag(),
					&cli.BoolFlag{
						Name:  "export",
						Usage: "Upload the report as JSON to object storage",
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runAnalyze,
			},
			{
				Name:  "purge",
				Usage: "Delete every forecast for a date (irreversible)",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newDateFlag("date", "Production date", true),
					newMarketFlag(),
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm the deletion",
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runPurge,
			},
			{
				Name:  "ingest",
				Usage: "Load catalog, weather, sales and inventory files",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Local directory with catalog/, weather/, sales/ and inventory/ files",
					},
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Object storage prefix to download and load",
					},
					&cli.StringFlag{
						Name:  "drive-folder",
						Usage: "Google Drive folder path to download and load",
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runIngest,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

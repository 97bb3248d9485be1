package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/andresuchdata/costbook/backend-go/internal/cache"
	"github.com/andresuchdata/costbook/backend-go/internal/config"
	"github.com/andresuchdata/costbook/backend-go/internal/ingest"
	"github.com/andresuchdata/costbook/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/costbook/backend-go/internal/storage"
	"github.com/andresuchdata/costbook/backend-go/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

type dbKey struct{}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db-url",
			Usage:   "Database connection string (defaults to the DB_* settings)",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.Int64Flag{
			Name:     "company-id",
			Usage:    "Company the imported rows belong to",
			Required: true,
			EnvVars:  []string{"INGEST_COMPANY_ID"},
		},
		&cli.IntFlag{
			Name:    "workers",
			Usage:   "Number of files imported concurrently",
			Value:   4,
			EnvVars: []string{"INGEST_WORKERS"},
		},
		&cli.BoolFlag{
			Name:  "migrate",
			Usage: "Apply the database schema before importing",
		},
	}
}

func initDB(c *cli.Context) error {
	cfg := config.Load()

	dsn := c.String("db-url")
	if dsn == "" {
		dsn = postgres.DSN(&cfg.Database)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if c.Bool("migrate") {
		wrapped := postgres.Wrap(sqlx.NewDb(db, "pgx"), cfg.Database.MaxConcurrency)
		if err := wrapped.Migrate(c.Context); err != nil {
			db.Close()
			return err
		}
	}

	c.Context = context.WithValue(c.Context, dbKey{}, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey{}).(*sql.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFromContext(c *cli.Context) (*sql.DB, error) {
	db, ok := c.Context.Value(dbKey{}).(*sql.DB)
	if !ok || db == nil {
		return nil, fmt.Errorf("database connection not found in context")
	}
	return db, nil
}

func main() {
	cfg := config.Load()
	logger.SetFormat(cfg.Log.Format)
	logger.SetLevel(cfg.Log.Level)
	log.Logger = logger.Log

	app := &cli.App{
		Name:  "ingest",
		Usage: "Import historical records, stock levels and recipe costs from CSV",
		Commands: []*cli.Command{
			{
				Name:  "local",
				Usage: "Import CSV files from a local directory",
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:    "data-dir",
						Usage:   "Directory holding records/, inventory/ and recipes/ subdirectories",
						Value:   "./data/import",
						EnvVars: []string{"INGEST_DATA_DIR"},
					},
				),
				Before: initDB,
				After:  closeDB,
				Action: runLocal,
			},
			{
				Name:  "s3",
				Usage: "Download CSV files from S3-compatible storage and import them",
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:    "prefix",
						Usage:   "Object key prefix to import",
						Value:   cfg.Storage.Prefix,
						EnvVars: []string{"S3_PREFIX"},
					},
					&cli.StringFlag{
						Name:  "object",
						Usage: "Import a single object under the prefix",
					},
					&cli.StringFlag{
						Name:    "download-dir",
						Usage:   "Local directory objects are downloaded to",
						Value:   "./data/tmp/s3",
						EnvVars: []string{"S3_DOWNLOAD_DIR"},
					},
					&cli.StringFlag{
						Name:    "archive-prefix",
						Usage:   "Copy imported files under this prefix once the import succeeds",
						EnvVars: []string{"S3_ARCHIVE_PREFIX"},
					},
				),
				Before: initDB,
				After:  closeDB,
				Action: runS3,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("ingest failed")
	}
}

func runLocal(c *cli.Context) error {
	files, err := ingest.CollectCSVFiles(c.String("data-dir"))
	if err != nil {
		return fmt.Errorf("error walking data directory: %w", err)
	}
	return importFiles(c, files)
}

func runS3(c *cli.Context) error {
	client, err := storage.NewS3Client(config.Load().Storage)
	if err != nil {
		return err
	}
	downloader, err := storage.NewDownloader(client, c.String("download-dir"))
	if err != nil {
		return err
	}

	files, err := downloader.Download(c.Context, c.String("prefix"), c.String("object"))
	if err != nil {
		return err
	}
	if err := importFiles(c, files); err != nil {
		return err
	}

	archivePrefix := c.String("archive-prefix")
	if archivePrefix == "" || len(files) == 0 {
		return nil
	}
	keys, err := downloader.Archive(c.Context, archivePrefix, files)
	if err != nil {
		return fmt.Errorf("imported files but archiving failed after %d objects: %w", len(keys), err)
	}
	logger.Log.Info().Int("objects", len(keys)).Str("prefix", archivePrefix).Msg("Archived imported files")
	return nil
}

func importFiles(c *cli.Context, files []string) error {
	if len(files) == 0 {
		logger.Log.Warn().Msg("No CSV files found")
		return nil
	}

	db, err := dbFromContext(c)
	if err != nil {
		return err
	}

	companyID := c.Int64("company-id")
	workers := c.Int("workers")

	logger.Log.Info().Int("files", len(files)).Int("workers", workers).Int64("company_id", companyID).Msg("Importing files")

	start := time.Now()
	summary, err := ingest.NewProcessor(db).ProcessFiles(c.Context, companyID, files, workers)
	if err != nil {
		return err
	}

	logger.Log.Info().
		Int("files", summary.Files).
		Int64("rows", summary.Rows).
		Dur("elapsed", time.Since(start)).
		Msg("Import finished")

	invalidateCache(c.Context, companyID)
	return nil
}

// invalidateCache drops cached analytics of the company so the next request
// sees the imported data.
func invalidateCache(ctx context.Context, companyID int64) {
	analyticsCache, err := cache.NewAnalyticsCache(config.Load().Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Analytics cache unavailable, skipping invalidation")
		return
	}
	if err := analyticsCache.InvalidateCompany(ctx, companyID); err != nil {
		logger.Log.Warn().Err(err).Int64("company_id", companyID).Msg("Failed to invalidate analytics cache")
	}
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/andresuchdata/stockcast/internal/dataset"
	"github.com/andresuchdata/stockcast/internal/storage"
	"github.com/andresuchdata/stockcast/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

type dbKey struct{}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newMigrationsDirFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "migrations-dir",
		Usage:   "Directory containing *.sql migration files",
		Value:   "./scripts/migrations",
		EnvVars: []string{"MIGRATIONS_DIR"},
	}
}

func newDataFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "data-dir",
			Usage:   "Directory containing sales.csv, recipes.csv and ingredients.csv",
			Value:   "./data",
			EnvVars: []string{"SEED_DATA_DIR"},
		},
		&cli.StringFlag{
			Name:  "s3-prefix",
			Usage: "Download the CSV files from this bucket prefix into --data-dir first",
		},
		&cli.StringFlag{Name: "s3-endpoint", EnvVars: []string{"S3_ENDPOINT"}},
		&cli.StringFlag{Name: "s3-access-key", EnvVars: []string{"S3_ACCESS_KEY"}},
		&cli.StringFlag{Name: "s3-secret-key", EnvVars: []string{"S3_SECRET_KEY"}},
		&cli.StringFlag{Name: "s3-bucket", EnvVars: []string{"S3_BUCKET"}},
		&cli.StringFlag{Name: "s3-region", EnvVars: []string{"S3_REGION"}},
		&cli.BoolFlag{Name: "s3-use-ssl", Value: true, EnvVars: []string{"S3_USE_SSL"}},
		&cli.StringFlag{
			Name:     "shop-id",
			Usage:    "Shop the data belongs to",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "shop-name",
			Usage: "Display name for the shop (defaults to the id)",
		},
		&cli.StringFlag{
			Name:  "timezone",
			Usage: "IANA timezone of the shop",
			Value: "UTC",
		},
	}
}

func initDB(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
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

func dbFrom(c *cli.Context) *sql.DB {
	db, _ := c.Context.Value(dbKey{}).(*sql.DB)
	return db
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		logger.Log.Debug().Err(err).Msg("no .env file loaded")
	}

	app := &cli.App{
		Name:  "seed",
		Usage: "Create the schema and load shop history into the database",
		Commands: []*cli.Command{
			{
				Name:   "schema",
				Usage:  "Apply SQL migrations",
				Flags:  []cli.Flag{newDBURLFlag(), newMigrationsDirFlag()},
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					return applyMigrations(c.Context, dbFrom(c), c.String("migrations-dir"))
				},
			},
			{
				Name:   "data",
				Usage:  "Load CSV history for one shop",
				Flags:  append([]cli.Flag{newDBURLFlag()}, newDataFlags()...),
				Before: initDB,
				After:  closeDB,
				Action: runDataSeed,
			},
			{
				Name:   "all",
				Usage:  "Apply migrations, then load CSV history",
				Flags:  append([]cli.Flag{newDBURLFlag(), newMigrationsDirFlag()}, newDataFlags()...),
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					if err := applyMigrations(c.Context, dbFrom(c), c.String("migrations-dir")); err != nil {
						return fmt.Errorf("error applying migrations: %w", err)
					}
					if err := runDataSeed(c); err != nil {
						return fmt.Errorf("error seeding data: %w", err)
					}
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("seed failed")
	}
}

func runDataSeed(c *cli.Context) error {
	dir := c.String("data-dir")
	if prefix := c.String("s3-prefix"); prefix != "" {
		store, err := storage.NewS3Client(storage.S3Config{
			Endpoint:  c.String("s3-endpoint"),
			AccessKey: c.String("s3-access-key"),
			SecretKey: c.String("s3-secret-key"),
			Bucket:    c.String("s3-bucket"),
			Region:    c.String("s3-region"),
			UseSSL:    c.Bool("s3-use-ssl"),
		})
		if err != nil {
			return err
		}
		if dir, err = storage.FetchDataset(c.Context, store, prefix, dir); err != nil {
			return err
		}
	}

	in, err := dataset.Load(dir)
	if err != nil {
		return err
	}

	shop := shopSeed{
		ID:       c.String("shop-id"),
		Name:     c.String("shop-name"),
		Timezone: c.String("timezone"),
	}
	return seedShop(c.Context, dbFrom(c), shop, in)
}

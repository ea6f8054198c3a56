package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/andresuchdata/stockcast/internal/batch"
	"github.com/andresuchdata/stockcast/internal/cache"
	"github.com/andresuchdata/stockcast/internal/dataset"
	"github.com/andresuchdata/stockcast/internal/drive"
	"github.com/andresuchdata/stockcast/internal/forecast"
	"github.com/andresuchdata/stockcast/internal/repository/postgres"
	"github.com/andresuchdata/stockcast/internal/service"
	"github.com/andresuchdata/stockcast/internal/storage"
	"github.com/andresuchdata/stockcast/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load(".env")

	// Logs go to stderr so stdout carries only the forecast JSON.
	logger.Configure(os.Stderr, false)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:  "days",
			Usage: "Forecast horizon, 7 or 30 (anything else means 7)",
			Value: forecast.HorizonWeek,
		},
		&cli.StringFlag{
			Name:    "timezone",
			Usage:   "IANA timezone used to bucket sales into local days",
			Value:   "UTC",
			EnvVars: []string{"FORECAST_DEFAULT_TIMEZONE"},
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Indent the JSON output",
		},
		&cli.StringFlag{
			Name:  "upload-key",
			Usage: "Also store the JSON output in the bucket under this key",
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "warn",
			EnvVars: []string{"LOG_LEVEL"},
		},
	}

	app := &cli.App{
		Name:  "forecast",
		Usage: "Project ingredient usage and reorder suggestions",
		Flags: append(flags, newS3Flags()...),
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "csv",
				Usage: "Forecast from sales.csv, recipes.csv and ingredients.csv",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "dir",
						Usage:   "Directory containing the CSV files",
						Value:   "./data",
						EnvVars: []string{"FORECAST_DATA_DIR"},
					},
					&cli.StringFlag{
						Name:  "s3-prefix",
						Usage: "Download the CSV files from this bucket prefix into --dir first",
					},
					&cli.StringFlag{
						Name:  "drive-folder",
						Usage: "Download the CSV (or XLSX) files from this Google Drive folder path into --dir first",
					},
					&cli.StringFlag{
						Name:    "drive-credentials",
						Usage:   "Service account key JSON for Google Drive",
						EnvVars: []string{"GOOGLE_DRIVE_CREDENTIALS_JSON"},
					},
				},
				Action: runCSV,
			},
			{
				Name:  "db",
				Usage: "Forecast a shop stored in the database",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db-url",
						Usage:    "Database connection string",
						Required: true,
						EnvVars:  []string{"DATABASE_URL"},
					},
					&cli.StringFlag{
						Name:  "shop-id",
						Usage: "Shop to forecast",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Forecast every shop and print one result per shop",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Shops forecast concurrently with --all",
						Value: 4,
					},
				},
				Action: runDB,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("forecast failed")
	}
}

func newS3Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "s3-endpoint", EnvVars: []string{"S3_ENDPOINT"}},
		&cli.StringFlag{Name: "s3-access-key", EnvVars: []string{"S3_ACCESS_KEY"}},
		&cli.StringFlag{Name: "s3-secret-key", EnvVars: []string{"S3_SECRET_KEY"}},
		&cli.StringFlag{Name: "s3-bucket", EnvVars: []string{"S3_BUCKET"}},
		&cli.StringFlag{Name: "s3-region", EnvVars: []string{"S3_REGION"}},
		&cli.BoolFlag{Name: "s3-use-ssl", Value: true, EnvVars: []string{"S3_USE_SSL"}},
	}
}

func newObjectStorage(c *cli.Context) (storage.ObjectStorage, error) {
	return storage.NewS3Client(storage.S3Config{
		Endpoint:  c.String("s3-endpoint"),
		AccessKey: c.String("s3-access-key"),
		SecretKey: c.String("s3-secret-key"),
		Bucket:    c.String("s3-bucket"),
		Region:    c.String("s3-region"),
		UseSSL:    c.Bool("s3-use-ssl"),
	})
}

// fetchDataset pulls the CSV files into --dir when a remote source is set.
func fetchDataset(c *cli.Context) (string, error) {
	dir := c.String("dir")

	switch {
	case c.String("s3-prefix") != "":
		store, err := newObjectStorage(c)
		if err != nil {
			return "", err
		}
		return storage.FetchDataset(c.Context, store, c.String("s3-prefix"), dir)
	case c.String("drive-folder") != "":
		svc, err := drive.NewService(c.Context, c.String("drive-credentials"))
		if err != nil {
			return "", err
		}
		folder, err := drive.OpenFolder(c.Context, svc, c.String("drive-folder"))
		if err != nil {
			return "", err
		}
		return storage.FetchDataset(c.Context, folder, "", dir)
	default:
		return dir, nil
	}
}

func runCSV(c *cli.Context) error {
	dir, err := fetchDataset(c)
	if err != nil {
		return err
	}

	in, err := dataset.Load(dir)
	if err != nil {
		return err
	}
	in.Timezone = c.String("timezone")
	in.Days = forecast.NormalizeDays(c.Int("days"))

	out, err := forecast.Forecast(in)
	if err != nil {
		return err
	}
	return emit(c, out)
}

func runDB(c *cli.Context) error {
	sqlDB, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(c.Context); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	sqlDB.SetConnMaxLifetime(time.Minute)

	db := postgres.Wrap(sqlx.NewDb(sqlDB, "pgx"), int64(3*max(c.Int("workers"), 1)))
	svc := service.NewForecastService(
		postgres.NewForecastRepository(db),
		cache.NewNoopForecastCache(),
		c.String("timezone"),
	)

	if c.Bool("all") {
		shopIDs, err := svc.ListShopIDs(c.Context)
		if err != nil {
			return err
		}
		results, err := batch.NewRunner(svc, c.Int("workers")).Run(c.Context, shopIDs, c.Int("days"))
		if err != nil {
			return err
		}
		return emit(c, results)
	}

	if c.String("shop-id") == "" {
		return fmt.Errorf("either --shop-id or --all is required")
	}
	out, err := svc.GetForecast(c.Context, c.String("shop-id"), c.Int("days"))
	if err != nil {
		return err
	}
	return emit(c, out)
}

// emit prints out and, when --upload-key is set, stores the same bytes in
// the bucket.
func emit(c *cli.Context, out any) error {
	var buf bytes.Buffer
	if err := writeJSON(&buf, out, c.Bool("pretty")); err != nil {
		return err
	}

	if key := c.String("upload-key"); key != "" {
		store, err := newObjectStorage(c)
		if err != nil {
			return err
		}
		if err := upload(c.Context, store, key, buf.Bytes()); err != nil {
			return err
		}
	}

	_, err := c.App.Writer.Write(buf.Bytes())
	return err
}

func upload(ctx context.Context, store storage.ObjectStorage, key string, data []byte) error {
	if err := store.PutObject(ctx, key, data); err != nil {
		return err
	}
	logger.Log.Info().Str("key", key).Int("bytes", len(data)).Msg("Uploaded forecast")
	return nil
}

func writeJSON(w io.Writer, out any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to write forecast: %w", err)
	}
	return nil
}

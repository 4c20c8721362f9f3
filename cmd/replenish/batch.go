package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/replenish/internal/cache"
	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/drive"
	"github.com/andresuchdata/replenish/internal/ingest"
	"github.com/andresuchdata/replenish/internal/pipeline"
	"github.com/andresuchdata/replenish/internal/repository/postgres"
	"github.com/andresuchdata/replenish/internal/storage"
)

func batchCommand() *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Analyze many exports from a directory, S3 prefix or Drive folder",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "source",
				Usage:    "DIR, s3://prefix, drive://folder-id or drive://Folder/Path",
				Required: true,
			},
			&cli.StringFlag{Name: "po", Usage: "Purchase-order export applied to every file"},
			&cli.StringSliceFlag{Name: "lead", Usage: "Vendor lead-time override as VENDOR=WEEKS (repeatable)"},
			&cli.StringFlag{
				Name:    "out",
				Usage:   "Output directory for per-file and combined CSVs",
				EnvVars: []string{"PIPELINE_OUTPUT_DIR"},
			},
			&cli.IntFlag{
				Name:    "workers",
				Usage:   "Number of concurrent workers",
				EnvVars: []string{"PIPELINE_WORKER_COUNT"},
			},
			&cli.StringFlag{
				Name:    "db-url",
				Usage:   "Postgres connection string; results are saved when set",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.BoolFlag{Name: "upload", Usage: "Upload the combined CSV to the S3 bucket"},
			&cli.BoolFlag{Name: "refresh", Usage: "Drop cached analyses before running"},
		},
		Action: runBatch,
	}
}

func runBatch(c *cli.Context) error {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, engCfg, err := engineConfig(c)
	if err != nil {
		return err
	}
	overrides, err := parseLeadOverrides(c.StringSlice("lead"))
	if err != nil {
		return err
	}

	pcfg := pipeline.Config{
		WorkerCount:   cfg.Pipeline.WorkerCount,
		BatchSize:     cfg.Pipeline.BatchSize,
		OutputDir:     cfg.Pipeline.OutputDir,
		RetryAttempts: cfg.Pipeline.RetryAttempts,
	}
	if out := c.String("out"); out != "" {
		pcfg.OutputDir = out
	}
	if n := c.Int("workers"); n > 0 {
		pcfg.WorkerCount = n
	}

	source, err := buildSource(ctx, cfg, c.String("source"))
	if err != nil {
		return err
	}
	files, err := source.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list source %s: %w", source.Name(), err)
	}
	if len(files) == 0 {
		log.Warn().Str("source", source.Name()).Msg("no files to process")
		return nil
	}

	analysisCache, err := cache.NewAnalysisCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("analysis cache unavailable, continuing without it")
		analysisCache = cache.NewNoopAnalysisCache()
	}
	if c.Bool("refresh") {
		if err := analysisCache.InvalidateAll(ctx); err != nil {
			return fmt.Errorf("failed to invalidate analysis cache: %w", err)
		}
	}

	opts := []pipeline.Option{
		pipeline.WithCache(analysisCache),
		pipeline.WithLeadOverrides(overrides),
	}

	if poPath := c.String("po"); poPath != "" {
		content, err := os.ReadFile(poPath)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", poPath, err)
		}
		pos, stats, err := ingest.LoadPurchaseOrders(poPath)
		if err != nil {
			return err
		}
		log.Info().Str("file", poPath).Int("parsed", stats.Parsed).Int("skipped", stats.Skipped).Msg("purchase orders loaded")
		opts = append(opts, pipeline.WithPurchaseOrders(pos, content))
	}

	if dbURL := c.String("db-url"); dbURL != "" {
		db, err := postgres.NewDB(ctx, dbURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		opts = append(opts, pipeline.WithSink(postgres.NewRunRepository(db)))
	}

	summary, err := pipeline.NewWorker(pcfg, engCfg, opts...).Run(ctx, source.Name(), files)
	if summary != nil {
		printSummary(c, summary)
	}
	if err != nil {
		return err
	}

	if c.Bool("upload") {
		if err := uploadCombined(ctx, cfg, summary.CombinedPath); err != nil {
			return err
		}
	}
	return nil
}

func buildSource(ctx context.Context, cfg *config.Config, uri string) (pipeline.Source, error) {
	kind, location := pipeline.SourceKind(uri)
	switch kind {
	case "s3":
		client, err := newS3Client(cfg)
		if err != nil {
			return nil, err
		}
		dl, err := storage.NewDownloader(client, filepath.Join(cfg.Pipeline.WorkDir, "s3"))
		if err != nil {
			return nil, err
		}
		return pipeline.ObjectSource{Downloader: dl, Prefix: location}, nil
	case "drive":
		if location == "" {
			location = cfg.Drive.FolderID
		}
		svc, err := drive.NewServiceFromFile(ctx, cfg.Drive.CredentialsFile)
		if err != nil {
			return nil, err
		}
		if strings.Contains(location, "/") {
			if location, err = svc.FindFolderByPath(ctx, location); err != nil {
				return nil, err
			}
		}
		return pipeline.DriveSource{
			Downloader: drive.NewDownloader(svc),
			FolderID:   location,
			Dir:        filepath.Join(cfg.Pipeline.WorkDir, "drive"),
		}, nil
	default:
		return pipeline.DirSource{Dir: location}, nil
	}
}

func newS3Client(cfg *config.Config) (*storage.S3Client, error) {
	return storage.NewS3Client(storage.S3Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		UseSSL:    cfg.Storage.UseSSL,
	})
}

func uploadCombined(ctx context.Context, cfg *config.Config, localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localPath, err)
	}
	client, err := newS3Client(cfg)
	if err != nil {
		return err
	}
	key := path.Join(cfg.Storage.Prefix, "results", filepath.Base(localPath))
	if err := client.UploadObject(ctx, key, data); err != nil {
		return err
	}
	log.Info().Str("key", key).Int("bytes", len(data)).Msg("combined results uploaded")
	return nil
}

func printSummary(c *cli.Context, s *pipeline.RunSummary) {
	w := c.App.Writer
	fmt.Fprintf(w, "run %s: %d files, %d failed, %d rows\n", s.RunID, s.Files, s.Failed, s.Rows)
	for _, job := range s.Jobs {
		if job.ErrorMessage != "" {
			fmt.Fprintf(w, "  %-8s %s: %s\n", job.Status, job.FilePath, job.ErrorMessage)
			continue
		}
		fmt.Fprintf(w, "  %-8s %s (%d rows)\n", job.Status, job.FilePath, job.Rows)
	}
	if s.CombinedPath != "" && s.Rows > 0 {
		fmt.Fprintf(w, "combined: %s\n", s.CombinedPath)
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli"

	"ocflbench/benchmark"
	"ocflbench/config"
	"ocflbench/filespec"
	"ocflbench/progress"
	"ocflbench/repo"
	"ocflbench/report"
	"ocflbench/storage"
)

// repoRootName is the directory the fs backend creates its repository in,
// below --dir.
const repoRootName = "ocfl-root"

var (
	iterationsFlag = cli.Int64Flag{Name: "iterations", Usage: "number of measured writes per worker"}
	warmupFlag     = cli.Int64Flag{Name: "warmup", Usage: "number of unmeasured warmup writes per worker"}
	threadsFlag    = cli.IntFlag{Name: "threads", Usage: "number of concurrent workers"}

	procThreadsFlag = cli.IntFlag{
		Name:  "processing-threads",
		Value: 1,
		Usage: "per-worker upload pool size; more than 1 uploads an object's files concurrently",
	}

	filesFlag = cli.StringSliceFlag{
		Name:  "files",
		Usage: "test object composition as size=count pairs, e.g. '10MB=2,1KB=3'; units are B, KB, MB and GB",
	}

	tempFlag      = cli.StringFlag{Name: "temp", Usage: "directory test objects are generated in"}
	rateLimitFlag = cli.IntFlag{Name: "rate-limit", Usage: "max writes per second across all workers (0 means no limit)"}
	keepFlag      = cli.BoolFlag{Name: "keep", Usage: "keep the fs repository directory after the run"}

	backendFlag = cli.StringFlag{
		Name:  "backend",
		Value: storage.BackendFS,
		Usage: "storage backend: fs, s3, oci, gcs or azure",
	}
	dirFlag       = cli.StringFlag{Name: "dir", Usage: "directory to create the fs repository in"}
	bucketFlag    = cli.StringFlag{Name: "bucket, s3-bucket", Usage: "bucket (or Azure container) to write to"}
	prefixFlag    = cli.StringFlag{Name: "prefix, s3-prefix", Usage: "key prefix to create the repository under"}
	regionFlag    = cli.StringFlag{Name: "region, s3-region", Usage: "AWS region"}
	endpointFlag  = cli.StringFlag{Name: "endpoint, s3-endpoint", Usage: "service endpoint; only needed for non-default endpoints"}
	pathStyleFlag = cli.BoolFlag{Name: "s3-path-style", Usage: "use S3 path-style addressing"}
	profileFlag   = cli.StringFlag{Name: "s3-profile", Value: "default", Usage: "AWS profile to load credentials from"}
	namespaceFlag = cli.StringFlag{Name: "oci-namespace", Usage: "OCI namespace; looked up when not set"}
	ociConfigFlag = cli.StringFlag{Name: "oci-config-file", Value: "~/.oci/config", Usage: "path to the OCI config file"}

	configFlag   = cli.StringFlag{Name: "config", Usage: "YAML run file with default settings; flags override it"}
	logLevelFlag = cli.StringFlag{Name: "log-level", Value: "info", Usage: "log level: debug, info, warn or error"}
)

func main() {
	app := cli.NewApp()
	app.Name = "ocflbench"
	app.Usage = "write load test for OCFL object repositories"
	app.Description = "Generates a test object matching --files and writes it to fresh object ids " +
		"in the repository from --threads workers. Only the writes of the measurement phase " +
		"are timed; each object is purged again after it is written."
	app.Flags = []cli.Flag{
		iterationsFlag, warmupFlag, threadsFlag, procThreadsFlag, filesFlag, tempFlag,
		rateLimitFlag, keepFlag,
		backendFlag, dirFlag, bucketFlag, prefixFlag, regionFlag, endpointFlag, pathStyleFlag,
		profileFlag, namespaceFlag, ociConfigFlag,
		configFlag, logLevelFlag,
	}
	app.Action = runLoadTest

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runLoadTest(c *cli.Context) error {
	logger, err := newLogger(c.String(logLevelFlag.Name))
	if err != nil {
		return err
	}

	rf := &config.RunFile{}
	if path := c.String(configFlag.Name); path != "" {
		if rf, err = config.LoadRunFile(path); err != nil {
			return err
		}
	}

	pairs := rf.Files
	if c.IsSet(filesFlag.Name) || len(pairs) == 0 {
		if pairs, err = filespec.ParsePairs(c.StringSlice(filesFlag.Name)); err != nil {
			return err
		}
	}
	files, err := filespec.Resolve(pairs)
	if err != nil {
		return err
	}

	params := benchmark.BenchmarkParams{
		Workers:           intOpt(c, threadsFlag.Name, rf.Threads),
		WarmupIterations:  int64Opt(c, warmupFlag.Name, rf.Warmup),
		Iterations:        int64Opt(c, iterationsFlag.Name, rf.Iterations),
		ProcessingThreads: intOpt(c, procThreadsFlag.Name, rf.ProcessingThreads),
		Files:             files,
		TempDir:           stringOpt(c, tempFlag.Name, rf.Temp),
	}
	if params.TempDir, err = config.ExpandHome(params.TempDir); err != nil {
		return err
	}

	storageCfg, fsRoot, err := storageConfig(c, rf.Storage)
	if err != nil {
		return err
	}

	// Set system resource limits for high-performance testing
	if err := benchmark.SetMaxResources(logger); err != nil {
		logger.Warn("failed to adjust system resources", slog.Any("err", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, storageCfg)
	if err != nil {
		return err
	}
	r := repo.New(store, repo.WithLogger(logger))

	bar := progress.NewProgressBar(os.Stdout, int64(params.Workers)*params.Iterations).SetCaption("Writing")
	lt, err := benchmark.NewLoadTest(r, params,
		benchmark.WithLogger(logger),
		benchmark.WithRateLimit(intOpt(c, rateLimitFlag.Name, rf.RateLimit)),
		benchmark.WithProgress(bar.Tick),
	)
	if err != nil {
		bar.Finish()
		return err
	}

	logger.Info("running load test",
		slog.String("backend", storageCfg.Backend),
		slog.Int("threads", params.Workers),
		slog.Int64("iterations", params.Iterations),
		slog.Int64("warmup", params.WarmupIterations),
		slog.String("files", files.String()),
		slog.String("temp", params.TempDir))

	res, err := lt.Run(ctx)
	bar.Finish()
	if err != nil {
		return err
	}

	if fsRoot != "" && !boolOpt(c, keepFlag.Name, rf.Keep) {
		if err := os.RemoveAll(fsRoot); err != nil {
			logger.Warn("failed to remove repository directory", slog.String("dir", fsRoot), slog.Any("err", err))
		}
	}

	fmt.Println()
	if err := report.DisplayLatency(os.Stdout, res.Histogram); err != nil {
		return err
	}
	fmt.Println()
	report.DisplayResults(os.Stdout, "Write", res.Succeeded+res.Failed, res.Failed, res.Elapsed,
		res.Succeeded*res.ObjectBytes)
	return nil
}

// storageConfig merges the storage flags over the run file. For the fs
// backend it also returns the repository directory created below --dir.
func storageConfig(c *cli.Context, sf config.StorageFile) (storage.Config, string, error) {
	cfg := storage.Config{
		Backend:       stringOpt(c, backendFlag.Name, sf.Backend),
		Bucket:        stringOpt(c, "bucket", sf.Bucket),
		Prefix:        stringOpt(c, "prefix", sf.Prefix),
		Region:        stringOpt(c, "region", sf.Region),
		Endpoint:      stringOpt(c, "endpoint", sf.Endpoint),
		PathStyle:     boolOpt(c, pathStyleFlag.Name, sf.PathStyle),
		Profile:       stringOpt(c, profileFlag.Name, sf.Profile),
		Namespace:     stringOpt(c, namespaceFlag.Name, sf.Namespace),
		OCIConfigFile: stringOpt(c, ociConfigFlag.Name, sf.OCIConfig),
	}
	if cfg.Backend != storage.BackendFS {
		if cfg.Bucket == "" {
			return cfg, "", fmt.Errorf("--bucket is required for the %s backend", cfg.Backend)
		}
		return cfg, "", nil
	}

	dir, err := config.ExpandHome(stringOpt(c, dirFlag.Name, sf.Dir))
	if err != nil {
		return cfg, "", err
	}
	if dir == "" {
		return cfg, "", fmt.Errorf("--%s is required for the fs backend", dirFlag.Name)
	}
	cfg.Dir = filepath.Join(dir, repoRootName)
	return cfg, cfg.Dir, nil
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

// The *Opt helpers return the flag value when it was given on the command
// line or the run file leaves the setting empty, and the run file value
// otherwise.

func intOpt(c *cli.Context, name string, file int) int {
	if c.IsSet(name) || file == 0 {
		return c.Int(name)
	}
	return file
}

func int64Opt(c *cli.Context, name string, file int64) int64 {
	if c.IsSet(name) || file == 0 {
		return c.Int64(name)
	}
	return file
}

func stringOpt(c *cli.Context, name, file string) string {
	if c.IsSet(name) || file == "" {
		return c.String(name)
	}
	return file
}

func boolOpt(c *cli.Context, name string, file bool) bool {
	return c.Bool(name) || file
}

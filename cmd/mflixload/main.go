// MFlix dataset loader for cinedex.
// Reads collection dumps (NDJSON or parquet) from a data directory and
// loads them into Redis as JSON documents under the cinedex key layout.
//
// Usage:
//
//	mflixload -data-dir /data -workers 4 -batch-size 200
//
// Env vars:
//
//	REDIS_ADDR     — Redis address (default: localhost:6379)
//	REDIS_PASSWORD — Redis password
//	KEY_PREFIX     — document key prefix (default: cinedex:)
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/cinedex-io/cinedex/internal/catalog"
	dbRedis "github.com/cinedex-io/cinedex/internal/db/redis"
)

func main() {
	cfg := parseFlags()

	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGTERM, syscall.SIGINT,
	)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		cancel()
		log.Fatal(err)
	}
}

type config struct {
	dataDir   string
	workers   int
	batchSize int
	maxRows   int
	rateLimit int
	keyPrefix string
}

func parseFlags() config {
	cfg := config{}
	flag.StringVar(&cfg.dataDir, "data-dir", "/data", "directory with collection dumps")
	flag.IntVar(&cfg.workers, "workers", 4, "number of parallel write workers")
	flag.IntVar(&cfg.batchSize, "batch-size", 200, "documents per pipelined write")
	flag.IntVar(&cfg.maxRows, "max-rows", 0, "max documents per collection (0=unlimited)")
	flag.IntVar(&cfg.rateLimit, "rate", 0, "max documents per second (0=unlimited)")
	flag.StringVar(&cfg.keyPrefix, "key-prefix", env("KEY_PREFIX", "cinedex:"), "document key prefix")
	flag.Parse()
	return cfg
}

func run(ctx context.Context, cfg config) error {
	start := time.Now()

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    []string{env("REDIS_ADDR", "localhost:6379")},
		Password: env("REDIS_PASSWORD", ""),
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, 10*time.Second); err != nil {
		return fmt.Errorf("redis not ready: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.rateLimit), cfg.batchSize)
	}

	ing := &ingester{
		writer:    store,
		workers:   cfg.workers,
		batchSize: cfg.batchSize,
		keyPrefix: cfg.keyPrefix,
		limiter:   limiter,
	}

	var totalLoaded, totalFailed int64
	for _, coll := range catalog.Collections() {
		path, found := findDump(cfg.dataDir, coll)
		if !found {
			log.Printf("%s: no dump found, skipping", coll)
			continue
		}

		log.Printf("=== %s (%s) ===", coll, filepath.Base(path))
		result, err := ing.Load(ctx, coll, path, cfg.maxRows)
		if err != nil {
			return fmt.Errorf("load %s: %w", coll, err)
		}
		log.Printf("%s: %d loaded, %d failed in %s",
			coll, result.Loaded, result.Failed, result.Duration.Round(time.Millisecond))
		totalLoaded += result.Loaded
		totalFailed += result.Failed
	}

	log.Printf("DONE in %s: %d loaded, %d failed",
		time.Since(start).Round(time.Second), totalLoaded, totalFailed)
	return nil
}

// findDump locates a collection dump, preferring NDJSON over parquet.
func findDump(dataDir, collection string) (string, bool) {
	for _, ext := range []string{".ndjson", ".json", ".parquet"} {
		path := filepath.Join(dataDir, collection+ext)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Worker pool writing document batches to Redis.
// Reader -> channel([]db.SetItem) -> N workers -> pipelined SET.
package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/cinedex-io/cinedex/internal/db"
)

// ingester is the batch write pipeline.
type ingester struct {
	writer    db.DocumentWriter
	workers   int
	batchSize int
	keyPrefix string
	limiter   *rate.Limiter
}

// loadResult holds per-collection totals.
type loadResult struct {
	Loaded   int64
	Failed   int64
	Duration time.Duration
}

// Load reads one collection dump and writes it through the worker pool.
func (ing *ingester) Load(
	ctx context.Context, collection, path string, maxRows int,
) (loadResult, error) {
	start := time.Now()

	batches := make(chan []db.SetItem, ing.workers*2)
	var wg sync.WaitGroup
	var loaded, failed atomic.Int64

	for i := 0; i < ing.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			ing.worker(ctx, workerID, batches, &loaded, &failed)
		}(i)
	}

	var readerErr error
	go func() {
		defer close(batches)
		readerErr = ing.produce(ctx, collection, path, maxRows, batches)
	}()

	wg.Wait()

	result := loadResult{
		Loaded:   loaded.Load(),
		Failed:   failed.Load(),
		Duration: time.Since(start),
	}
	if readerErr != nil {
		return result, readerErr
	}
	return result, nil
}

// produce reads the dump and assembles key/value batches. Documents
// without a usable _id get a generated one.
func (ing *ingester) produce(
	ctx context.Context, collection, path string, maxRows int,
	out chan<- []db.SetItem,
) error {
	batch := make([]db.SetItem, 0, ing.batchSize)
	rows := 0
	var skipped int

	err := readDump(path, func(doc map[string]any) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		if err := ing.limiter.Wait(ctx); err != nil {
			return false
		}

		value, err := json.Marshal(doc)
		if err != nil {
			skipped++
			return true
		}

		batch = append(batch, db.SetItem{
			Key:   ing.keyPrefix + "doc:" + collection + ":" + docID(doc),
			Value: value,
		})
		rows++

		if len(batch) >= ing.batchSize {
			out <- batch
			batch = make([]db.SetItem, 0, ing.batchSize)
		}
		return maxRows == 0 || rows < maxRows
	})

	if len(batch) > 0 {
		out <- batch
	}
	if skipped > 0 {
		log.Printf("%s: skipped %d unmarshalable documents", collection, skipped)
	}

	if err != nil {
		return fmt.Errorf("read dump: %w", err)
	}
	return nil
}

// worker drains batches from the channel.
func (ing *ingester) worker(
	ctx context.Context,
	id int,
	batches <-chan []db.SetItem,
	loaded, failed *atomic.Int64,
) {
	for batch := range batches {
		if err := ing.writer.SetMulti(ctx, batch); err != nil {
			log.Printf("worker %d: batch write error: %v", id, err)
			failed.Add(int64(len(batch)))
			continue
		}
		total := loaded.Add(int64(len(batch)))
		if total%10000 < int64(ing.batchSize) {
			log.Printf("  %d written", total)
		}
	}
}

// docID extracts the document id, tolerating Mongo export shapes like
// {"_id": {"$oid": "..."}}. Missing ids get a random one.
func docID(doc map[string]any) string {
	switch id := doc["_id"].(type) {
	case string:
		if id != "" {
			return id
		}
	case map[string]any:
		if oid, ok := id["$oid"].(string); ok && oid != "" {
			// Store the flat form so joins on _id work.
			doc["_id"] = oid
			return oid
		}
	case float64:
		return fmt.Sprintf("%.0f", id)
	}
	id := uuid.NewString()
	doc["_id"] = id
	return id
}

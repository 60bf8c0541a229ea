package indexing

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/gcbaptista/go-shard-query/model"
)

// BulkConfig contains configuration for bulk indexing.
type BulkConfig struct {
	BatchSize        int // documents analyzed and written per batch
	WorkerCount      int // goroutines analyzing a batch
	ProgressCallback func(processed, total int)
}

// DefaultBulkConfig returns sensible defaults for bulk indexing.
func DefaultBulkConfig() BulkConfig {
	return BulkConfig{
		BatchSize:   1000,
		WorkerCount: runtime.NumCPU(),
	}
}

// AddDocumentsBulk analyzes documents on several workers and writes them
// batch by batch, in input order. Batches written before a failure stay indexed.
func (s *Service) AddDocumentsBulk(docs []model.Document, cfg BulkConfig) error {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBulkConfig().BatchSize
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}

	for start := 0; start < len(docs); start += cfg.BatchSize {
		end := min(start+cfg.BatchSize, len(docs))
		analyzed, err := s.analyzeParallel(docs[start:end], cfg.WorkerCount)
		if err != nil {
			return fmt.Errorf("failed to analyze batch starting at %d: %w", start, err)
		}
		if err := s.apply(analyzed); err != nil {
			return fmt.Errorf("failed to write batch starting at %d: %w", start, err)
		}
		if cfg.ProgressCallback != nil {
			cfg.ProgressCallback(end, len(docs))
		}
	}
	return nil
}

func (s *Service) analyzeParallel(docs []model.Document, workers int) ([]analyzedDocument, error) {
	analyzed := make([]analyzedDocument, len(docs))
	errs := make([]error, len(docs))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(workers, len(docs)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				analyzed[i], errs[i] = s.analyze(docs[i])
			}
		}()
	}
	for i := range docs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("document at position %d: %w", i, err)
		}
	}
	return analyzed, nil
}

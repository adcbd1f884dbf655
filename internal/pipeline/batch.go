package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/hotel-reports/internal/entity"
)

// FileProcessor is what Batch needs from a per-file pipeline.
type FileProcessor interface {
	Process(ctx context.Context, file entity.UploadedFile) (entity.ProcessedReport, error)
}

// Batch runs the per-file pipeline for all files of an upload and aggregates all-or-nothing.
type Batch struct {
	Logger         *slog.Logger
	Processor      FileProcessor
	MaxConcurrency int // 0 means every file at once
}

func NewBatch(logger *slog.Logger, processor FileProcessor, maxConcurrency int) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	return &Batch{Logger: logger, Processor: processor, MaxConcurrency: maxConcurrency}
}

// ProcessAll starts every file, waits for all of them, and returns the reports in input
// order. If any file fails the result is a *BatchError carrying the first failure and no
// reports at all. Files still running when another fails are not cancelled.
func (b *Batch) ProcessAll(ctx context.Context, files []entity.UploadedFile) (entity.BatchResult, error) {
	if len(files) == 0 {
		return entity.BatchResult{}, ErrNoFiles
	}

	start := time.Now()
	b.Logger.Info("batch.start", "files", len(files), "max_concurrency", b.MaxConcurrency)

	reports := make([]entity.ProcessedReport, len(files))

	var (
		mu       sync.Mutex
		firstErr *FileProcessingError
	)

	// Plain Group, no derived context: a failing file does not cancel its siblings.
	var g errgroup.Group
	if b.MaxConcurrency > 0 {
		g.SetLimit(b.MaxConcurrency)
	}
	for i, f := range files {
		g.Go(func() error {
			rep, err := b.Processor.Process(ctx, f)
			if err != nil {
				fpe := asFileError(f.Name, err)
				mu.Lock()
				if firstErr == nil {
					firstErr = fpe
				}
				mu.Unlock()
				return fpe
			}
			reports[i] = rep
			return nil
		})
	}
	_ = g.Wait()

	if firstErr != nil {
		b.Logger.Error("batch.failed",
			"files", len(files),
			"file", firstErr.FileName,
			"error", firstErr.Err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.BatchResult{}, &BatchError{Err: firstErr}
	}

	b.Logger.Info("batch.ok", "files", len(files), "elapsed_ms", time.Since(start).Milliseconds())
	return entity.BatchResult{Reports: reports}, nil
}

func asFileError(name string, err error) *FileProcessingError {
	var fpe *FileProcessingError
	if errors.As(err, &fpe) {
		return fpe
	}
	return &FileProcessingError{FileName: name, Err: err}
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/hotel-reports/internal/entity"
	"github.com/joseph-ayodele/hotel-reports/internal/llm"
)

// Processor turns one uploaded file into a ProcessedReport: read bytes, then extract.
type Processor struct {
	Logger       *slog.Logger
	Extractor    llm.DocumentExtractor
	MaxFileBytes int64 // 0 disables the limit
}

func NewProcessor(logger *slog.Logger, extractor llm.DocumentExtractor, maxFileBytes int64) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Extractor: extractor, MaxFileBytes: maxFileBytes}
}

// Process never returns a report on failure. Every error is a *FileProcessingError naming the file.
func (p *Processor) Process(ctx context.Context, file entity.UploadedFile) (entity.ProcessedReport, error) {
	start := time.Now()

	doc, err := p.read(file)
	if err != nil {
		p.Logger.Error("pipeline.file.read_failed", "file", file.Name, "error", err)
		return entity.ProcessedReport{}, &FileProcessingError{FileName: file.Name, Err: err}
	}

	p.Logger.Info("pipeline.file.start", "file", file.Name, "mime_type", file.MIMEType, "bytes", len(doc))

	data, _, err := p.Extractor.Extract(ctx, llm.ExtractRequest{
		Document: doc,
		MIMEType: file.MIMEType,
		FileName: file.Name,
	})
	if err != nil {
		p.Logger.Error("pipeline.file.failed",
			"file", file.Name, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ProcessedReport{}, &FileProcessingError{FileName: file.Name, Err: err}
	}

	p.Logger.Info("pipeline.file.ok",
		"file", file.Name,
		"detailed_rows", len(data.DetailedData),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return entity.ProcessedReport{FileName: file.Name, Data: data}, nil
}

func (p *Processor) read(file entity.UploadedFile) ([]byte, error) {
	if file.Open == nil {
		return nil, &ReadError{FileName: file.Name, Err: errors.New("file has no content")}
	}
	rc, err := file.Open()
	if err != nil {
		return nil, &ReadError{FileName: file.Name, Err: err}
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			p.Logger.Warn("pipeline.file.close_error", "file", file.Name, "error", cerr)
		}
	}()

	var r io.Reader = rc
	if p.MaxFileBytes > 0 {
		r = io.LimitReader(rc, p.MaxFileBytes+1)
	}
	doc, err := io.ReadAll(r)
	if err != nil {
		return nil, &ReadError{FileName: file.Name, Err: err}
	}
	if p.MaxFileBytes > 0 && int64(len(doc)) > p.MaxFileBytes {
		return nil, &ReadError{FileName: file.Name, Err: fmt.Errorf("file exceeds %d bytes", p.MaxFileBytes)}
	}
	if len(doc) == 0 {
		return nil, &ReadError{FileName: file.Name, Err: errors.New("file is empty")}
	}
	return doc, nil
}

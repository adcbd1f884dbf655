package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joseph-ayodele/hotel-reports/internal/common"
	"github.com/joseph-ayodele/hotel-reports/internal/entity"
	"github.com/joseph-ayodele/hotel-reports/internal/llm/provider"
	"github.com/joseph-ayodele/hotel-reports/internal/pipeline"
)

// extract runs one report through the configured provider one or more times, which is
// handy for checking how stable a model's answers are, then prints the last result.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: extract <report.pdf> [times]")
		os.Exit(2)
	}
	path := os.Args[1]
	times := 1
	if len(os.Args) >= 3 {
		if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
			times = n
		}
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	extractor, err := provider.New(cfg.LLM, logger)
	if err != nil {
		logger.Error("create extraction client", "error", err)
		os.Exit(1)
	}
	processor := pipeline.NewProcessor(logger, extractor, cfg.Batch.MaxFileBytes())

	base := filepath.Base(path)
	var (
		last     entity.ProcessedReport
		failures int
	)
	for i := 1; i <= times; i++ {
		runCtx, cancelRun := context.WithTimeout(context.Background(), cfg.LLM.Timeout+30*time.Second)
		start := time.Now()
		logger.Info("extract.run.start", "iter", i, "basename", base)

		rep, err := processor.Process(runCtx, entity.FileFromPath(path))
		cancelRun()
		if err != nil {
			failures++
			logger.Error("extract.run.failed", "iter", i, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
			continue
		}
		last = rep
		logger.Info("extract.run.ok",
			"iter", i,
			"period", rep.Data.KPIs.AnalysisPeriod,
			"total_revenue", rep.Data.KPIs.TotalRevenue,
			"detailed_rows", len(rep.Data.DetailedData),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}

	logger.Info("extract.done", "runs", times, "failures", failures)
	if failures == times {
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(last); err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
}

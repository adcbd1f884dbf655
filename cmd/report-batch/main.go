package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/hotel-reports/internal/common"
	"github.com/joseph-ayodele/hotel-reports/internal/export"
	"github.com/joseph-ayodele/hotel-reports/internal/ingest"
	"github.com/joseph-ayodele/hotel-reports/internal/llm/provider"
	"github.com/joseph-ayodele/hotel-reports/internal/pipeline"
	"github.com/joseph-ayodele/hotel-reports/internal/session"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir        = flag.String("dir", "", "directory to read PDF reports from")
		out        = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		msgpackOut = flag.String("msgpack", "", "also write the reports as MessagePack to this path")
		skipHidden = flag.Bool("skip-hidden", true, "skip hidden files and directories")
	)
	flag.Parse()

	paths := flag.Args()
	if *dir == "" && len(paths) == 0 {
		printError("Error: --dir or at least one PDF path is required\n")
		os.Exit(1)
	}
	if *dir != "" {
		paths = append([]string{*dir}, paths...)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(strings.TrimRight(paths[0], string(filepath.Separator))), "hotel-reports.xlsx")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	extractor, err := provider.New(cfg.LLM, logger)
	if err != nil {
		logger.Error("failed to create extraction client", "error", err)
		os.Exit(1)
	}

	files, stats, err := ingest.CollectPaths(paths, *skipHidden)
	if err != nil {
		logger.Error("failed to collect files", "error", err)
		os.Exit(1)
	}
	logger.Info("collection complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"skipped", stats.Skipped,
		"failed", stats.Failed)

	accepted, rejected, err := session.FilterAccepted(files)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if len(rejected) > 0 {
		logger.Warn("ignoring files that are not PDFs", "files", rejected)
	}

	batch := pipeline.NewBatch(logger, pipeline.NewProcessor(logger, extractor, cfg.Batch.MaxFileBytes()), cfg.Batch.MaxConcurrency)
	res, err := batch.ProcessAll(ctx, accepted)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	exporter := export.NewService(logger)
	xlsxBytes, err := exporter.ExportReportsXLSX(res.Reports)
	if err != nil {
		logger.Error("failed to export reports", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	if *msgpackOut != "" {
		mp, err := exporter.EncodeReportsMsgpack(res.Reports)
		if err != nil {
			logger.Error("failed to encode msgpack", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*msgpackOut, mp, 0o644); err != nil {
			logger.Error("failed to write msgpack file", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("batch processing complete", "reports", len(res.Reports), "output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	for _, r := range res.Reports {
		period := ""
		if r.Data.KPIs != nil {
			period = r.Data.KPIs.AnalysisPeriod
		}
		fmt.Printf("- %s: %s (%d categories)\n", r.FileName, period, len(r.Data.DetailedData))
	}
	fmt.Printf("- Output: %s\n", *out)
}

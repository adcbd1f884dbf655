package export

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/hotel-reports/internal/entity"
)

// ErrNoReports is returned when there is nothing to export.
var ErrNoReports = errors.New("no reports to export")

const (
	summarySheet  = "Summary"
	maxSheetName  = 31
	sheetNameJunk = `[]:*?/\`
)

// Service produces downloadable encodings of processed reports.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportReportsXLSX returns a workbook with a Summary sheet (one KPI row per report) and
// one sheet per report holding its tables.
func (s *Service) ExportReportsXLSX(reports []entity.ProcessedReport) ([]byte, error) {
	if len(reports) == 0 {
		return nil, ErrNoReports
	}
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headers := []any{"File", "Analysis Period", "Total Revenue", "Occupancy Rate", "Average Daily Rate", "Categories", "Rooms Sold", "Detailed Revenue"}
	if err := f.SetSheetRow(summarySheet, "A1", &headers); err != nil {
		return nil, fmt.Errorf("summary header: %w", err)
	}

	used := map[string]struct{}{strings.ToLower(summarySheet): {}}
	for i, r := range reports {
		var kpis entity.KPIs
		if r.Data.KPIs != nil {
			kpis = *r.Data.KPIs
		}
		var rooms, revenue float64
		for _, d := range r.Data.DetailedData {
			rooms += d.RoomsSold
			revenue += d.Revenue
		}
		row := []any{r.FileName, kpis.AnalysisPeriod, kpis.TotalRevenue, kpis.OccupancyRate, kpis.AverageDailyRate, len(r.Data.DetailedData), rooms, revenue}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("summary row %d: %w", i+1, err)
		}

		name := uniqueSheetName(r.FileName, i+1, used)
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("new sheet %q: %w", name, err)
		}
		if err := writeReportSheet(f, name, r); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
	}

	_ = f.SetColWidth(summarySheet, "A", "A", 32) // file
	_ = f.SetColWidth(summarySheet, "B", "B", 18) // period
	_ = f.SetColWidth(summarySheet, "C", "E", 20) // kpis
	_ = f.SetColWidth(summarySheet, "F", "H", 16) // totals
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"reports", len(reports),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// writeReportSheet lays the report out top to bottom: KPIs, detailed table, then the
// chart series blocks, each separated by a blank row.
func writeReportSheet(f *excelize.File, sheet string, r entity.ProcessedReport) error {
	row := 1
	put := func(values ...any) error {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		row++
		if len(values) == 0 {
			return nil
		}
		return f.SetSheetRow(sheet, cell, &values)
	}

	var kpis entity.KPIs
	if r.Data.KPIs != nil {
		kpis = *r.Data.KPIs
	}
	steps := [][]any{
		{"File", r.FileName},
		{"Analysis Period", kpis.AnalysisPeriod},
		{"Total Revenue", kpis.TotalRevenue},
		{"Occupancy Rate", kpis.OccupancyRate},
		{"Average Daily Rate", kpis.AverageDailyRate},
		{},
		{"Category", "Rooms Sold", "ADR", "Revenue"},
	}
	for _, s := range steps {
		if err := put(s...); err != nil {
			return err
		}
	}
	for _, d := range r.Data.DetailedData {
		if err := put(d.Category, d.RoomsSold, d.ADR, d.Revenue); err != nil {
			return err
		}
	}

	if err := put(); err != nil {
		return err
	}
	if err := put("Revenue Source", "Value"); err != nil {
		return err
	}
	for _, v := range r.Data.RevenueDistribution {
		if err := put(v.Name, v.Value); err != nil {
			return err
		}
	}

	if err := put(); err != nil {
		return err
	}
	if err := put("Date", "Occupancy Rate (%)"); err != nil {
		return err
	}
	for _, v := range r.Data.OccupancyEvolution {
		if err := put(v.Date, v.Rate); err != nil {
			return err
		}
	}

	if err := put(); err != nil {
		return err
	}
	if err := put("Category", "ADR", "Rooms Sold"); err != nil {
		return err
	}
	for _, line := range mergeByCategory(r.Data.ADRByCategory, r.Data.RoomsSoldByCategory) {
		if err := put(line...); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 24)
	_ = f.SetColWidth(sheet, "B", "D", 16)
	return nil
}

// mergeByCategory joins ADR and rooms sold on category, keeping first-seen order.
// Missing sides are left blank.
func mergeByCategory(adr []entity.ADRByCategory, sold []entity.RoomsSold) [][]any {
	order := make([]string, 0, len(adr)+len(sold))
	rows := make(map[string][]any, len(adr)+len(sold))
	get := func(cat string) []any {
		if r, ok := rows[cat]; ok {
			return r
		}
		r := []any{cat, nil, nil}
		rows[cat] = r
		order = append(order, cat)
		return r
	}
	for _, a := range adr {
		get(a.Category)[1] = a.ADR
	}
	for _, s := range sold {
		get(s.Category)[2] = s.RoomsSold
	}
	out := make([][]any, 0, len(order))
	for _, cat := range order {
		out = append(out, rows[cat])
	}
	return out
}

// uniqueSheetName derives a valid, unused sheet name from a file name.
func uniqueSheetName(fileName string, n int, used map[string]struct{}) string {
	base := strings.TrimSuffix(fileName, ".pdf")
	base = strings.TrimSuffix(base, ".PDF")
	base = strings.Map(func(r rune) rune {
		if strings.ContainsRune(sheetNameJunk, r) {
			return '_'
		}
		return r
	}, base)
	base = strings.Trim(strings.TrimSpace(base), "'")
	if base == "" {
		base = fmt.Sprintf("Report %d", n)
	}

	name := truncateRunes(base, maxSheetName)
	for i := 2; ; i++ {
		if _, taken := used[strings.ToLower(name)]; !taken {
			break
		}
		suffix := fmt.Sprintf(" (%d)", i)
		name = truncateRunes(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = struct{}{}
	return name
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// EncodeReportsMsgpack encodes reports as MessagePack using the JSON field names.
func (s *Service) EncodeReportsMsgpack(reports []entity.ProcessedReport) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(entity.BatchResult{Reports: reports}); err != nil {
		return nil, fmt.Errorf("msgpack encode: %w", err)
	}
	s.logger.Info("export.msgpack.ok", "reports", len(reports), "bytes", buf.Len())
	return buf.Bytes(), nil
}

// DecodeReportsMsgpack is the inverse of EncodeReportsMsgpack.
func DecodeReportsMsgpack(data []byte) (entity.BatchResult, error) {
	var out entity.BatchResult
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&out); err != nil {
		return entity.BatchResult{}, fmt.Errorf("msgpack decode: %w", err)
	}
	return out, nil
}

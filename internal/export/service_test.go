package export

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/hotel-reports/internal/entity"
	"github.com/joseph-ayodele/hotel-reports/internal/testutil"
)

func newService() *Service {
	return NewService(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExportReportsXLSX(t *testing.T) {
	reports := []entity.ProcessedReport{
		{FileName: "june.pdf", Data: testutil.ValidHotelData("June 2024")},
		{FileName: "july.pdf", Data: testutil.ValidHotelData("July 2024")},
	}
	data, err := newService().ExportReportsXLSX(reports)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Summary", "june", "july"}, f.GetSheetList())

	rows, err := f.GetRows("Summary")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "File", rows[0][0])
	assert.Equal(t, []string{"june.pdf", "June 2024", "€125,400.00", "82.5%", "€152.00", "2", "647", "97970"}, rows[1])
	assert.Equal(t, "july.pdf", rows[2][0])

	detail, err := f.GetRows("june")
	require.NoError(t, err)
	assert.Equal(t, []string{"Analysis Period", "June 2024"}, detail[1])
	assert.Equal(t, []string{"Category", "Rooms Sold", "ADR", "Revenue"}, detail[6])
	assert.Equal(t, []string{"Standard", "540", "120", "64800"}, detail[7])
}

func TestExportReportsXLSX_Empty(t *testing.T) {
	_, err := newService().ExportReportsXLSX(nil)
	assert.ErrorIs(t, err, ErrNoReports)
}

func TestUniqueSheetName(t *testing.T) {
	used := map[string]struct{}{"summary": {}}
	assert.Equal(t, "q2_2024", uniqueSheetName("q2/2024.pdf", 1, used))
	assert.Equal(t, "q2_2024 (2)", uniqueSheetName("q2:2024.pdf", 2, used))
	assert.Equal(t, "Summary (2)", uniqueSheetName("Summary.pdf", 3, used))
	assert.Equal(t, "Report 4", uniqueSheetName(".pdf", 4, used))

	long := uniqueSheetName("an extremely long hotel performance report name.pdf", 5, used)
	assert.LessOrEqual(t, len([]rune(long)), maxSheetName)
}

func TestMergeByCategory(t *testing.T) {
	rows := mergeByCategory(
		[]entity.ADRByCategory{{Category: "Suite", ADR: 300}, {Category: "Double", ADR: 120}},
		[]entity.RoomsSold{{Category: "Double", RoomsSold: 40}, {Category: "Single", RoomsSold: 10}},
	)
	assert.Equal(t, [][]any{
		{"Suite", 300.0, nil},
		{"Double", 120.0, 40.0},
		{"Single", nil, 10.0},
	}, rows)
}

func TestReportsMsgpackRoundTrip(t *testing.T) {
	reports := []entity.ProcessedReport{{FileName: "june.pdf", Data: testutil.ValidHotelData("June 2024")}}
	data, err := newService().EncodeReportsMsgpack(reports)
	require.NoError(t, err)

	out, err := DecodeReportsMsgpack(data)
	require.NoError(t, err)
	require.Len(t, out.Reports, 1)
	assert.Equal(t, reports[0], out.Reports[0])

	var generic map[string]any
	require.NoError(t, msgpack.Unmarshal(data, &generic))
	assert.Contains(t, generic, "reports")
}

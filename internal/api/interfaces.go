package api

import (
	"context"

	"github.com/joseph-ayodele/hotel-reports/internal/entity"
	"github.com/joseph-ayodele/hotel-reports/internal/session"
)

// SessionService is the part of session.Manager the HTTP layer drives.
type SessionService interface {
	Create() session.Snapshot
	Get(id string) (session.Snapshot, error)
	Submit(ctx context.Context, id string, files []entity.UploadedFile) (session.Snapshot, error)
	Reset(id string) (session.Snapshot, error)
	Delete(id string) error
}

// Exporter encodes finished reports for download.
type Exporter interface {
	ExportReportsXLSX(reports []entity.ProcessedReport) ([]byte, error)
	EncodeReportsMsgpack(reports []entity.ProcessedReport) ([]byte, error)
}

var (
	_ SessionService = (*session.Manager)(nil)
)

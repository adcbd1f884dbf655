package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/joseph-ayodele/hotel-reports/constants"
	"github.com/joseph-ayodele/hotel-reports/internal/common"
	"github.com/joseph-ayodele/hotel-reports/internal/entity"
	"github.com/joseph-ayodele/hotel-reports/internal/session"
)

// uploadField is the multipart field carrying the documents; it may repeat.
const uploadField = "files"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler serves the session API.
type Handler struct {
	sessions SessionService
	exporter Exporter
	logger   *slog.Logger
	version  string
}

func NewHandler(sessions SessionService, exporter Exporter, logger *slog.Logger, version string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{sessions: sessions, exporter: exporter, logger: logger, version: version}
}

// HandleHealth returns server health status
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	})
}

// HandleCreateSession opens a new empty session.
func (h *Handler) HandleCreateSession(c echo.Context) error {
	snap := h.sessions.Create()
	return c.JSON(http.StatusCreated, snap)
}

// HandleGetSession returns the current state; clients poll it while loading.
func (h *Handler) HandleGetSession(c echo.Context) error {
	snap, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return h.sessionError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// HandleUploadFiles starts a batch for the uploaded documents and answers 202 with the
// loading state. Non-PDF parts are ignored; a selection with no PDF is rejected.
func (h *Handler) HandleUploadFiles(c echo.Context) error {
	id := c.Param("id")
	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("expected a multipart form with one or more \"files\" parts", err)
	}

	headers := form.File[uploadField]
	// Multipart temp files are removed once the handler returns, so read them now.
	files := make([]entity.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		f := entity.FileFromMultipart(fh)
		if constants.IsAcceptedMimeType(f.MIMEType) {
			f = f.Buffered()
		}
		files = append(files, f)
	}

	ctx := common.WithSessionID(common.WithRequestID(c.Request().Context(), requestID(c)), id)
	snap, err := h.sessions.Submit(ctx, id, files)
	if err != nil {
		return h.sessionError(c, err)
	}
	return c.JSON(http.StatusAccepted, snap)
}

// HandleResetSession discards whatever the session holds.
func (h *Handler) HandleResetSession(c echo.Context) error {
	snap, err := h.sessions.Reset(c.Param("id"))
	if err != nil {
		return h.sessionError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// HandleDeleteSession drops the session.
func (h *Handler) HandleDeleteSession(c echo.Context) error {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		return h.sessionError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleExportXLSX downloads the session's reports as a workbook.
func (h *Handler) HandleExportXLSX(c echo.Context) error {
	snap, err := h.finishedSession(c)
	if err != nil {
		return err
	}
	data, err := h.exporter.ExportReportsXLSX(snap.Reports)
	if err != nil {
		return NewInternalError("failed to build workbook", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, attachment(snap.ID, "xlsx"))
	return c.Blob(http.StatusOK, xlsxContentType, data)
}

// HandleExportMsgpack returns the reports in MessagePack format.
func (h *Handler) HandleExportMsgpack(c echo.Context) error {
	snap, err := h.finishedSession(c)
	if err != nil {
		return err
	}
	data, err := h.exporter.EncodeReportsMsgpack(snap.Reports)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

func (h *Handler) finishedSession(c echo.Context) (session.Snapshot, error) {
	snap, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return session.Snapshot{}, h.sessionError(c, err)
	}
	if snap.Status != constants.SessionStatusResults {
		return session.Snapshot{}, NewConflictError(fmt.Sprintf("session is %s; reports are only available once processing succeeded", snap.Status))
	}
	return snap, nil
}

func (h *Handler) sessionError(c echo.Context, err error) error {
	apiErr := fromDomainError(err)
	if apiErr.Status == http.StatusNotFound {
		apiErr = NewNotFoundError("session", c.Param("id"))
	}
	h.logger.Debug("http.session.error", "session_id", c.Param("id"), "status", apiErr.Status, "error", err)
	return apiErr
}

func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}

func attachment(id, ext string) string {
	short := id
	if i := strings.IndexByte(id, '-'); i > 0 {
		short = id[:i]
	}
	return fmt.Sprintf(`attachment; filename="hotel-reports-%s.%s"`, short, ext)
}

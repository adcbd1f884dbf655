package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/joseph-ayodele/hotel-reports/constants"
	"github.com/joseph-ayodele/hotel-reports/internal/entity"
	"github.com/joseph-ayodele/hotel-reports/internal/export"
	"github.com/joseph-ayodele/hotel-reports/internal/llm"
	"github.com/joseph-ayodele/hotel-reports/internal/pipeline"
	"github.com/joseph-ayodele/hotel-reports/internal/session"
	"github.com/joseph-ayodele/hotel-reports/internal/testutil"
)

type testEnv struct {
	e       *echo.Echo
	manager *session.Manager
}

func newTestEnv(t *testing.T, fake *testutil.FakeExtractor) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	batch := pipeline.NewBatch(logger, pipeline.NewProcessor(logger, fake, 0), 0)
	mgr := session.NewManager(batch, logger)
	h := NewHandler(mgr, export.NewService(logger), logger, "test")
	return &testEnv{e: NewServer(h, logger, "10M"), manager: mgr}
}

func (env *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) createSession(t *testing.T) session.Snapshot {
	t.Helper()
	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	return snap
}

type part struct {
	name        string
	contentType string
	body        []byte
}

func uploadRequest(t *testing.T, id string, parts ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+p.name+`"`)
		h.Set("Content-Type", p.contentType)
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(p.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/files", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func pdfPart(name string) part {
	return part{name: name, contentType: "application/pdf", body: []byte("%PDF-1.4 " + name)}
}

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	return apiErr
}

func (env *testEnv) wait(t *testing.T, id string) session.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := env.manager.Wait(ctx, id)
	require.NoError(t, err)
	return snap
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, testutil.NewFakeExtractor())
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","version":"test"}`, rec.Body.String())
}

func TestUploadToResults(t *testing.T) {
	fake := testutil.NewFakeExtractor()
	env := newTestEnv(t, fake)
	s := env.createSession(t)
	assert.Equal(t, constants.SessionStatusEmpty, s.Status)

	rec := env.do(t, uploadRequest(t, s.ID, pdfPart("june.pdf"), part{name: "readme.txt", contentType: "text/plain", body: []byte("x")}, pdfPart("july.pdf")))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var loading session.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loading))
	assert.Equal(t, constants.SessionStatusLoading, loading.Status)
	assert.Equal(t, []string{"june.pdf", "july.pdf"}, loading.Files)

	env.wait(t, s.ID)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/sessions/"+s.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var done session.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &done))
	assert.Equal(t, constants.SessionStatusResults, done.Status)
	require.Len(t, done.Reports, 2)
	assert.Equal(t, "june.pdf", done.Reports[0].FileName)
	assert.Equal(t, "july.pdf", done.Reports[1].FileName)

	calls := fake.Calls()
	require.Len(t, calls, 2)
	for _, c := range calls {
		assert.Equal(t, "application/pdf", c.MIMEType)
		assert.Equal(t, []byte("%PDF-1.4 "+c.FileName), c.Document)
	}
}

func TestUploadWithoutPDF(t *testing.T) {
	env := newTestEnv(t, testutil.NewFakeExtractor())
	s := env.createSession(t)

	rec := env.do(t, uploadRequest(t, s.ID, part{name: "photo.png", contentType: "image/png", body: []byte("png")}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decodeAPIError(t, rec)
	assert.Equal(t, "NO_ACCEPTED_FILES", apiErr.Code)
	assert.Equal(t, "please upload at least one valid PDF file", apiErr.Message)

	rec = env.do(t, uploadRequest(t, s.ID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadNotMultipart(t *testing.T) {
	env := newTestEnv(t, testutil.NewFakeExtractor())
	s := env.createSession(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+s.ID+"/files", bytes.NewBufferString(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := env.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", decodeAPIError(t, rec).Code)
}

func TestUploadConflictWhileLoading(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	env := newTestEnv(t, testutil.NewFakeExtractor().On("slow.pdf", testutil.FakeResponse{Block: block}))
	s := env.createSession(t)

	rec := env.do(t, uploadRequest(t, s.ID, pdfPart("slow.pdf")))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = env.do(t, uploadRequest(t, s.ID, pdfPart("other.pdf")))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SESSION_BUSY", decodeAPIError(t, rec).Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/sessions/"+s.ID+"/export.xlsx", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUploadFailureThenReset(t *testing.T) {
	fake := testutil.NewFakeExtractor().
		On("bad.pdf", testutil.FakeResponse{Err: &llm.ExtractionError{Provider: "fake", Op: "send", StatusCode: 500}})
	env := newTestEnv(t, fake)
	s := env.createSession(t)

	rec := env.do(t, uploadRequest(t, s.ID, pdfPart("good.pdf"), pdfPart("bad.pdf")))
	require.Equal(t, http.StatusAccepted, rec.Code)

	failed := env.wait(t, s.ID)
	assert.Equal(t, constants.SessionStatusError, failed.Status)
	assert.Equal(t, "bad.pdf", failed.FailedFile)
	assert.Contains(t, failed.Error, "failed to process bad.pdf")
	assert.Empty(t, failed.Reports)

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/api/sessions/"+s.ID+"/reset", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var reset session.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reset))
	assert.Equal(t, constants.SessionStatusEmpty, reset.Status)
	assert.Empty(t, reset.Error)

	rec = env.do(t, uploadRequest(t, s.ID, pdfPart("good.pdf")))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestExports(t *testing.T) {
	env := newTestEnv(t, testutil.NewFakeExtractor())
	s := env.createSession(t)

	rec := env.do(t, uploadRequest(t, s.ID, pdfPart("june.pdf")))
	require.Equal(t, http.StatusAccepted, rec.Code)
	env.wait(t, s.ID)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/sessions/"+s.ID+"/export.xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), ".xlsx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/sessions/"+s.ID+"/reports.msgpack", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get(echo.HeaderContentType))

	var res entity.BatchResult
	dec := msgpack.NewDecoder(bytes.NewReader(rec.Body.Bytes()))
	dec.SetCustomStructTag("json")
	require.NoError(t, dec.Decode(&res))
	require.Len(t, res.Reports, 1)
	assert.Equal(t, "june.pdf", res.Reports[0].FileName)
}

func TestUnknownSession(t *testing.T) {
	env := newTestEnv(t, testutil.NewFakeExtractor())

	requests := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/sessions/nope", nil),
		httptest.NewRequest(http.MethodPost, "/api/sessions/nope/reset", nil),
		httptest.NewRequest(http.MethodDelete, "/api/sessions/nope", nil),
		httptest.NewRequest(http.MethodGet, "/api/sessions/nope/reports.msgpack", nil),
		uploadRequest(t, "nope", pdfPart("a.pdf")),
	}
	for _, req := range requests {
		rec := env.do(t, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, req.Method+" "+req.URL.Path)
		assert.Equal(t, "NOT_FOUND", decodeAPIError(t, rec).Code)
	}
}

func TestDeleteSession(t *testing.T) {
	env := newTestEnv(t, testutil.NewFakeExtractor())
	s := env.createSession(t)

	rec := env.do(t, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+s.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/sessions/"+s.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorHandler_UnknownRoute(t *testing.T) {
	env := newTestEnv(t, testutil.NewFakeExtractor())
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/nothing-here", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "HTTP_ERROR", decodeAPIError(t, rec).Code)
}

package entity

import (
	"bytes"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/hotel-reports/constants"
)

// OpenFunc opens the raw bytes of an uploaded file.
type OpenFunc func() (io.ReadCloser, error)

// UploadedFile is one input of a batch. It is owned by the pipeline invocation that reads it.
type UploadedFile struct {
	Name     string
	MIMEType string
	Open     OpenFunc
}

// FileFromBytes wraps an in-memory document.
func FileFromBytes(name, mimeType string, data []byte) UploadedFile {
	return UploadedFile{
		Name:     name,
		MIMEType: mimeType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FileFromPath opens the file lazily, so a missing or unreadable path surfaces as a read failure.
func FileFromPath(path string) UploadedFile {
	return UploadedFile{
		Name:     filepath.Base(path),
		MIMEType: constants.MimeTypeForPath(path),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// FileFromMultipart adapts a multipart form file. The declared Content-Type wins over the extension.
func FileFromMultipart(fh *multipart.FileHeader) UploadedFile {
	mt := fh.Header.Get("Content-Type")
	if mt == "" {
		mt = constants.MimeTypeForPath(fh.Filename)
	}
	return UploadedFile{
		Name:     fh.Filename,
		MIMEType: constants.NormalizeMimeType(mt),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// ProcessedReport pairs a file's display name with its extracted data.
type ProcessedReport struct {
	FileName string    `json:"fileName"`
	Data     HotelData `json:"data"`
}

// Clone returns a deep copy of r.
func (r ProcessedReport) Clone() ProcessedReport {
	return ProcessedReport{FileName: r.FileName, Data: r.Data.Clone()}
}

// BatchResult is the successful outcome of a batch: one report per input file, in input order.
type BatchResult struct {
	Reports []ProcessedReport `json:"reports"`
}

// Buffered reads the file now and returns a copy backed by memory. A read failure is kept
// and surfaces when the copy is opened, so it is still attributed to this file.
func (f UploadedFile) Buffered() UploadedFile {
	fail := func(err error) UploadedFile {
		return UploadedFile{
			Name:     f.Name,
			MIMEType: f.MIMEType,
			Open:     func() (io.ReadCloser, error) { return nil, err },
		}
	}
	if f.Open == nil {
		return f
	}
	rc, err := f.Open()
	if err != nil {
		return fail(err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return fail(err)
	}
	return FileFromBytes(f.Name, f.MIMEType, data)
}

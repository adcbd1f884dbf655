package constants

import (
	"mime"
	"path/filepath"
	"strings"
)

// PDFMimeType is the only document type the extraction provider accepts.
const PDFMimeType = "application/pdf"

// DefaultMaxFileMB bounds a single upload; Gemini rejects inline documents above ~20MB.
const DefaultMaxFileMB = 20

// AcceptedMimeTypes holds the document types a batch may contain.
var AcceptedMimeTypes = map[string]struct{}{
	PDFMimeType: {},
}

// AllowedExtensions holds the file extensions picked up from a directory.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// NormalizeMimeType strips parameters (e.g. "; charset=binary") and lowercases.
func NormalizeMimeType(mt string) string {
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		return parsed
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// IsAcceptedMimeType reports whether mt is an accepted document type.
func IsAcceptedMimeType(mt string) bool {
	_, ok := AcceptedMimeTypes[NormalizeMimeType(mt)]
	return ok
}

// MimeTypeForPath guesses a MIME type from the file extension.
func MimeTypeForPath(path string) string {
	ext := NormalizeExt(filepath.Ext(path))
	if ext == "pdf" {
		return PDFMimeType
	}
	if mt := mime.TypeByExtension("." + ext); mt != "" {
		return NormalizeMimeType(mt)
	}
	return "application/octet-stream"
}

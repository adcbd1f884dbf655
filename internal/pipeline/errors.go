package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoFiles is returned when a batch is started with no files.
var ErrNoFiles = errors.New("no files to process")

// ReadError means the bytes of an uploaded file could not be obtained.
type ReadError struct {
	FileName string
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.FileName, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// FileProcessingError attributes any per-file failure to its file.
type FileProcessingError struct {
	FileName string
	Err      error
}

func (e *FileProcessingError) Error() string {
	return fmt.Sprintf("failed to process %s: %v", e.FileName, e.Err)
}

func (e *FileProcessingError) Unwrap() error { return e.Err }

// BatchError is the single failure reported for a batch. It carries the first per-file
// failure observed; no partial results accompany it.
type BatchError struct {
	Err *FileProcessingError
}

func (e *BatchError) Error() string {
	if e.Err == nil {
		return "an error occurred while processing the files"
	}
	return "an error occurred while processing the files: " + e.Err.Error()
}

func (e *BatchError) Unwrap() error {
	if e.Err == nil {
		return nil
	}
	return e.Err
}

// FileName returns the name of the file that failed the batch.
func (e *BatchError) FileName() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.FileName
}

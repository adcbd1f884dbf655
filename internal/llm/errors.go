package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyResponse is returned when the provider answers without any content.
var ErrEmptyResponse = errors.New("provider returned no content")

// ExtractionError means the provider could not be reached, refused the request, or
// returned output that is not a JSON document.
type ExtractionError struct {
	Provider   string
	Op         string // "send", "decode_envelope", "parse_json"...
	StatusCode int    // 0 when no HTTP response was received
	Err        error
}

func (e *ExtractionError) Error() string {
	var b strings.Builder
	b.WriteString("extraction failed")
	if e.Provider != "" {
		b.WriteString(" (")
		b.WriteString(e.Provider)
		b.WriteString(")")
	}
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ValidationError means the provider's JSON parsed but does not satisfy the data contract.
type ValidationError struct {
	Missing []string // required top-level fields that were absent or null
	Err     error
}

func (e *ValidationError) Error() string {
	switch {
	case len(e.Missing) > 0:
		return "extracted data is missing required fields: " + strings.Join(e.Missing, ", ")
	case e.Err != nil:
		return "extracted data does not match schema: " + e.Err.Error()
	default:
		return "extracted data is invalid"
	}
}

func (e *ValidationError) Unwrap() error { return e.Err }

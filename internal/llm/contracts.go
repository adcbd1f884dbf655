package llm

import (
	"context"

	"github.com/joseph-ayodele/hotel-reports/internal/entity"
)

// ExtractRequest carries one document to the extraction provider.
type ExtractRequest struct {
	Document []byte
	MIMEType string
	FileName string // used only for logging and prompt hints
}

// DocumentExtractor is the interface our pipeline depends on. Implementations submit the
// document together with ExtractionSchema and return validated data plus the raw JSON.
type DocumentExtractor interface {
	Extract(ctx context.Context, req ExtractRequest) (entity.HotelData, []byte /*rawJSON*/, error)
}

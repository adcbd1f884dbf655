package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/hotel-reports/constants"
	"github.com/joseph-ayodele/hotel-reports/internal/common"
	"github.com/joseph-ayodele/hotel-reports/internal/entity"
	"github.com/joseph-ayodele/hotel-reports/internal/session"
)

// BatchProcessor runs one all-or-nothing batch.
type BatchProcessor interface {
	ProcessAll(ctx context.Context, files []entity.UploadedFile) (entity.BatchResult, error)
}

// ExtractionServer answers ExtractBatch synchronously: the call returns once every file settled.
type ExtractionServer struct {
	batch  BatchProcessor
	logger *slog.Logger
}

var _ ExtractionServiceServer = (*ExtractionServer)(nil)

func NewExtractionServer(batch BatchProcessor, logger *slog.Logger) *ExtractionServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionServer{batch: batch, logger: logger}
}

// ExtractBatch expects {"files": [{"name", "mime_type", "data" (base64)}]} and answers
// {"reports": [{"fileName", "data"}]} in request order.
func (s *ExtractionServer) ExtractBatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	files, err := decodeFiles(req)
	if err != nil {
		return nil, common.InvalidArgumentError(err.Error())
	}

	accepted, rejected, err := session.FilterAccepted(files)
	if err != nil {
		return nil, StatusFromError(err)
	}
	if len(rejected) > 0 {
		s.logger.Warn("grpc.extract.files_rejected", "rejected", rejected)
	}

	res, err := s.batch.ProcessAll(ctx, accepted)
	if err != nil {
		s.logger.Error("grpc.extract.failed", "files", len(accepted), "error", err)
		return nil, StatusFromError(err)
	}

	out, err := encodeResult(res)
	if err != nil {
		s.logger.Error("grpc.extract.encode_failed", "error", err)
		return nil, common.InternalError("encode response")
	}
	return out, nil
}

func decodeFiles(req *structpb.Struct) ([]entity.UploadedFile, error) {
	list := req.GetFields()["files"].GetListValue()
	if list == nil || len(list.GetValues()) == 0 {
		return nil, fmt.Errorf("files is required")
	}

	files := make([]entity.UploadedFile, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		f := v.GetStructValue()
		if f == nil {
			return nil, fmt.Errorf("files[%d] must be an object", i)
		}
		fields := f.GetFields()
		name := strings.TrimSpace(fields["name"].GetStringValue())
		if name == "" {
			return nil, fmt.Errorf("files[%d].name is required", i)
		}
		mt := fields["mime_type"].GetStringValue()
		if mt == "" {
			mt = constants.MimeTypeForPath(name)
		}
		data, err := base64.StdEncoding.DecodeString(fields["data"].GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("files[%d].data must be base64: %v", i, err)
		}
		files = append(files, entity.FileFromBytes(name, constants.NormalizeMimeType(mt), data))
	}
	return files, nil
}

func encodeResult(res entity.BatchResult) (*structpb.Struct, error) {
	b, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeResult converts an ExtractBatch response back into a BatchResult.
func DecodeResult(resp *structpb.Struct) (entity.BatchResult, error) {
	b, err := protojson.Marshal(resp)
	if err != nil {
		return entity.BatchResult{}, err
	}
	var res entity.BatchResult
	if err := json.Unmarshal(b, &res); err != nil {
		return entity.BatchResult{}, err
	}
	return res, nil
}

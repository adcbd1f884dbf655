package server

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/hotel-reports/internal/common"
	"github.com/joseph-ayodele/hotel-reports/internal/llm"
	"github.com/joseph-ayodele/hotel-reports/internal/pipeline"
)

// StatusFromError maps a batch or request error onto a gRPC status. The message is the
// consolidated user-facing text.
func StatusFromError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var (
		readErr *pipeline.ReadError
		valErr  *llm.ValidationError
		extErr  *llm.ExtractionError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, pipeline.ErrNoFiles):
		return common.InvalidArgumentError(err.Error())
	case errors.As(err, &readErr):
		return common.InvalidArgumentError(err.Error())
	case errors.As(err, &valErr):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.As(err, &extErr):
		return status.Error(codes.Unavailable, err.Error())
	}

	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return status.Error(common.CodeFor(err), appErr.Message)
	}
	return status.Error(common.CodeFor(err), err.Error())
}

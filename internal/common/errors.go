package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError is a coded error surfaced to API and gRPC clients. Message is safe to show;
// Cause is kept for logs and errors.Is/As.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Sentinels classify failures independent of the component raising them.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflicting state")
	ErrUnavailable  = errors.New("upstream unavailable")
	ErrValidation   = errors.New("validation failed")
)

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// InvalidArgumentError builds a gRPC InvalidArgument status.
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

// InternalError builds a gRPC Internal status.
func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

// CodeFor maps the sentinel errors to a gRPC code.
func CodeFor(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, ErrInvalidInput):
		return codes.InvalidArgument
	case errors.Is(err, ErrNotFound):
		return codes.NotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrValidation):
		return codes.FailedPrecondition
	case errors.Is(err, ErrUnavailable):
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

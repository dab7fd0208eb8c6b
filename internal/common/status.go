package common

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// HTTPStatus maps an engine error to the status code a request-handling
// layer should answer with. A nil error maps to 200.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNameConflict):
		return http.StatusConflict
	case errors.Is(err, ErrNotSupported):
		return http.StatusNotImplemented
	case IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// GRPCStatus maps an engine error to a gRPC status. Internal failures do not
// leak the underlying message.
func GRPCStatus(err error) *status.Status {
	switch {
	case err == nil:
		return status.New(codes.OK, "")
	case errors.Is(err, ErrorNotFound):
		return status.New(codes.NotFound, "not found")
	case errors.Is(err, ErrNameConflict):
		return status.New(codes.AlreadyExists, err.Error())
	case errors.Is(err, ErrQuotaExceeded):
		return status.New(codes.ResourceExhausted, err.Error())
	case errors.Is(err, ErrCycleDetected), errors.Is(err, ErrInvalidTarget):
		return status.New(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrNotSupported):
		return status.New(codes.Unimplemented, err.Error())
	case IsValidation(err):
		return status.New(codes.InvalidArgument, err.Error())
	default:
		return status.New(codes.Internal, "internal error")
	}
}

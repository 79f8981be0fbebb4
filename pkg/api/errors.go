package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/StrathCole/oracle-validator/pkg/registry"
	"github.com/StrathCole/oracle-validator/pkg/upkeep"
	"github.com/StrathCole/oracle-validator/pkg/validator"
)

var (
	// ErrInvalidRequest indicates a request body that cannot be decoded.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidAsset indicates an asset that is not a hex address.
	ErrInvalidAsset = errors.New("invalid asset address")
	// ErrNotFound indicates a binding that does not exist.
	ErrNotFound = errors.New("not found")
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, validator.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, validator.ErrUnknownHandle), errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, validator.ErrCollaboratorFailure):
		return http.StatusBadGateway
	case errors.Is(err, validator.ErrInvalidTolerance),
		errors.Is(err, validator.ErrInvalidReferencePrice),
		errors.Is(err, registry.ErrEmptySymbol),
		errors.Is(err, upkeep.ErrInvalidPayload),
		errors.Is(err, ErrInvalidAsset),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, validator.ErrNegativePrice), errors.Is(err, validator.ErrArithmeticOverflow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

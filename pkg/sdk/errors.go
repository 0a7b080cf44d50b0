package sdk

import (
	"fmt"
	"strings"

	"github.com/cinedex-io/cinedex/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrUnknownQuery      = domain.ErrUnknownQuery
	ErrInvalidParameters = domain.ErrInvalidParameters
	ErrStoreUnavailable  = domain.ErrStoreUnavailable
	ErrDataUnavailable   = domain.ErrDataUnavailable
	ErrPartialData       = domain.ErrPartialData
)

// PartialDataError reports a degraded summary; Failed names the
// sub-queries that could not be served.
type PartialDataError struct {
	Failed []string
}

func (e *PartialDataError) Error() string {
	return fmt.Sprintf("%s: sub-queries [%s] failed",
		ErrPartialData.Error(), strings.Join(e.Failed, ", "))
}

func (e *PartialDataError) Unwrap() error { return ErrPartialData }

// APIError is a non-2xx response that does not map to a sentinel.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
}

// errorEnvelope is the service's JSON error body.
type errorEnvelope struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Failed  []string `json:"failed_queries"`
}

// toError maps an error envelope to the matching sentinel, keeping the
// server's message as context.
func (e errorEnvelope) toError(status int) error {
	switch e.Code {
	case "invalid_parameters":
		return fmt.Errorf("%w: %s", ErrInvalidParameters, e.Message)
	case "unknown_query":
		return fmt.Errorf("%w: %s", ErrUnknownQuery, e.Message)
	case "partial_data":
		return &PartialDataError{Failed: e.Failed}
	case "data_unavailable":
		return fmt.Errorf("%w: %s", ErrDataUnavailable, e.Message)
	case "store_unavailable":
		return fmt.Errorf("%w: %s", ErrStoreUnavailable, e.Message)
	}
	return &APIError{Status: status, Code: e.Code, Message: e.Message}
}

package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownQuery signals a query name absent from the catalog.
	// Catalog misuse is a programming error and is never retried.
	ErrUnknownQuery = errors.New("unknown query")
	// ErrInvalidParameters signals caller-supplied parameters that failed
	// validation. Raised before any store I/O.
	ErrInvalidParameters = errors.New("invalid parameters")
	// ErrStoreUnavailable signals that the document store could not be
	// reached. Distinct from an empty result.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrDataUnavailable signals that a query still failed after retry, or
	// that a composed operation's deadline elapsed.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrPartialData signals that a required sub-query of a composed
	// summary failed.
	ErrPartialData = errors.New("partial data")
	// ErrCollectionNotAllowed signals a collection outside the allow-list.
	ErrCollectionNotAllowed = errors.New("collection not allowed")
)

// InvalidParametersError wraps ErrInvalidParameters with the offending
// parameter name.
type InvalidParametersError struct {
	Param  string
	Reason string
}

func (e *InvalidParametersError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidParameters.Error(), e.Param, e.Reason)
}

func (e *InvalidParametersError) Unwrap() error { return ErrInvalidParameters }

// NewInvalidParameters creates a parameter validation error.
func NewInvalidParameters(param, reason string) error {
	return &InvalidParametersError{Param: param, Reason: reason}
}

// PartialDataError wraps ErrPartialData with the degraded section and the
// names of the sub-queries that failed.
type PartialDataError struct {
	Section string
	Failed  []string
	Cause   error
}

func (e *PartialDataError) Error() string {
	return fmt.Sprintf("%s: section %s: sub-queries [%s] failed: %v",
		ErrPartialData.Error(), e.Section, strings.Join(e.Failed, ", "), e.Cause)
}

func (e *PartialDataError) Unwrap() error { return ErrPartialData }

// NewPartialData creates a partial data error for a composed summary.
func NewPartialData(section string, failed []string, cause error) error {
	return &PartialDataError{Section: section, Failed: failed, Cause: cause}
}

package query

import (
	"errors"
	"fmt"
)

// ErrPlaceNotFound is wrapped by geocoders when a place name has no match.
var ErrPlaceNotFound = errors.New("place not found")

// ParseError reports a query parameter that cannot be interpreted.
// page and limit never produce one: they fall back to their defaults.
type ParseError struct {
	Param  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid query parameter %q: %s", e.Param, e.Reason)
}

// NewParseError is used by repositories that reject a field or value
// the translator let through.
func NewParseError(param, reason string) *ParseError {
	return &ParseError{Param: param, Reason: reason}
}

func parseErrorf(param, format string, args ...any) *ParseError {
	return &ParseError{Param: param, Reason: fmt.Sprintf(format, args...)}
}

// GeocodingError reports a place name that could not be resolved, either
// because the provider has no match or because it could not be reached.
type GeocodingError struct {
	Place string
	Err   error
}

func (e *GeocodingError) Error() string {
	return fmt.Sprintf("geocoding %q: %v", e.Place, e.Err)
}

func (e *GeocodingError) Unwrap() error {
	return e.Err
}

// NotFound reports whether the provider answered but had no match.
func (e *GeocodingError) NotFound() bool {
	return errors.Is(e.Err, ErrPlaceNotFound)
}

// RepositoryError wraps a storage failure. The translator never creates one;
// repositories return it and it propagates untouched.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

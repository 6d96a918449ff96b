package domain

import (
	"errors"
	"fmt"
)

// Base error types (sentinel errors).
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnsupported  = errors.New("unsupported operation")
	ErrInternal     = errors.New("internal error")
	ErrUnavailable  = errors.New("service unavailable")
)

// Engine error kinds.
var (
	ErrConfiguration = fmt.Errorf("configuration: %w", ErrInvalidInput)
	ErrConvergence   = errors.New("no convergence")
)

// Specific errors.
var (
	ErrCatalogNotFound       = fmt.Errorf("catalog: %w", ErrNotFound)
	ErrCRSNotFound           = fmt.Errorf("coordinate system: %w", ErrNotFound)
	ErrInvalidCoordinate     = fmt.Errorf("coordinate: %w", ErrInvalidInput)
	ErrInvalidSRID           = fmt.Errorf("srid: %w", ErrInvalidInput)
	ErrUnsupportedProjection = fmt.Errorf("projection: %w", ErrUnsupported)
	ErrTooManyPoints         = fmt.Errorf("too many points: %w", ErrInvalidInput)
	ErrNotReady              = fmt.Errorf("service not ready: %w", ErrUnavailable)
	ErrStorageUnavailable    = fmt.Errorf("storage: %w", ErrUnavailable)
)

// ConfigurationError is raised when a transform or coordinate system is built
// from missing or structurally invalid parameters.
type ConfigurationError struct {
	Parameter string // Offending parameter, if any
	Message   string // Human-readable message
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Parameter != "" {
		return fmt.Sprintf("configuration error for parameter '%s': %s", e.Parameter, e.Message)
	}
	return "configuration error: " + e.Message
}

// Unwrap returns the underlying error type.
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// MissingParameter returns the error for a required parameter that was not supplied.
func MissingParameter(name string) error {
	return &ConfigurationError{
		Parameter: name,
		Message:   fmt.Sprintf("missing projection parameter '%s'", name),
	}
}

// UnsupportedOperationError is raised for unknown projection classes,
// unsupported coordinate system pairings and operations a transform does not offer.
type UnsupportedOperationError struct {
	Operation string // What was attempted
	Message   string // Human-readable message
}

// Error implements the error interface.
func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported operation %s: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying error type.
func (e *UnsupportedOperationError) Unwrap() error {
	return ErrUnsupported
}

// ConvergenceError is raised when an iterative inverse exceeds its iteration
// cap or is fed a point outside its domain.
type ConvergenceError struct {
	Method     string // Iterating routine, e.g. "phi2z"
	Iterations int    // Iterations performed before giving up, 0 for domain errors
	Message    string // Optional detail
}

// Error implements the error interface.
func (e *ConvergenceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Method, e.Message)
	}
	return fmt.Sprintf("%s: no convergence after %d iterations", e.Method, e.Iterations)
}

// Unwrap returns the underlying error type.
func (e *ConvergenceError) Unwrap() error {
	return ErrConvergence
}

// ValidationError represents a detailed validation error.
type ValidationError struct {
	Field      string      // Field that failed validation
	Value      interface{} // The invalid value
	Constraint string      // The constraint that was violated
	Message    string      // Human-readable message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v, constraint: %s)",
		e.Field, e.Message, e.Value, e.Constraint)
}

// Unwrap returns the underlying error type.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// PointError wraps the failure of a single point inside a batch.
type PointError struct {
	Index int   // Position of the point in the request
	Err   error // Underlying error
}

// Error implements the error interface.
func (e *PointError) Error() string {
	return fmt.Sprintf("point %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *PointError) Unwrap() error {
	return e.Err
}

// CatalogError represents an error while reading a coordinate system catalog.
type CatalogError struct {
	CatalogID string // Catalog identifier
	SRID      int    // Definition, if the error is tied to one
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *CatalogError) Error() string {
	if e.SRID != 0 {
		return fmt.Sprintf("catalog %s, srid %d: %v", e.CatalogID, e.SRID, e.Err)
	}
	return fmt.Sprintf("catalog %s: %v", e.CatalogID, e.Err)
}

// Unwrap returns the underlying error.
func (e *CatalogError) Unwrap() error {
	return e.Err
}

// StorageError represents an error during storage operations.
type StorageError struct {
	Operation string // Operation that failed (download, list, etc.)
	Key       string // Object key
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage error during %s for %s: %v",
			e.Operation, e.Key, e.Err)
	}
	return fmt.Sprintf("storage error during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// ConfigError represents a service configuration error.
type ConfigError struct {
	Field   string // Configuration field
	Message string // Error message
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error type.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidInput
}

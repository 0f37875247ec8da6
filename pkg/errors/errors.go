// Package errors provides custom error types for the kamerwatch system.
// These errors enable programmatic error checking and keep the sync engine's
// skip-and-continue policy explicit: taxonomy errors mark records that are
// discarded or rerouted, never conditions that abort a run.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the kamerwatch system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidRecord indicates a record without a parseable availability date
	ErrInvalidRecord = errors.New("invalid record")

	// ErrMissingField indicates a required metadata attribute is absent
	ErrMissingField = errors.New("missing field")

	// ErrUnknownDocumentType indicates an identifier that classifies as neither
	// a primary nor a secondary document
	ErrUnknownDocumentType = errors.New("unknown document type")

	// ErrRegistryUnavailable indicates a registry is temporarily unavailable
	ErrRegistryUnavailable = errors.New("registry unavailable")

	// ErrSyncInProgress indicates an attempt to start a run while a previous
	// run's write-back has not completed
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrNotSupported indicates an operation a source does not implement
	ErrNotSupported = errors.New("not supported")
)

// MissingFieldError reports an expected metadata attribute that was absent.
// Whether it discards the whole record or only a part of it is the caller's
// decision; the error itself only names what was missing and where.
type MissingFieldError struct {
	Field  string
	Record string
}

// Error implements the error interface
func (e *MissingFieldError) Error() string {
	if e.Record != "" {
		return fmt.Sprintf("metadata field %s missing in %s", e.Field, e.Record)
	}
	return fmt.Sprintf("metadata field %s missing", e.Field)
}

// Is implements errors.Is support
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// NewMissingFieldError creates a new MissingFieldError
func NewMissingFieldError(field, record string) *MissingFieldError {
	return &MissingFieldError{Field: field, Record: record}
}

// InvalidRecordError reports a record that must never enter a collection,
// most commonly because it lacks a parseable availability date.
type InvalidRecordError struct {
	ID     string
	Reason string
}

// Error implements the error interface
func (e *InvalidRecordError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid record %s: %s", e.ID, e.Reason)
	}
	return fmt.Sprintf("invalid record %s", e.ID)
}

// Is implements errors.Is support
func (e *InvalidRecordError) Is(target error) bool {
	return target == ErrInvalidRecord
}

// NewInvalidRecordError creates a new InvalidRecordError
func NewInvalidRecordError(id, reason string) *InvalidRecordError {
	return &InvalidRecordError{ID: id, Reason: reason}
}

// UnknownDocumentTypeError reports a fetched identifier that does not match
// any known document pattern. Logged and skipped by the caller.
type UnknownDocumentTypeError struct {
	ID   string
	Type string
}

// Error implements the error interface
func (e *UnknownDocumentTypeError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("document %s has unknown type %q", e.ID, e.Type)
	}
	return fmt.Sprintf("document %s has unknown type", e.ID)
}

// Is implements errors.Is support
func (e *UnknownDocumentTypeError) Is(target error) bool {
	return target == ErrUnknownDocumentType
}

// NewUnknownDocumentTypeError creates a new UnknownDocumentTypeError
func NewUnknownDocumentTypeError(id, docType string) *UnknownDocumentTypeError {
	return &UnknownDocumentTypeError{ID: id, Type: docType}
}

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// APIError represents an error response from a registry endpoint
type APIError struct {
	Registry   string
	StatusCode int
	URL        string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("registry %s returned status %d for %s", e.Registry, e.StatusCode, e.URL)
	}
	return fmt.Sprintf("registry %s request failed for %s: %v", e.Registry, e.URL, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	if e.StatusCode == 404 {
		return target == ErrNotFound
	}
	if e.StatusCode >= 500 {
		return target == ErrRegistryUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(registry string, statusCode int, url string) *APIError {
	return &APIError{Registry: registry, StatusCode: statusCode, URL: url}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// ParseError represents an error when parsing registry payloads
type ParseError struct {
	Format  string // "xml", "html", "yaml"
	Source  string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("parse error in %s payload from %s: %s", e.Format, e.Source, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, source, message string, err error) *ParseError {
	return &ParseError{Format: format, Source: source, Message: message, Err: err}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "rename"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{Operation: operation, Path: path, Message: message, Err: err}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidRecord checks if an error marks a discardable record
func IsInvalidRecord(err error) bool {
	return errors.Is(err, ErrInvalidRecord)
}

// IsMissingField checks if an error reports an absent metadata attribute
func IsMissingField(err error) bool {
	return errors.Is(err, ErrMissingField)
}

// IsUnknownDocumentType checks if an error reports an unclassifiable document
func IsUnknownDocumentType(err error) bool {
	return errors.Is(err, ErrUnknownDocumentType)
}

// IsRegistryUnavailable checks if an error indicates registry unavailability
func IsRegistryUnavailable(err error) bool {
	return errors.Is(err, ErrRegistryUnavailable)
}

// IsDiscardable reports whether an error belongs to the skip-and-continue
// taxonomy: the affected record is dropped, the run keeps going.
func IsDiscardable(err error) bool {
	return IsInvalidRecord(err) || IsMissingField(err) || IsUnknownDocumentType(err) || IsNotFound(err)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, source string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, source, err.Error(), err)
}

// Package errors provides custom error types for product-related operations.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrConflict    = errors.New("product conflict")
	ErrNotFound    = errors.New("product not found")
	ErrPersistence = errors.New("persistence failure")
)

// ValidationError reports client-correctable input problems.
// Fields lists the offending field names in the order they were checked.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// MissingFields builds the error for absent required fields.
func MissingFields(fields []string) *ValidationError {
	verb := "fields are missing"
	if len(fields) == 1 {
		verb = "field is missing"
	}
	return &ValidationError{
		Fields:  fields,
		Message: fmt.Sprintf("all product fields must be filled in: %s %s", strings.Join(fields, ", "), verb),
	}
}

// InvalidType builds the error for a field holding a value of the wrong type.
func InvalidType(field, want string) *ValidationError {
	return &ValidationError{
		Fields:  []string{field},
		Message: fmt.Sprintf("%s must be %s", field, want),
	}
}

// ConflictError reports a uniqueness violation on the product code.
type ConflictError struct {
	Code          string
	ExistingID    int
	ExistingTitle string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("code %s is already used by product %s with id %d", e.Code, e.ExistingTitle, e.ExistingID)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NotFoundError reports an id or predicate that matched nothing.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// PersistenceError wraps a failure to read or write the backing file.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

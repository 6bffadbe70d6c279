package core

import (
	"errors"
	"fmt"
)

// Validation error codes.
const (
	CodeInvalidSum      = "InvalidSum"
	CodeMissingCurrency = "MissingCurrency"
	CodeMissingCategory = "MissingCategory"
	CodeInvalidDate     = "InvalidDate"
	CodeInvalidMonth    = "InvalidMonth"
)

// ValidationError reports bad caller input. It is never retried.
type ValidationError struct {
	Code  string
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Msg)
}

// Is matches any ValidationError carrying the same code.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidSum      = &ValidationError{Code: CodeInvalidSum, Field: "sum", Msg: "sum must be a positive finite number"}
	ErrMissingCurrency = &ValidationError{Code: CodeMissingCurrency, Field: "currency", Msg: "currency is required"}
	ErrMissingCategory = &ValidationError{Code: CodeMissingCategory, Field: "category", Msg: "category is required"}
	ErrInvalidDate     = &ValidationError{Code: CodeInvalidDate, Field: "date", Msg: "date could not be parsed"}
	ErrInvalidMonth    = &ValidationError{Code: CodeInvalidMonth, Field: "month", Msg: "month must be between 1 and 12"}
)

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StorageKind tells reads from writes.
type StorageKind string

const (
	StorageRead  StorageKind = "read"
	StorageWrite StorageKind = "write"
)

var (
	ErrStorageRead  = errors.New("storage read failed")
	ErrStorageWrite = errors.New("storage write failed")
)

// StorageError wraps a failed store transaction.
type StorageError struct {
	Op   string
	Kind StorageKind
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	switch target {
	case ErrStorageRead:
		return e.Kind == StorageRead
	case ErrStorageWrite:
		return e.Kind == StorageWrite
	}
	return false
}

// ReadError and WriteError build StorageErrors for op.
func ReadError(op string, err error) error {
	return &StorageError{Op: op, Kind: StorageRead, Err: err}
}

func WriteError(op string, err error) error {
	return &StorageError{Op: op, Kind: StorageWrite, Err: err}
}

// SettingsValidationError is returned when a candidate rates source is
// rejected. The previously saved URL stays in place.
type SettingsValidationError struct {
	URL     string
	Missing string // first missing required currency, if that was the cause
	Err     error
}

func (e *SettingsValidationError) Error() string {
	if e.Missing != "" {
		return fmt.Sprintf("invalid rates source %q: missing required currency: %s", e.URL, e.Missing)
	}
	return fmt.Sprintf("invalid rates source %q: %v", e.URL, e.Err)
}

func (e *SettingsValidationError) Unwrap() error { return e.Err }

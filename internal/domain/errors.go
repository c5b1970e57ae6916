package domain

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// ErrorType classifies which stage of a transcription run failed
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeConversion ErrorType = "conversion"
	ErrorTypeExtraction ErrorType = "extraction"
	ErrorTypeAPI        ErrorType = "api"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeIO         ErrorType = "io"
)

// DomainError is a classified failure, optionally tied to one page of the document.
type DomainError struct {
	Type    ErrorType
	Page    int // 1-based, 0 when the failure is not page specific
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Type)
	if e.Page > 0 {
		prefix = fmt.Sprintf("[%s] page %d:", e.Type, e.Page)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s", prefix, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// ForPage returns a copy of e attributed to the given page.
func (e *DomainError) ForPage(pageNumber int) *DomainError {
	c := *e
	c.Page = pageNumber
	return &c
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// IsType reports whether any error in err's chain is a DomainError of the given type.
func IsType(err error, errType ErrorType) bool {
	var de *DomainError
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Type == errType {
			return true
		}
		err = de.Err
	}
	return false
}

// PageOf returns the first page number attached to a DomainError in err's chain.
func PageOf(err error) (int, bool) {
	var de *DomainError
	for err != nil {
		if !errors.As(err, &de) {
			return 0, false
		}
		if de.Page > 0 {
			return de.Page, true
		}
		err = de.Err
	}
	return 0, false
}

// WithStack records the caller's stack on err so the error logger can print it.
// Errors that already carry a stack are returned unchanged.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	var st interface{ StackTrace() pkgerrors.StackTrace }
	if errors.As(err, &st) {
		return err
	}
	return pkgerrors.WithStack(err)
}

// Common error constructors
func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func ConversionError(message string, err error) *DomainError {
	return NewError(ErrorTypeConversion, message, err)
}

func ExtractionError(message string, err error) *DomainError {
	return NewError(ErrorTypeExtraction, message, err)
}

func APIError(message string, err error) *DomainError {
	return NewError(ErrorTypeAPI, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

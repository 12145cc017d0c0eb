package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeUI represents transient UI flakiness (menus, popups)
	ErrorTypeUI ErrorType = "ui"
	// ErrorTypeParsing represents content that did not match its expected pattern
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeStructural represents failure to determine the grid's shape
	ErrorTypeStructural ErrorType = "structural"
	// ErrorTypeCalendar represents remote calendar API errors
	ErrorTypeCalendar ErrorType = "calendar"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// StepError represents a failed pipeline step
type StepError struct {
	Type      ErrorType
	Component string
	Message   string
	Attempts  int
	Err       error
	Time      time.Time
}

// Error implements the error interface
func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Component, e.Message)
}

// Unwrap returns the underlying error
func (e *StepError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *StepError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeUI:
		return true
	case ErrorTypeParsing:
		return false
	case ErrorTypeStructural:
		return false
	case ErrorTypeCalendar:
		return false
	default:
		return false
	}
}

// New creates a new StepError
func New(errType ErrorType, component, message string, err error) *StepError {
	return &StepError{
		Type:      errType,
		Component: component,
		Message:   message,
		Err:       err,
		Time:      time.Now(),
	}
}

// NewUI creates a new transient UI error
func NewUI(component, message string, err error) *StepError {
	return New(ErrorTypeUI, component, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(component, message string, err error) *StepError {
	return New(ErrorTypeParsing, component, message, err)
}

// NewStructural creates a structural error recorded after the given attempts
func NewStructural(component, message string, attempts int, err error) *StepError {
	e := New(ErrorTypeStructural, component, message, err)
	e.Attempts = attempts
	return e
}

// NewCalendar creates a new calendar API error
func NewCalendar(component, message string, err error) *StepError {
	return New(ErrorTypeCalendar, component, message, err)
}

// NewCache creates a new cache error
func NewCache(component, message string, err error) *StepError {
	return New(ErrorTypeCache, component, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(component, message string, err error) *StepError {
	return New(ErrorTypePublisher, component, message, err)
}

// NewValidation creates a new validation error
func NewValidation(component, message string) *StepError {
	return New(ErrorTypeValidation, component, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *StepError {
	return New(ErrorTypeConfiguration, "", message, err)
}

package domain

import (
	"errors"
	"fmt"
)

// DomainError carries an engine error code alongside a human message.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Engine error codes
const (
	ErrCodeConfiguration       = "CONFIGURATION_ERROR"
	ErrCodeRuleConflict        = "RULE_CONFLICT"
	ErrCodeStaleSmartPricing   = "STALE_SMART_PRICING"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewConfigurationError reports an unresolvable pricing setup for a unit.
// Fatal for that unit's resolution only; the batch skips and reports.
func NewConfigurationError(message, details string) *DomainError {
	return &DomainError{Code: ErrCodeConfiguration, Message: message, Details: details}
}

// NewRuleConflictError reports two same-priority, same-category rules
// matching the same date. Resolved by rule-id tie-break, never fatal.
func NewRuleConflictError(details string) *DomainError {
	return &DomainError{Code: ErrCodeRuleConflict, Message: "conflicting rules resolved by id tie-break", Details: details}
}

// NewStaleSmartPricingError reports a missing or unusable upstream price.
// Soft: the resolver falls back to the static base price.
func NewStaleSmartPricingError(details string) *DomainError {
	return &DomainError{Code: ErrCodeStaleSmartPricing, Message: "no usable smart pricing record", Details: details}
}

// NewUpstreamUnavailableError reports unreachable occupancy or reservation
// data. Occupancy and orphan-day rules are skipped for the affected dates.
func NewUpstreamUnavailableError(details string) *DomainError {
	return &DomainError{Code: ErrCodeUpstreamUnavailable, Message: "occupancy data source unavailable", Details: details}
}

// NewInvalidInputError creates a new invalid input error
func NewInvalidInputError(message, details string) *DomainError {
	return &DomainError{Code: ErrCodeInvalidInput, Message: message, Details: details}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource, id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Details: fmt.Sprintf("ID: %s", id),
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string) *DomainError {
	return &DomainError{Code: ErrCodeInternal, Message: message}
}

// IsDomainError checks if an error is a domain error
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// ErrorCode extracts the engine code from an error, or empty when the error
// is not a DomainError.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsConfigurationError reports whether err is a per-unit configuration error.
func IsConfigurationError(err error) bool {
	return ErrorCode(err) == ErrCodeConfiguration
}

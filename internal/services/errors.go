package services

import "fmt"

// Service errors
var (
	ErrNoTablesSpecified   = &ServiceError{Message: "no tables specified"}
	ErrRosterNotConfigured = &ServiceError{Message: "roster provider URL is not configured"}
	ErrEmptyRoster         = &ServiceError{Message: "roster has no members"}
	ErrBaseURLNotSet       = &ServiceError{Message: "base URL is not configured"}
	ErrSessionClosed       = &ServiceError{Message: "session service is shutting down"}
)

// ServiceError represents a service-level error
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// InvalidTableError represents an invalid table name error
type InvalidTableError struct {
	Table string
}

func (e *InvalidTableError) Error() string {
	return fmt.Sprintf("invalid table name: %s", e.Table)
}

package core

import (
	"fmt"
	"strings"
)

// ConfigLoadError is returned when a configuration source cannot be read or parsed.
type ConfigLoadError struct {
	Source string
	Err    error
}

func (e *ConfigLoadError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("failed to load configuration: %v", e.Err)
	}
	return fmt.Sprintf("failed to load configuration from %s: %v", e.Source, e.Err)
}

func (e *ConfigLoadError) Unwrap() error { return e.Err }

// ValidationError carries the complete diagnostic report of a schema that
// failed validation.
type ValidationError struct {
	Diagnostics Diagnostics
}

func (e *ValidationError) Error() string {
	errs := e.Diagnostics.Errors()
	return fmt.Sprintf("schema validation failed (%d errors): %s",
		len(errs), strings.Join(errs.Strings(), "; "))
}

// QueryNotFoundError is returned when a query name is not defined in the schema.
type QueryNotFoundError struct {
	Query string
}

func (e *QueryNotFoundError) Error() string {
	return fmt.Sprintf("query '%s' not found", e.Query)
}

// MissingArgumentError is returned when a required query argument was not supplied.
type MissingArgumentError struct {
	Query    string
	Argument string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("required parameter '%s' is missing for query '%s'", e.Argument, e.Query)
}

// HandlerFault wraps an error or panic raised inside a Handler.
type HandlerFault struct {
	Query string
	Err   error
}

func (e *HandlerFault) Error() string {
	return fmt.Sprintf("query '%s' execution failed: %v", e.Query, e.Err)
}

func (e *HandlerFault) Unwrap() error { return e.Err }

// OperationNotFoundError is returned by a fetch for an unknown or unfinished operation.
type OperationNotFoundError struct {
	ID string
}

func (e *OperationNotFoundError) Error() string {
	return fmt.Sprintf("operation %s is not finished or not found", e.ID)
}

// InvalidStateError is returned when an executor has no usable schema.
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string {
	if e.Reason == "" {
		return "executor is not in a valid state"
	}
	return "executor is not in a valid state: " + e.Reason
}

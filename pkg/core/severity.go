package core

import (
	"fmt"
	"strings"
)

// =============================================================================
// Severity
// =============================================================================

// Severity indicates the importance of a diagnostic.
type Severity int

// Severity levels for diagnostics.
const (
	// SeverityError marks a diagnostic that makes the schema unusable.
	SeverityError Severity = iota
	// SeverityWarning marks a diagnostic that was recovered from with a default.
	SeverityWarning
	// SeverityInfo indicates informational feedback.
	SeverityInfo
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// ParseSeverity converts a string to a Severity value.
// Returns the severity and true if valid, or SeverityWarning and false if invalid.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(s) {
	case "error":
		return SeverityError, true
	case "warning":
		return SeverityWarning, true
	case "info":
		return SeverityInfo, true
	default:
		return SeverityWarning, false
	}
}

// =============================================================================
// Diagnostic
// =============================================================================

// Diagnostic is one finding reported by the loader or the validator.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	// Path locates the offending element, e.g. "columns[2].name" or "queries.by_id".
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// String renders the diagnostic as "path: message".
func (d Diagnostic) String() string {
	if d.Path == "" {
		return d.Message
	}
	return fmt.Sprintf("%s: %s", d.Path, d.Message)
}

// Errorf builds an error-severity diagnostic.
func Errorf(path, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, args...)}
}

// Warnf builds a warning-severity diagnostic.
func Warnf(path, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, args...)}
}

// Diagnostics is an ordered diagnostic report.
type Diagnostics []Diagnostic

// HasErrors reports whether any diagnostic has error severity.
func (ds Diagnostics) HasErrors() bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity diagnostics, preserving order.
func (ds Diagnostics) Errors() Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Strings renders every diagnostic.
func (ds Diagnostics) Strings() []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.String()
	}
	return out
}

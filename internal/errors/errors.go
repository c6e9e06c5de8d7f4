// Package errors provides the typed error taxonomy of sitectl.
//
// Every failure that leaves the lifecycle engine is a *SiteError carrying a
// Code, so callers can branch on what went wrong without parsing strings.
//
// # Error Codes
//
//   - NOT_PROVISIONED: the proxy config for a site does not exist yet
//   - VALIDATION_FAILED: the proxy's syntax check rejected the config set
//   - RELOAD_FAILED: the proxy or the runtime service refused to reload
//   - FILESYSTEM: an OS-level error on a specific path
//   - INCONSISTENT: a documented partial-failure path left disk and registry
//     out of step; the wrapped error holds the original cause
//   - NOT_FOUND / ALREADY_EXISTS: registry lookups
//   - VALIDATION: rejected user input
//   - CONFIG / INTERNAL
//
// # Usage
//
//	return errors.Filesystem("example.com", "write proxy config", path, err)
//
//	if errors.Is(err, errors.ErrNotProvisioned) {
//	    // provision first
//	}
//
//	if errors.IsInconsistent(err) {
//	    // operator should inspect the site before retrying
//	}
//
// Because an INCONSISTENT error wraps the underlying SiteError, both
// errors.Is(err, ErrInconsistent) and errors.Is(err, ErrReloadFailed) hold
// for a reload failure on an asymmetric path.
package errors

import (
	"errors"
	"strings"
)

// ErrorCode categorizes errors for programmatic handling.
type ErrorCode string

// Error codes for different error categories.
const (
	ErrCodeNotProvisioned   ErrorCode = "NOT_PROVISIONED"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED" // proxy config test failed
	ErrCodeReloadFailed     ErrorCode = "RELOAD_FAILED"
	ErrCodeFilesystem       ErrorCode = "FILESYSTEM"
	ErrCodeInconsistent     ErrorCode = "INCONSISTENT"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	ErrCodeValidation       ErrorCode = "VALIDATION" // input validation failed
	ErrCodeConfig           ErrorCode = "CONFIG"
	ErrCodeInternal         ErrorCode = "INTERNAL"
)

// SiteError represents a structured error with context about the operation.
type SiteError struct {
	Code     ErrorCode // Error category
	Message  string    // Human-readable message
	Hostname string    // Site hostname (if applicable)
	Path     string    // Offending filesystem path (if applicable)
	Err      error     // Underlying error (if any)
}

// Error implements the error interface.
func (e *SiteError) Error() string {
	var b strings.Builder
	if e.Hostname != "" {
		b.WriteString("site ")
		b.WriteString(e.Hostname)
		if e.Message != "" || e.Path != "" || e.Err != nil {
			b.WriteString(": ")
		}
	}
	b.WriteString(e.Message)
	if e.Path != "" {
		if e.Message != "" {
			b.WriteString(" ")
		}
		b.WriteString(e.Path)
	}
	if e.Err != nil {
		if e.Message != "" || e.Path != "" {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain traversal.
func (e *SiteError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error.
// Comparison is based on error code.
func (e *SiteError) Is(target error) bool {
	t, ok := target.(*SiteError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel errors for use with errors.Is.
var (
	ErrNotProvisioned   = &SiteError{Code: ErrCodeNotProvisioned, Message: "proxy config missing; provision site first"}
	ErrValidationFailed = &SiteError{Code: ErrCodeValidationFailed, Message: "proxy config test failed"}
	ErrReloadFailed     = &SiteError{Code: ErrCodeReloadFailed, Message: "reload failed"}
	ErrFilesystem       = &SiteError{Code: ErrCodeFilesystem, Message: "filesystem error"}
	ErrInconsistent     = &SiteError{Code: ErrCodeInconsistent, Message: "site left in an inconsistent state"}
	ErrSiteNotFound     = &SiteError{Code: ErrCodeNotFound, Message: "site not found"}
	ErrSiteExists       = &SiteError{Code: ErrCodeAlreadyExists, Message: "site already exists"}
	ErrInvalidHostname  = &SiteError{Code: ErrCodeValidation, Message: "invalid hostname"}
	ErrConfigInvalid    = &SiteError{Code: ErrCodeConfig, Message: "invalid configuration"}
)

// NotProvisioned reports that hostname has no proxy config at path.
func NotProvisioned(hostname, path string) error {
	return &SiteError{
		Code:     ErrCodeNotProvisioned,
		Message:  "not provisioned, proxy config not found at",
		Hostname: hostname,
		Path:     path,
	}
}

// ValidationFailed wraps the validator's stderr.
func ValidationFailed(hostname, stderr string) error {
	return &SiteError{
		Code:     ErrCodeValidationFailed,
		Message:  "proxy config test failed",
		Hostname: hostname,
		Err:      detail(stderr),
	}
}

// ReloadFailed wraps the reloader's stderr; what names the service.
func ReloadFailed(hostname, what, stderr string) error {
	return &SiteError{
		Code:     ErrCodeReloadFailed,
		Message:  what + " reload failed",
		Hostname: hostname,
		Err:      detail(stderr),
	}
}

// Filesystem wraps an OS-level error for the given path.
func Filesystem(hostname, action, path string, err error) error {
	return &SiteError{
		Code:     ErrCodeFilesystem,
		Message:  action,
		Hostname: hostname,
		Path:     path,
		Err:      err,
	}
}

// Inconsistent marks cause as having left the site half-applied.
func Inconsistent(hostname, msg string, cause error) error {
	return &SiteError{
		Code:     ErrCodeInconsistent,
		Message:  msg,
		Hostname: hostname,
		Err:      cause,
	}
}

// NotFound creates an error for a site that isn't registered.
func NotFound(hostname string) error {
	return &SiteError{
		Code:     ErrCodeNotFound,
		Message:  "site not found",
		Hostname: hostname,
	}
}

// AlreadyExists creates an error for a site that is already registered.
func AlreadyExists(hostname string) error {
	return &SiteError{
		Code:     ErrCodeAlreadyExists,
		Message:  "site already exists",
		Hostname: hostname,
	}
}

// Validation creates a validation error with a custom message.
func Validation(msg string) error {
	return &SiteError{
		Code:    ErrCodeValidation,
		Message: msg,
	}
}

// Wrap creates an error with the specified code, message, and underlying error.
func Wrap(code ErrorCode, msg string, err error) error {
	return &SiteError{
		Code:    code,
		Message: msg,
		Err:     err,
	}
}

// CodeOf returns the code of the outermost SiteError in err's chain,
// or ErrCodeInternal when there is none.
func CodeOf(err error) ErrorCode {
	var se *SiteError
	if As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// IsInconsistent reports whether err marks a half-applied operation.
func IsInconsistent(err error) bool {
	return Is(err, ErrInconsistent)
}

func detail(stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		stderr = "command failed"
	}
	return errors.New(stderr)
}

// Is reports whether any error in err's chain matches target.
// This is a re-export of errors.Is for convenience.
var Is = errors.Is

// As finds the first error in err's chain that matches target.
// This is a re-export of errors.As for convenience.
var As = errors.As

// Join is a re-export of errors.Join for convenience.
var Join = errors.Join

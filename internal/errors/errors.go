package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError represents a structured pipeline error.
// Field carries the offending config path (e.g. "kpis[2].formulaKey") when known.
type AppError struct {
	Code    string
	Message string
	Field   string
	Cause   error
}

func (e *AppError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError carrying the same code, so callers can write
// errors.Is(err, ErrConfigInvalid).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Predefined error codes
const (
	CodeConfigNotFound        = "CONFIG_NOT_FOUND"
	CodeConfigInvalid         = "CONFIG_INVALID"
	CodeConfigFetchFailed     = "CONFIG_FETCH_FAILED"
	CodeDataSourceMissing     = "DATA_SOURCE_MISSING"
	CodeDataSourceFetchFailed = "DATA_SOURCE_FETCH_FAILED"
	CodeUnknownFormula        = "UNKNOWN_FORMULA"
	CodeLoadSuperseded        = "LOAD_SUPERSEDED"
	CodeInternalError         = "INTERNAL_ERROR"
)

// Sentinels for errors.Is comparisons.
var (
	ErrConfigNotFound        = &AppError{Code: CodeConfigNotFound, Message: "config not found"}
	ErrConfigInvalid         = &AppError{Code: CodeConfigInvalid, Message: "config invalid"}
	ErrConfigFetchFailed     = &AppError{Code: CodeConfigFetchFailed, Message: "config fetch failed"}
	ErrDataSourceMissing     = &AppError{Code: CodeDataSourceMissing, Message: "data source missing"}
	ErrDataSourceFetchFailed = &AppError{Code: CodeDataSourceFetchFailed, Message: "data source fetch failed"}
	ErrUnknownFormula        = &AppError{Code: CodeUnknownFormula, Message: "unknown formula"}
	ErrLoadSuperseded        = &AppError{Code: CodeLoadSuperseded, Message: "load superseded"}
)

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the code of an inner AppError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Field:   appErr.Field,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// GetCode returns the error code if err wraps an AppError, otherwise "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// GetField returns the config field path carried by err, if any.
func GetField(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

func ConfigNotFound(clientID string, cause error) *AppError {
	return &AppError{
		Code:    CodeConfigNotFound,
		Message: fmt.Sprintf("no config for client %q", clientID),
		Cause:   cause,
	}
}

func ConfigInvalid(field, message string) *AppError {
	return &AppError{
		Code:    CodeConfigInvalid,
		Message: message,
		Field:   field,
	}
}

// ConfigFetchFailed reports a transport failure reading a config document.
func ConfigFetchFailed(clientID, document string, cause error) *AppError {
	return &AppError{
		Code:    CodeConfigFetchFailed,
		Message: fmt.Sprintf("failed to fetch %s for client %q", document, clientID),
		Cause:   cause,
	}
}

func DataSourceMissing(name, file string) *AppError {
	return &AppError{
		Code:    CodeDataSourceMissing,
		Message: fmt.Sprintf("%s not found", file),
		Field:   "dataSources." + name,
	}
}

func DataSourceFetchFailed(name, file string, cause error) *AppError {
	return &AppError{
		Code:    CodeDataSourceFetchFailed,
		Message: fmt.Sprintf("failed to fetch %s", file),
		Field:   "dataSources." + name,
		Cause:   cause,
	}
}

func UnknownFormula(kpiKey, formulaKey string) *AppError {
	return &AppError{
		Code:    CodeUnknownFormula,
		Message: fmt.Sprintf("kpi %q references unregistered formula %q", kpiKey, formulaKey),
	}
}

func LoadSuperseded(clientID string) *AppError {
	return &AppError{
		Code:    CodeLoadSuperseded,
		Message: fmt.Sprintf("load of %q superseded by a newer navigation", clientID),
	}
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

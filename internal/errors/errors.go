package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
)

// ValidationError reports a missing or invalid request field or column name.
type ValidationError struct {
	Field   string   `json:"field,omitempty"`
	Columns []string `json:"columns,omitempty"`
	Message string   `json:"message"`
}

func (e *ValidationError) Error() string {
	if len(e.Columns) > 0 {
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Columns, ", "))
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ParseError reports a malformed upload.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error on line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// AnalysisError reports a numeric fitting failure.
type AnalysisError struct {
	Op  string
	Err error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// EmptyResultError is returned when cleaning removes every row.
type EmptyResultError struct {
	RowsIn int
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("cleaning removed all %d rows", e.RowsIn)
}

// Validation creates a field-level validation error.
func Validation(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InvalidColumns creates a validation error naming the offending columns.
func InvalidColumns(message string, columns ...string) *ValidationError {
	return &ValidationError{Message: message, Columns: columns}
}

// Parse wraps err as a ParseError for the given 1-based line (0 when unknown).
func Parse(line int, err error) *ParseError {
	return &ParseError{Line: line, Err: err}
}

// Analysis wraps err as an AnalysisError for op.
func Analysis(op string, err error) *AnalysisError {
	return &AnalysisError{Op: op, Err: err}
}

// APIError is the JSON body written for a failed request. Status is the HTTP
// status and is not serialized.
type APIError struct {
	Status  int         `json:"-"`
	Code    string      `json:"code"`
	Message string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

// Render sets the response status for render.Render.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.Status)
	return nil
}

// Reply builds an APIError without details.
func Reply(status int, code, message string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

// With returns a copy of e carrying details.
func (e *APIError) With(details interface{}) *APIError {
	out := *e
	out.Details = details
	return &out
}

// Codes carried in APIError.Code.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeParse          = "PARSE_ERROR"
	CodeAnalysis       = "ANALYSIS_ERROR"
	CodeEmptyResult    = "EMPTY_RESULT"
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeTooLarge       = "PAYLOAD_TOO_LARGE"
	CodeRateLimited    = "RATE_LIMIT_EXCEEDED"
	CodeInternal       = "INTERNAL_ERROR"
)

var (
	ErrUnauthorized      = Reply(http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
	ErrBadCredentials    = Reply(http.StatusUnauthorized, CodeUnauthorized, "Invalid username or password")
	ErrRateLimitExceeded = Reply(http.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded")
)

// InvalidRequest reports a body that could not be decoded.
func InvalidRequest(err error) *APIError {
	return Reply(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format").With(err.Error())
}

// FromError maps any error returned by the pipeline to an APIError.
func FromError(err error) *APIError {
	var (
		apiErr   *APIError
		valErr   *ValidationError
		parseErr *ParseError
		anErr    *AnalysisError
		emptyErr *EmptyResultError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &valErr):
		return Reply(http.StatusBadRequest, CodeValidation, valErr.Error()).With(valErr)
	case errors.As(err, &parseErr):
		return Reply(http.StatusBadRequest, CodeParse, "Failed to parse uploaded data").With(parseErr.Error())
	case errors.As(err, &anErr):
		return Reply(http.StatusInternalServerError, CodeAnalysis, "Analysis failed").With(anErr.Error())
	case errors.As(err, &emptyErr):
		return Reply(http.StatusUnprocessableEntity, CodeEmptyResult, "No rows left after cleaning").With(emptyErr.Error())
	case errors.As(err, &tooLarge):
		return Reply(http.StatusRequestEntityTooLarge, CodeTooLarge, "Request body too large").With(tooLarge.Error())
	default:
		return Reply(http.StatusInternalServerError, CodeInternal, "Internal server error").With(err.Error())
	}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

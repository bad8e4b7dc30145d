package errors

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger.With(slog.String("component", "error_handler")),
	}
}

// HandleError maps err to an APIError, logs it and writes the JSON body. The
// request id comes from the logger's context handler.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	apiErr := FromError(err)
	attrs := []any{
		slog.String("error", err.Error()),
		slog.String("code", apiErr.Code),
		slog.Int("status", apiErr.Status),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	}
	if apiErr.Status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", attrs...)
	} else {
		h.logger.WarnContext(r.Context(), "request rejected", attrs...)
	}

	render.Render(w, r, apiErr)
}

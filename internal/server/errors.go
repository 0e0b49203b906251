package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/KaramelBytes/csvscope/internal/analysis"
	"github.com/KaramelBytes/csvscope/internal/charts"
	"github.com/KaramelBytes/csvscope/internal/logging"
	"github.com/KaramelBytes/csvscope/internal/session"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int    `json:"status"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	e.RequestID = logging.RequestID(r.Context())
	render.Status(r, e.StatusCode)
	return nil
}

// FieldError is one failed query parameter.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func newAPIError(status int, code, msg string) *APIError {
	return &APIError{StatusCode: status, ErrorCode: code, Message: msg}
}

// errorFor maps a domain error onto its HTTP representation.
func errorFor(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var tooLarge *http.MaxBytesError
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &tooLarge):
		return newAPIError(http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE", "The uploaded file exceeds the size limit.")
	case errors.As(err, &verrs):
		details := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, FieldError{Field: fe.Field(), Rule: fe.Tag(), Message: fieldMessage(fe)})
		}
		e := newAPIError(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed.")
		e.Details = details
		return e
	case errors.Is(err, session.ErrNotFound):
		return newAPIError(http.StatusNotFound, "SESSION_NOT_FOUND", "This upload has expired or does not exist. Please upload the file again.")
	case errors.Is(err, analysis.ErrUnknownColumn):
		return newAPIError(http.StatusNotFound, "COLUMN_NOT_FOUND", err.Error())
	case errors.Is(err, charts.ErrUnknownKind):
		return newAPIError(http.StatusNotFound, "CHART_NOT_FOUND", err.Error())
	case errors.Is(err, analysis.ErrTooManyRows):
		return newAPIError(http.StatusRequestEntityTooLarge, "TOO_MANY_ROWS", err.Error())
	case errors.Is(err, analysis.ErrUnreadableFile):
		return newAPIError(http.StatusBadRequest, "UNREADABLE_FILE", err.Error())
	case errors.Is(err, analysis.ErrInvalidRange):
		return newAPIError(http.StatusBadRequest, "INVALID_RANGE", err.Error())
	case errors.Is(err, analysis.ErrNoPriceColumn),
		errors.Is(err, analysis.ErrNotPriceColumn),
		errors.Is(err, analysis.ErrNotNumeric),
		errors.Is(err, analysis.ErrEmptyColumn),
		errors.Is(err, analysis.ErrNoNumericColumns),
		errors.Is(err, charts.ErrNoGroupColumn),
		errors.Is(err, charts.ErrNoGroups):
		return newAPIError(http.StatusUnprocessableEntity, "UNUSABLE_COLUMN", err.Error())
	}
	return newAPIError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error.")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gtefield":
		return fe.Field() + " must be greater than or equal to " + fe.Param()
	case "min", "gte":
		return fe.Field() + " must be at least " + fe.Param()
	case "max", "lte":
		return fe.Field() + " must be at most " + fe.Param()
	}
	return fe.Field() + " is invalid"
}

// fail renders err as JSON and logs server-side failures.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := errorFor(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "error", err, "path", r.URL.Path)
	}
	if rerr := render.Render(w, r, apiErr); rerr != nil {
		http.Error(w, apiErr.Message, apiErr.StatusCode)
	}
}

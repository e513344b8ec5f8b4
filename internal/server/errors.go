package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/factura/internal/audit/domain"
	clientdomain "github.com/smallbiznis/factura/internal/client/domain"
	invoicedomain "github.com/smallbiznis/factura/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/factura/internal/payment/domain"
	projectdomain "github.com/smallbiznis/factura/internal/project/domain"
	recurringdomain "github.com/smallbiznis/factura/internal/recurring/domain"
	reportingdomain "github.com/smallbiznis/factura/internal/reporting/domain"
	templatedomain "github.com/smallbiznis/factura/internal/template/domain"
	"github.com/smallbiznis/factura/pkg/db"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, paymentdomain.ErrReconciliation):
		return http.StatusConflict, errorPayload{
			Type:    "reconciliation_error",
			Message: paymentdomain.ErrReconciliation.Error(),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictErrorCode(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable), db.IsUnavailableErr(err):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger an error taxonomy without
// rendering a response.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	switch {
	case asValidationErrors(err) != nil:
		return "validation_error", "validation_error"
	case isValidationError(err):
		return "validation_error", validationErrorCode(err)
	case errors.Is(err, paymentdomain.ErrReconciliation):
		return "reconciliation_error", paymentdomain.ErrReconciliation.Error()
	case isConflictError(err):
		return "conflict", conflictErrorCode(err)
	case isNotFoundError(err):
		return "not_found", "not_found"
	case errors.Is(err, ErrServiceUnavailable), db.IsUnavailableErr(err):
		return "service_unavailable", "service_unavailable"
	default:
		return "internal_error", "internal_error"
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isClientValidationError(err),
		isInvoiceValidationError(err),
		isPaymentValidationError(err),
		isTemplateValidationError(err),
		isScheduleValidationError(err),
		isProjectValidationError(err),
		isSettingsValidationError(err),
		isReportValidationError(err),
		isActivityValidationError(err):
		return true
	default:
		return false
	}
}

// isConflictError covers state the request cannot change without another
// action first: illegal status transitions and rows still referenced
// elsewhere. Reconciliation failures are mapped separately so callers
// can branch on the type instead of the message.
func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, invoicedomain.ErrInvalidTransition),
		errors.Is(err, invoicedomain.ErrNotEditable),
		errors.Is(err, invoicedomain.ErrNotDeletable),
		errors.Is(err, clientdomain.ErrHasInvoices),
		errors.Is(err, projectdomain.ErrHasEntries),
		errors.Is(err, projectdomain.ErrEntryBilled),
		errors.Is(err, projectdomain.ErrInvoiceNotDraft):
		return true
	default:
		return false
	}
}

func conflictErrorCode(err error) string {
	if errors.Is(err, ErrConflict) {
		return "conflict"
	}
	return err.Error()
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, clientdomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, templatedomain.ErrNotFound),
		errors.Is(err, recurringdomain.ErrNotFound),
		errors.Is(err, projectdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isReportValidationError(err error) bool {
	return errors.Is(err, reportingdomain.ErrInvalidRange)
}

func isActivityValidationError(err error) bool {
	switch err {
	case auditdomain.ErrInvalidAction,
		auditdomain.ErrInvalidEntity,
		auditdomain.ErrInvalidPageToken,
		auditdomain.ErrInvalidTimeRange:
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}

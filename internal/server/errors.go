package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	auditdomain "github.com/smallbiznis/creditdesk/internal/audit/domain"
	authdomain "github.com/smallbiznis/creditdesk/internal/auth/domain"
	"github.com/smallbiznis/creditdesk/internal/authorization"
	"github.com/smallbiznis/creditdesk/internal/directory"
	identitydomain "github.com/smallbiznis/creditdesk/internal/identity/domain"
	ledgerdomain "github.com/smallbiznis/creditdesk/internal/ledger/domain"
	overviewdomain "github.com/smallbiznis/creditdesk/internal/overview/domain"
	paymentdomain "github.com/smallbiznis/creditdesk/internal/payment/domain"
	"github.com/smallbiznis/creditdesk/internal/ratelimit"
	subscriptiondomain "github.com/smallbiznis/creditdesk/internal/subscription/domain"
	userdomain "github.com/smallbiznis/creditdesk/internal/user/domain"
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
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrTooManyRequests    = errors.New("too_many_requests")
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

// bindError turns a ShouldBind failure into field errors. Malformed bodies that
// never reached the validator collapse into invalid_request.
func bindError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return invalidRequestError()
	}

	out := &ValidationErrors{Errors: make([]ValidationError, 0, len(fieldErrs))}
	for _, fieldErr := range fieldErrs {
		field := fieldErr.Field()
		out.Errors = append(out.Errors, ValidationError{
			Field:   field,
			Code:    fieldErr.Tag(),
			Message: bindErrorMessage(field, fieldErr),
		})
	}
	return out
}

func bindErrorMessage(field string, fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be an email address", field)
	case "gte", "gt", "lte", "lt", "min", "max":
		return fmt.Sprintf("%s must be %s %s", field, fieldErr.Tag(), fieldErr.Param())
	default:
		return fmt.Sprintf("invalid %s", field)
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
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrMissingSession),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authorization.ErrInvalidActor),
		errors.Is(err, directory.ErrInvalidSignature):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, subscriptiondomain.ErrAlreadyActive):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "subscription already active",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, userdomain.ErrDuplicateExternalID),
		errors.Is(err, ratelimit.ErrSyncInProgress):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case errors.Is(err, overviewdomain.ErrNotProvisioned):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "account not provisioned",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrTooManyRequests),
		errors.Is(err, ratelimit.ErrSyncRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_requests",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, authdomain.ErrNotConfigured),
		errors.Is(err, directory.ErrNotConfigured):
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

// classifyErrorForLog feeds the request logger the same type/code a client sees.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	if status >= http.StatusInternalServerError {
		return payload.Type, "internal_error"
	}
	return payload.Type, err.Error()
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
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, directory.ErrInvalidPayload),
		errors.Is(err, identitydomain.ErrInvalidExternalID):
		return true
	case isUserValidationError(err),
		isSubscriptionValidationError(err),
		isLedgerValidationError(err),
		isPaymentValidationError(err),
		isAuditValidationError(err):
		return true
	default:
		return false
	}
}

func isUserValidationError(err error) bool {
	return errors.Is(err, userdomain.ErrInvalidID) ||
		errors.Is(err, userdomain.ErrInvalidName) ||
		errors.Is(err, userdomain.ErrInvalidEmail) ||
		errors.Is(err, userdomain.ErrInvalidExternalID) ||
		errors.Is(err, userdomain.ErrInvalidCredits)
}

func isSubscriptionValidationError(err error) bool {
	return errors.Is(err, subscriptiondomain.ErrInvalidUser) ||
		errors.Is(err, subscriptiondomain.ErrInvalidSubscription) ||
		errors.Is(err, subscriptiondomain.ErrInvalidStatus) ||
		errors.Is(err, subscriptiondomain.ErrInvalidCredits)
}

func isLedgerValidationError(err error) bool {
	return errors.Is(err, ledgerdomain.ErrInvalidDelta) ||
		errors.Is(err, ledgerdomain.ErrInvalidUser) ||
		errors.Is(err, ledgerdomain.ErrInvalidAdmin)
}

func isPaymentValidationError(err error) bool {
	return errors.Is(err, paymentdomain.ErrInvalidUser) ||
		errors.Is(err, paymentdomain.ErrInvalidAmount) ||
		errors.Is(err, paymentdomain.ErrInvalidMonth)
}

func isAuditValidationError(err error) bool {
	return errors.Is(err, auditdomain.ErrInvalidAction) ||
		errors.Is(err, auditdomain.ErrInvalidLimit)
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, userdomain.ErrAdminNotFound),
		errors.Is(err, subscriptiondomain.ErrNotFound),
		errors.Is(err, subscriptiondomain.ErrUserNotFound),
		errors.Is(err, subscriptiondomain.ErrAdminNotFound),
		errors.Is(err, ledgerdomain.ErrUserNotFound),
		errors.Is(err, ledgerdomain.ErrAdminNotFound),
		errors.Is(err, paymentdomain.ErrUserNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, directory.ErrInvalidPayload):
		return "invalid_payload"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request", "invalid_payload":
		return "request"
	case "invalid_id":
		return "id"
	case "invalid_status":
		return "subscription_status"
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
	case "invalid_delta":
		return "delta must be non-zero"
	case "invalid_month":
		return "month must look like YYYY-MM"
	case "invalid_amount_tnd":
		return "amount_tnd must be positive"
	default:
		return "invalid value"
	}
}

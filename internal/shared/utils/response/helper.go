package response

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"eventbooking/internal/shared/errs"
)

// RetryAfterSeconds is advertised on responses for retryable conflicts.
const RetryAfterSeconds = "1"

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondError maps a domain error to its HTTP status and stable error code.
func RespondError(c *gin.Context, err error) {
	code := errs.HTTPStatus(err)
	if errs.IsRetryable(err) {
		c.Header("Retry-After", RetryAfterSeconds)
	}

	message := err.Error()
	if code == http.StatusInternalServerError {
		// Driver details stay in the logs
		_ = c.Error(err)
		message = "Internal server error"
	}

	RespondJSON(c, "error", code, message, nil, ErrorDetail{Code: errs.Code(err)})
}

// RespondBindError renders request binding failures. Validator failures are
// reported per field.
func RespondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field: toSnakeCase(fe.Field()),
				Rule:  fe.Tag(),
				Param: fe.Param(),
			})
		}
		RespondJSON(c, "error", http.StatusBadRequest, "Validation failed", nil, fields)
		return
	}

	RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventbooking/internal/shared/errs"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) StandardApiResponse {
	t.Helper()
	var body StandardApiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRespondErrorMapsKinds(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", errs.ErrEventNotFound, http.StatusNotFound, "not_found"},
		{"sold out", errs.ErrInsufficientTickets, http.StatusConflict, "capacity_exceeded"},
		{"cancelled", errs.ErrAlreadyCancelled, http.StatusConflict, "invalid_state"},
		{"bad count", errs.ErrInvalidTicketCount, http.StatusBadRequest, "validation_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			RespondError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decode(t, w)
			assert.Equal(t, "error", body.Status)
			assert.Equal(t, tt.wantCode, body.Errors.(map[string]interface{})["code"])
		})
	}
}

func TestRespondErrorBusySetsRetryAfter(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondError(c, errs.ErrBusy)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, RetryAfterSeconds, w.Header().Get("Retry-After"))
}

func TestRespondErrorHidesPersistenceDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondError(c, errs.Persistence("insert booking", assert.AnError))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Internal server error", body.Message)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestRespondBindErrorListsFields(t *testing.T) {
	type payload struct {
		TicketCount int `validate:"required,min=1"`
	}
	err := validator.New().Struct(payload{})
	require.Error(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondBindError(c, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	fields := body.Errors.([]interface{})
	require.Len(t, fields, 1)
	assert.Equal(t, "ticket_count", fields[0].(map[string]interface{})["field"])
	assert.Equal(t, "required", fields[0].(map[string]interface{})["rule"])
}

package bookings

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Errors     json.RawMessage `json:"errors"`
}

func setupRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := newFixture(t)
	r := gin.New()
	SetupBookingRoutes(r.Group("/api/v1"), NewController(f.svc))
	return r, f
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestBookingLifecycleHTTP(t *testing.T) {
	r, f := setupRouter(t)
	eventID := f.seedEvent(t, 10, 10)
	userID := uuid.New()

	w, env := doJSON(t, r, http.MethodPost, "/api/v1/bookings", map[string]interface{}{
		"user_id":  userID,
		"event_id": eventID,
		"tickets":  4,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var booking Booking
	require.NoError(t, json.Unmarshal(env.Data, &booking))
	assert.Equal(t, StatusConfirmed, booking.Status)
	assert.Equal(t, 80.0, booking.TotalAmount)
	assert.Equal(t, 6, f.available(t, eventID))

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/bookings/"+booking.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = doJSON(t, r, http.MethodPost, "/api/v1/bookings/"+booking.ID.String()+"/pay", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &booking))
	assert.Equal(t, PaymentPaid, booking.PaymentStatus)

	w, env = doJSON(t, r, http.MethodGet, "/api/v1/users/"+userID.String()+"/bookings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []Booking
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Len(t, history, 1)

	w, env = doJSON(t, r, http.MethodPost, "/api/v1/bookings/"+booking.ID.String()+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &booking))
	assert.Equal(t, StatusCancelled, booking.Status)
	assert.Equal(t, PaymentRefunded, booking.PaymentStatus)
	assert.Equal(t, 10, f.available(t, eventID))

	w, env = doJSON(t, r, http.MethodPost, "/api/v1/bookings/"+booking.ID.String()+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"code":"invalid_state"}`, string(env.Errors))

	w, env = doJSON(t, r, http.MethodGet, "/api/v1/events/"+eventID.String()+"/bookings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Len(t, history, 1)
}

func TestCreateBookingErrorsHTTP(t *testing.T) {
	r, f := setupRouter(t)
	eventID := f.seedEvent(t, 5, 2)

	t.Run("validation", func(t *testing.T) {
		w, env := doJSON(t, r, http.MethodPost, "/api/v1/bookings", map[string]interface{}{
			"user_id":  uuid.New(),
			"event_id": eventID,
			"tickets":  0,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Validation failed", env.Message)
	})

	t.Run("capacity", func(t *testing.T) {
		w, env := doJSON(t, r, http.MethodPost, "/api/v1/bookings", map[string]interface{}{
			"user_id":  uuid.New(),
			"event_id": eventID,
			"tickets":  3,
		})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.JSONEq(t, `{"code":"capacity_exceeded"}`, string(env.Errors))
		assert.Equal(t, 2, f.available(t, eventID))
	})

	t.Run("unknown event", func(t *testing.T) {
		w, env := doJSON(t, r, http.MethodPost, "/api/v1/bookings", map[string]interface{}{
			"user_id":  uuid.New(),
			"event_id": uuid.New(),
			"tickets":  1,
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"code":"not_found"}`, string(env.Errors))
	})

	t.Run("bad id", func(t *testing.T) {
		w, env := doJSON(t, r, http.MethodGet, "/api/v1/bookings/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid booking ID", env.Message)
	})
}

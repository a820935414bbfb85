package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrosynchro-engine/internal/models"
)

type fakeSender struct {
	sent    [][]byte
	sendErr error
}

func (f *fakeSender) Send(ctx context.Context, body []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, body)
	return nil
}

type fakeReadingLister struct {
	readings []models.SensorReading
	err      error
}

func (f *fakeReadingLister) Readings(ctx context.Context, userID uint, limit int) ([]models.SensorReading, error) {
	return f.readings, f.err
}

func ingestRequest(h *SensorHandler, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/sensors/data", h.Ingest)

	req := httptest.NewRequest(http.MethodPost, "/api/sensors/data", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestIngestQueuesPayload(t *testing.T) {
	sender := &fakeSender{}
	h := NewSensorHandler(sender, &fakeReadingLister{})

	recorder := ingestRequest(h, `{"user_id": 7, "temperature": 24.5}`)

	assert.Equal(t, http.StatusAccepted, recorder.Code)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, string(sender.sent[0]), `"user_id":7`)
}

func TestIngestRejectsMissingUserID(t *testing.T) {
	sender := &fakeSender{}
	h := NewSensorHandler(sender, &fakeReadingLister{})

	recorder := ingestRequest(h, `{"temperature": 24.5}`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Empty(t, sender.sent)
}

func TestIngestRejectsBrokenJSON(t *testing.T) {
	h := NewSensorHandler(&fakeSender{}, &fakeReadingLister{})

	recorder := ingestRequest(h, `{not json`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestIngestWithoutQueueConfigured(t *testing.T) {
	h := NewSensorHandler(nil, &fakeReadingLister{})

	recorder := ingestRequest(h, `{"user_id": 7}`)

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

func TestIngestQueueFailure(t *testing.T) {
	h := NewSensorHandler(&fakeSender{sendErr: errors.New("sqs down")}, &fakeReadingLister{})

	recorder := ingestRequest(h, `{"user_id": 7}`)

	assert.Equal(t, http.StatusBadGateway, recorder.Code)
}

func TestHistoryRequiresAuthenticatedUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewSensorHandler(&fakeSender{}, &fakeReadingLister{})
	router := gin.New()
	router.GET("/api/sensor-data", h.History)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/sensor-data", nil))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestHistoryReturnsUserReadings(t *testing.T) {
	gin.SetMode(gin.TestMode)
	lister := &fakeReadingLister{readings: []models.SensorReading{
		{UserID: 7, Measure: models.MeasureTemperature, Value: 24.5},
	}}
	h := NewSensorHandler(&fakeSender{}, lister)

	router := gin.New()
	router.GET("/api/sensor-data", func(c *gin.Context) {
		c.Set(UserContextKey, &models.User{UserID: 7, Mail: "a@b.com"})
		h.History(c)
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/sensor-data?limit=10", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "temperature")
}

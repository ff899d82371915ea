package zoom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleksandraCheidze/LMS-sub001/internal/models"
)

type fakeRegistrar struct {
	err      error
	meetings []models.MeetingRecording
}

func (r *fakeRegistrar) Register(_ context.Context, meeting models.MeetingRecording) error {
	if r.err != nil {
		return r.err
	}
	r.meetings = append(r.meetings, meeting)
	return nil
}

const testSecret = "webhook-secret"

func newTestRouter(reg *fakeRegistrar) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewWebhookHandler(NewVerifier(testSecret), reg, 5*time.Minute, nil)
	router := gin.New()
	router.POST("/webhooks/zoom", h.HandleEvent)
	return router
}

func signedRequest(t *testing.T, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/zoom", bytes.NewReader(body))
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set(HeaderTimestamp, ts)
	req.Header.Set(HeaderSignature, sign(testSecret, ts, body))
	return req
}

func recordingCompletedBody(t *testing.T, topic string) []byte {
	t.Helper()
	payload := map[string]any{
		"account_id": "acc1",
		"object": map[string]any{
			"uuid":       "abc==123",
			"id":         123456789,
			"host_email": "host@example.com",
			"topic":      topic,
			"start_time": "2023-06-26T15:31:21Z",
			"duration":   90,
			"recording_files": []map[string]any{
				{"id": "f1", "file_type": "MP4", "file_extension": "MP4", "file_size": 100, "download_url": "https://zoom.example/dl/f1"},
			},
		},
	}
	body, err := json.Marshal(map[string]any{"event": EventRecordingCompleted, "event_ts": time.Now().UnixMilli(), "payload": payload})
	require.NoError(t, err)
	return body
}

func TestWebhookURLValidation(t *testing.T) {
	router := newTestRouter(&fakeRegistrar{})
	body := []byte(`{"event":"endpoint.url_validation","payload":{"plainToken":"abc123"}}`)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, signedRequest(t, body))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		PlainToken     string `json:"plainToken"`
		EncryptedToken string `json:"encryptedToken"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "abc123", resp.PlainToken)
	assert.Equal(t, NewVerifier(testSecret).EncryptToken("abc123"), resp.EncryptedToken)
}

func TestWebhookRecordingCompleted(t *testing.T) {
	reg := &fakeRegistrar{}
	router := newTestRouter(reg)
	body := recordingCompletedBody(t, `cohort: "25", module: "m", type: "lecture"`)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, signedRequest(t, body))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	require.Len(t, reg.meetings, 1)
	m := reg.meetings[0]
	assert.Equal(t, "abc==123", m.UUID)
	assert.Equal(t, int64(123456789), m.MeetingID)
	assert.Equal(t, "host@example.com", m.HostEmail)
	require.Len(t, m.Files, 1)
	assert.Equal(t, "mp4", m.Files[0].Extension)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	reg := &fakeRegistrar{}
	router := newTestRouter(reg)
	body := recordingCompletedBody(t, "any")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/zoom", bytes.NewReader(body))
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set(HeaderTimestamp, ts)
	req.Header.Set(HeaderSignature, "v0=deadbeef")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, reg.meetings)
}

func TestWebhookRejectsMissingHeaders(t *testing.T) {
	router := newTestRouter(&fakeRegistrar{})
	body := recordingCompletedBody(t, "any")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/zoom", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookRejectsStaleTimestamp(t *testing.T) {
	router := newTestRouter(&fakeRegistrar{})
	body := recordingCompletedBody(t, "any")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/zoom", bytes.NewReader(body))
	ts := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)
	req.Header.Set(HeaderTimestamp, ts)
	req.Header.Set(HeaderSignature, sign(testSecret, ts, body))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookRejectsUnexpectedEvent(t *testing.T) {
	reg := &fakeRegistrar{}
	router := newTestRouter(reg)
	body := []byte(`{"event":"meeting.started","payload":{"object":{"uuid":"x"}}}`)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, signedRequest(t, body))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, reg.meetings)
}

func TestWebhookRegistrarFailureIs5xx(t *testing.T) {
	reg := &fakeRegistrar{err: errors.New("db down")}
	router := newTestRouter(reg)
	body := recordingCompletedBody(t, "any")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, signedRequest(t, body))

	// Zoom retries on 5xx; the meeting stays re-processable.
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebhookRejectsMissingUUID(t *testing.T) {
	router := newTestRouter(&fakeRegistrar{})
	body := []byte(`{"event":"recording.completed","payload":{"object":{"topic":"x"}}}`)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, signedRequest(t, body))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

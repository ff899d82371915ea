package zoom

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AleksandraCheidze/LMS-sub001/internal/models"
	"github.com/AleksandraCheidze/LMS-sub001/pkg/response"
)

// Registrar records a completed meeting recording. Implemented by
// archive.Registrar.
type Registrar interface {
	Register(ctx context.Context, meeting models.MeetingRecording) error
}

// WebhookHandler handles the Zoom webhook endpoint: authenticates requests,
// answers URL validation challenges and forwards recording.completed events.
type WebhookHandler struct {
	verifier  *Verifier
	registrar Registrar
	tolerance time.Duration
	logger    *zap.Logger
}

// NewWebhookHandler creates a Zoom webhook handler. tolerance bounds the age
// of the request timestamp; zero disables the freshness check.
func NewWebhookHandler(verifier *Verifier, registrar Registrar, tolerance time.Duration, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{verifier: verifier, registrar: registrar, tolerance: tolerance, logger: logger}
}

// HandleEvent handles POST /webhooks/zoom. Signature and event-name checks
// run before any payload object is built, so unauthenticated or unexpected
// requests never reach the registrar.
func (h *WebhookHandler) HandleEvent(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "failed to read body")
		return
	}

	signature := c.GetHeader(HeaderSignature)
	timestamp := c.GetHeader(HeaderTimestamp)
	if !h.verifier.Verify(body, signature, timestamp) || !h.verifier.Fresh(timestamp, h.tolerance, time.Now()) {
		h.logger.Warn("webhook signature rejected", zap.String("client_ip", c.ClientIP()))
		response.BadRequest(c, "invalid signature")
		return
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		response.BadRequest(c, "invalid payload")
		return
	}

	switch env.Event {
	case EventEndpointValidation:
		h.handleValidation(c, env.Payload)
	case EventRecordingCompleted:
		h.handleRecordingCompleted(c, env.Payload)
	default:
		h.logger.Warn("unexpected webhook event", zap.String("event", env.Event))
		response.BadRequest(c, "unsupported event: "+env.Event)
	}
}

func (h *WebhookHandler) handleValidation(c *gin.Context, payload json.RawMessage) {
	var p ValidationPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.PlainToken == "" {
		response.BadRequest(c, "missing plainToken")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"plainToken":     p.PlainToken,
		"encryptedToken": h.verifier.EncryptToken(p.PlainToken),
	})
}

func (h *WebhookHandler) handleRecordingCompleted(c *gin.Context, payload json.RawMessage) {
	var p RecordingCompletedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		response.BadRequest(c, "invalid payload")
		return
	}
	meeting := p.Meeting()
	if meeting.UUID == "" {
		response.BadRequest(c, "missing meeting uuid")
		return
	}

	if err := h.registrar.Register(c.Request.Context(), meeting); err != nil {
		// 5xx so Zoom redelivers; the claim was released and the meeting
		// stays re-processable.
		h.logger.Error("register recording failed", zap.Error(err), zap.String("meeting_uuid", meeting.UUID))
		response.Internal(c, "failed to process recording")
		return
	}
	c.Status(http.StatusOK)
}

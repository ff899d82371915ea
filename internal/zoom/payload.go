package zoom

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/AleksandraCheidze/LMS-sub001/internal/models"
)

// Zoom webhook request headers.
const (
	HeaderSignature = "x-zm-signature"
	HeaderTimestamp = "x-zm-request-timestamp"
)

// Webhook event names this service handles.
const (
	EventEndpointValidation = "endpoint.url_validation"
	EventRecordingCompleted = "recording.completed"
)

// Envelope is the outer webhook JSON body. The payload shape depends on the
// event name, so it stays raw until the event is dispatched.
type Envelope struct {
	Event   string          `json:"event"`
	EventTS int64           `json:"event_ts"`
	Payload json.RawMessage `json:"payload"`
}

// ValidationPayload carries the endpoint.url_validation challenge token.
type ValidationPayload struct {
	PlainToken string `json:"plainToken"`
}

// RecordingFile is one file entry of a recording.completed payload.
type RecordingFile struct {
	ID             string    `json:"id"`
	MeetingID      string    `json:"meeting_id"`
	FileType       string    `json:"file_type"`
	FileExtension  string    `json:"file_extension"`
	FileSize       int64     `json:"file_size"`
	DownloadURL    string    `json:"download_url"`
	RecordingStart time.Time `json:"recording_start"`
	RecordingEnd   time.Time `json:"recording_end"`
	RecordingType  string    `json:"recording_type"`
}

// RecordingCompletedPayload mirrors the recording.completed payload.object
// wire shape.
type RecordingCompletedPayload struct {
	AccountID string `json:"account_id"`
	Object    struct {
		UUID           string          `json:"uuid"`
		ID             int64           `json:"id"`
		HostID         string          `json:"host_id"`
		HostEmail      string          `json:"host_email"`
		Topic          string          `json:"topic"`
		Type           int             `json:"type"`
		StartTime      time.Time       `json:"start_time"`
		Timezone       string          `json:"timezone"`
		Duration       int             `json:"duration"`
		TotalSize      int64           `json:"total_size"`
		RecordingCount int             `json:"recording_count"`
		RecordingFiles []RecordingFile `json:"recording_files"`
	} `json:"object"`
}

// Meeting converts the wire payload into the internal metadata the registrar
// consumes, isolating the pipeline from wire-format churn.
func (p *RecordingCompletedPayload) Meeting() models.MeetingRecording {
	obj := p.Object
	meeting := models.MeetingRecording{
		UUID:      obj.UUID,
		MeetingID: obj.ID,
		HostEmail: obj.HostEmail,
		Topic:     obj.Topic,
		StartTime: obj.StartTime,
		Duration:  obj.Duration,
		Files:     make([]models.RecordingFile, 0, len(obj.RecordingFiles)),
	}
	for _, f := range obj.RecordingFiles {
		meeting.Files = append(meeting.Files, models.RecordingFile{
			ID:          f.ID,
			FileType:    f.FileType,
			Extension:   strings.ToLower(f.FileExtension),
			DownloadURL: f.DownloadURL,
			SizeBytes:   f.FileSize,
		})
	}
	return meeting
}

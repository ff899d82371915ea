package models

import "time"

// RecordingFile is one media file of a completed cloud recording.
type RecordingFile struct {
	ID          string `json:"id"`
	FileType    string `json:"file_type"`
	Extension   string `json:"extension"`
	DownloadURL string `json:"download_url"`
	SizeBytes   int64  `json:"size_bytes"`
}

// MeetingRecording is the internal view of one recording.completed event.
// MeetingUUID identifies the physical meeting instance and drives idempotency;
// Zoom may redeliver the same event with the same uuid.
type MeetingRecording struct {
	UUID      string          `json:"uuid"`
	MeetingID int64           `json:"meeting_id"`
	HostEmail string          `json:"host_email"`
	Topic     string          `json:"topic"`
	StartTime time.Time       `json:"start_time"`
	Duration  int             `json:"duration"`
	Files     []RecordingFile `json:"files"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// MeetingStatus represents the processing lifecycle of one meeting uuid.
const (
	MeetingStatusProcessing = "processing"
	MeetingStatusCompleted  = "completed"
)

// Classification of an archive unit.
const (
	ClassificationValid        = "valid"
	ClassificationManualReview = "manual_review"
)

// TransferStatus represents the per-file upload lifecycle.
const (
	TransferStatusPending   = "pending"
	TransferStatusUploading = "uploading"
	TransferStatusCompleted = "completed"
	TransferStatusFailed    = "failed"
)

// ArchiveUnit is one cohort-addressed archive of a meeting recording.
// A meeting whose topic names N cohorts produces N units sharing the same
// meeting uuid; an unclassifiable topic produces a single manual-review unit.
type ArchiveUnit struct {
	ID             uuid.UUID     `json:"id"`
	MeetingUUID    string        `json:"meeting_uuid"`
	CohortID       string        `json:"cohort_id,omitempty"`
	StoragePrefix  string        `json:"storage_prefix"`
	Classification string        `json:"classification"`
	Topic          string        `json:"topic"`
	Module         string        `json:"module,omitempty"`
	LessonType     string        `json:"lesson_type,omitempty"`
	LessonID       string        `json:"lesson_id,omitempty"`
	HostEmail      string        `json:"host_email"`
	MeetingID      int64         `json:"meeting_id"`
	StartedAt      time.Time     `json:"started_at"`
	Files          []ArchiveFile `json:"files,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// ArchiveFile is one media file addressed under its unit's storage prefix.
type ArchiveFile struct {
	ID             uuid.UUID `json:"id"`
	UnitID         uuid.UUID `json:"unit_id"`
	ProviderFileID string    `json:"provider_file_id,omitempty"`
	FileType       string    `json:"file_type,omitempty"`
	DownloadURL    string    `json:"download_url,omitempty"`
	StorageKey     string    `json:"storage_key"`
	Position       int       `json:"position"`
	SizeBytes      int64     `json:"size_bytes"`
	TransferStatus string    `json:"transfer_status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

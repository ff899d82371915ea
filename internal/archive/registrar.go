package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AleksandraCheidze/LMS-sub001/internal/models"
	"github.com/AleksandraCheidze/LMS-sub001/internal/topic"
	"github.com/AleksandraCheidze/LMS-sub001/pkg/queue"
)

// TransferQueue schedules asynchronous file transfers after the fan-out has
// committed. Implemented by pkg/queue.Queue.
type TransferQueue interface {
	EnqueueFileTransfer(ctx context.Context, payload queue.FileTransferPayload) error
}

// Registrar orchestrates one recording.completed delivery: exclusive claim,
// dedup, topic classification, storage addressing, atomic per-cohort fan-out
// and transfer scheduling.
type Registrar struct {
	store  Store
	keys   *KeyBuilder
	queue  TransferQueue
	logger *zap.Logger
}

// NewRegistrar creates a registrar.
func NewRegistrar(store Store, keys *KeyBuilder, q TransferQueue, logger *zap.Logger) *Registrar {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registrar{store: store, keys: keys, queue: q, logger: logger}
}

// Register processes one delivery. Redelivery of an already completed meeting
// and racing duplicates are no-ops; persistence failure releases the claim so
// the meeting stays re-processable.
func (r *Registrar) Register(ctx context.Context, meeting models.MeetingRecording) error {
	err := r.store.Claim(ctx, meeting.UUID)
	switch {
	case errors.Is(err, ErrAlreadyCompleted), errors.Is(err, ErrClaimHeld):
		r.logger.Info("duplicate recording delivery ignored",
			zap.String("meeting_uuid", meeting.UUID),
			zap.NamedError("reason", err),
		)
		return nil
	case err != nil:
		return fmt.Errorf("claim meeting: %w", err)
	}

	units := r.draftUnits(meeting)
	if err := r.store.SaveUnits(ctx, meeting.UUID, units); err != nil {
		if relErr := r.store.ReleaseClaim(ctx, meeting.UUID); relErr != nil {
			r.logger.Error("release claim failed", zap.Error(relErr), zap.String("meeting_uuid", meeting.UUID))
		}
		return fmt.Errorf("save archive units: %w", err)
	}

	r.logger.Info("recording registered",
		zap.String("meeting_uuid", meeting.UUID),
		zap.Int("units", len(units)),
		zap.String("classification", units[0].Classification),
	)

	// Transfers run detached from the webhook request; enqueue failures are
	// observability events, the units are already committed.
	for _, unit := range units {
		for _, file := range unit.Files {
			payload := queue.FileTransferPayload{
				FileID:      file.ID,
				MeetingUUID: meeting.UUID,
				DownloadURL: file.DownloadURL,
				StorageKey:  file.StorageKey,
			}
			if err := r.queue.EnqueueFileTransfer(ctx, payload); err != nil {
				r.logger.Error("enqueue file transfer failed",
					zap.Error(err),
					zap.String("file_id", file.ID.String()),
					zap.String("storage_key", file.StorageKey),
				)
			}
		}
	}
	return nil
}

// draftUnits classifies the meeting and computes every unit's storage
// address. One unit per cohort for a parsed topic; a single manual-review
// unit otherwise.
func (r *Registrar) draftUnits(meeting models.MeetingRecording) []models.ArchiveUnit {
	meta, ok := topic.Parse(meeting.Topic)
	if !ok {
		dir, filePrefix := r.keys.ManualReviewKey(meeting.StartTime, meeting.HostEmail, meeting.MeetingID, meeting.Topic)
		unit := r.draftUnit(meeting, dir, filePrefix)
		unit.Classification = models.ClassificationManualReview
		return []models.ArchiveUnit{unit}
	}

	base := r.keys.FileBase(meeting.StartTime, meeting.MeetingID)
	units := make([]models.ArchiveUnit, 0, len(meta.CohortIDs))
	for _, cohortID := range meta.CohortIDs {
		prefix := r.keys.LessonPrefix(cohortID, meta.Module, meta.LessonType, meta.LessonID, meeting.StartTime)
		unit := r.draftUnit(meeting, prefix, base)
		unit.Classification = models.ClassificationValid
		unit.CohortID = cohortID
		unit.Module = meta.Module
		unit.LessonType = meta.LessonType
		unit.LessonID = meta.LessonID
		units = append(units, unit)
	}
	return units
}

func (r *Registrar) draftUnit(meeting models.MeetingRecording, prefix, fileBase string) models.ArchiveUnit {
	unit := models.ArchiveUnit{
		ID:            uuid.New(),
		MeetingUUID:   meeting.UUID,
		StoragePrefix: prefix,
		Topic:         meeting.Topic,
		HostEmail:     meeting.HostEmail,
		MeetingID:     meeting.MeetingID,
		StartedAt:     meeting.StartTime,
		Files:         make([]models.ArchiveFile, 0, len(meeting.Files)),
	}
	for i, f := range meeting.Files {
		unit.Files = append(unit.Files, models.ArchiveFile{
			ID:             uuid.New(),
			UnitID:         unit.ID,
			ProviderFileID: f.ID,
			FileType:       f.FileType,
			DownloadURL:    f.DownloadURL,
			StorageKey:     prefix + r.keys.FileName(fileBase, f.Extension, i, len(meeting.Files)),
			Position:       i,
			SizeBytes:      f.SizeBytes,
			TransferStatus: models.TransferStatusPending,
		})
	}
	return unit
}

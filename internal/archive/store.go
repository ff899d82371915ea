package archive

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/AleksandraCheidze/LMS-sub001/internal/models"
)

var (
	// ErrAlreadyCompleted is returned by Claim when the meeting was fully
	// processed by an earlier delivery.
	ErrAlreadyCompleted = errors.New("meeting already completed")
	// ErrClaimHeld is returned by Claim when another delivery of the same
	// meeting is in flight.
	ErrClaimHeld = errors.New("meeting claim held by another delivery")
	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("not found")
)

// Store persists meeting claims and archive units. Implemented by Repository;
// faked in tests.
type Store interface {
	// Claim takes the exclusive processing claim for a meeting uuid. At most
	// one delivery may hold the claim; redeliveries of a completed meeting
	// get ErrAlreadyCompleted, concurrent duplicates ErrClaimHeld.
	Claim(ctx context.Context, meetingUUID string) error
	// ReleaseClaim drops a processing claim so a later delivery can retry.
	// A completed meeting's record is never released.
	ReleaseClaim(ctx context.Context, meetingUUID string) error
	// SaveUnits persists all units (and their files) of one meeting and
	// marks the meeting completed, atomically: either the whole fan-out
	// commits or none of it does.
	SaveUnits(ctx context.Context, meetingUUID string, units []models.ArchiveUnit) error
	// ListFileKeysByCohort returns the storage keys of all classified files
	// archived for a cohort, ordered by unit creation then file position.
	ListFileKeysByCohort(ctx context.Context, cohortID string) ([]string, error)
	// GetFile returns one archive file by id, or ErrNotFound.
	GetFile(ctx context.Context, id uuid.UUID) (*models.ArchiveFile, error)
	// UpdateFileTransfer sets the transfer status of one file.
	UpdateFileTransfer(ctx context.Context, id uuid.UUID, status string) error
}

package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AleksandraCheidze/LMS-sub001/internal/models"
)

// Repository is the pgx-backed Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an archive repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

// Claim takes the per-meeting processing claim with a conditional insert on
// the meeting uuid primary key. The insert is the single serialization point:
// two racing deliveries cannot both see an absent row.
func (r *Repository) Claim(ctx context.Context, meetingUUID string) error {
	const q = `INSERT INTO meetings (uuid, status) VALUES ($1, $2) ON CONFLICT (uuid) DO NOTHING`
	tag, err := r.pool.Exec(ctx, q, meetingUUID, models.MeetingStatusProcessing)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	const sel = `SELECT status FROM meetings WHERE uuid = $1`
	var status string
	if err := r.pool.QueryRow(ctx, sel, meetingUUID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Claim row released between our insert and select; let the
			// caller's retry reclaim.
			return ErrClaimHeld
		}
		return fmt.Errorf("select claim status: %w", err)
	}
	if status == models.MeetingStatusCompleted {
		return ErrAlreadyCompleted
	}
	return ErrClaimHeld
}

// ReleaseClaim drops a processing claim. Completed meetings are left alone.
func (r *Repository) ReleaseClaim(ctx context.Context, meetingUUID string) error {
	const q = `DELETE FROM meetings WHERE uuid = $1 AND status = $2`
	_, err := r.pool.Exec(ctx, q, meetingUUID, models.MeetingStatusProcessing)
	if err != nil {
		return fmt.Errorf("release claim: %w", err)
	}
	return nil
}

// SaveUnits inserts the meeting's units and files and flips the meeting to
// completed in one transaction.
func (r *Repository) SaveUnits(ctx context.Context, meetingUUID string, units []models.ArchiveUnit) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertUnit = `INSERT INTO archive_units
		(id, meeting_uuid, cohort_id, storage_prefix, classification, topic, module, lesson_type, lesson_id, host_email, meeting_id, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	const insertFile = `INSERT INTO archive_files
		(id, unit_id, provider_file_id, file_type, download_url, storage_key, position, size_bytes, transfer_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, u := range units {
		if _, err := tx.Exec(ctx, insertUnit,
			u.ID, u.MeetingUUID, u.CohortID, u.StoragePrefix, u.Classification,
			u.Topic, u.Module, u.LessonType, u.LessonID, u.HostEmail, u.MeetingID, u.StartedAt,
		); err != nil {
			return fmt.Errorf("insert unit: %w", err)
		}
		for _, f := range u.Files {
			if _, err := tx.Exec(ctx, insertFile,
				f.ID, f.UnitID, f.ProviderFileID, f.FileType, f.DownloadURL,
				f.StorageKey, f.Position, f.SizeBytes, f.TransferStatus,
			); err != nil {
				return fmt.Errorf("insert file: %w", err)
			}
		}
	}

	const complete = `UPDATE meetings SET status = $1, updated_at = NOW() WHERE uuid = $2`
	if _, err := tx.Exec(ctx, complete, models.MeetingStatusCompleted, meetingUUID); err != nil {
		return fmt.Errorf("complete meeting: %w", err)
	}
	return tx.Commit(ctx)
}

// ListFileKeysByCohort returns the storage keys of the cohort's classified
// files, ordered so multi-part files of one unit stay together.
func (r *Repository) ListFileKeysByCohort(ctx context.Context, cohortID string) ([]string, error) {
	const q = `SELECT f.storage_key
		FROM archive_files f
		JOIN archive_units u ON u.id = f.unit_id
		WHERE u.cohort_id = $1 AND u.classification = $2
		ORDER BY u.created_at, f.position`
	rows, err := r.pool.Query(ctx, q, cohortID, models.ClassificationValid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// GetFile returns one archive file by id.
func (r *Repository) GetFile(ctx context.Context, id uuid.UUID) (*models.ArchiveFile, error) {
	const q = `SELECT id, unit_id, COALESCE(provider_file_id,''), COALESCE(file_type,''), COALESCE(download_url,''), storage_key, position, size_bytes, transfer_status, created_at, updated_at
		FROM archive_files WHERE id = $1`
	var f models.ArchiveFile
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&f.ID, &f.UnitID, &f.ProviderFileID, &f.FileType, &f.DownloadURL,
		&f.StorageKey, &f.Position, &f.SizeBytes, &f.TransferStatus, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// UpdateFileTransfer sets the transfer status of one file.
func (r *Repository) UpdateFileTransfer(ctx context.Context, id uuid.UUID, status string) error {
	const q = `UPDATE archive_files SET transfer_status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, status, id)
	return err
}

// Package lessons exposes the read side of the recording archive: grouped
// lesson listings per cohort and pre-signed download URLs for archived files.
package lessons

import (
	"errors"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AleksandraCheidze/LMS-sub001/internal/archive"
	"github.com/AleksandraCheidze/LMS-sub001/internal/models"
	"github.com/AleksandraCheidze/LMS-sub001/pkg/response"
	"github.com/AleksandraCheidze/LMS-sub001/pkg/storage"
)

// Lesson is one grouped lesson recording in a cohort listing.
type Lesson struct {
	Cohort     string   `json:"cohort"`
	Module     string   `json:"module"`
	LessonType string   `json:"lesson_type"`
	LessonKey  string   `json:"lesson_key"`
	Files      []string `json:"files"`
}

// Handler serves archived lesson listings and download URLs.
type Handler struct {
	store   archive.Store
	grouper *archive.Grouper
	s3      *storage.S3
	logger  *zap.Logger
}

// NewHandler creates a lessons handler. s3 may be nil when object storage is
// not configured; download URLs are then unavailable.
func NewHandler(store archive.Store, grouper *archive.Grouper, s3 *storage.S3, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, grouper: grouper, s3: s3, logger: logger}
}

// ListByCohort handles GET /cohorts/:id/lessons: groups the cohort's archived
// file keys into ordered lesson recordings.
func (h *Handler) ListByCohort(c *gin.Context) {
	cohortID := c.Param("id")
	keys, err := h.store.ListFileKeysByCohort(c.Request.Context(), cohortID)
	if err != nil {
		h.logger.Error("list file keys failed", zap.Error(err), zap.String("cohort_id", cohortID))
		response.Internal(c, "failed to list lessons")
		return
	}

	groups := h.grouper.Group(keys)
	lessons := make([]Lesson, 0, len(groups))
	for key, files := range groups {
		lessons = append(lessons, Lesson{
			Cohort:     key.Cohort,
			Module:     key.Module,
			LessonType: key.LessonType,
			LessonKey:  key.LessonKey,
			Files:      files,
		})
	}
	sort.Slice(lessons, func(i, j int) bool {
		if lessons[i].Module != lessons[j].Module {
			return lessons[i].Module < lessons[j].Module
		}
		if lessons[i].LessonType != lessons[j].LessonType {
			return lessons[i].LessonType < lessons[j].LessonType
		}
		return lessons[i].LessonKey < lessons[j].LessonKey
	})
	response.OK(c, lessons)
}

// GenerateDownloadURL handles GET /files/:id/download-url: returns a
// pre-signed URL for one archived file once its transfer has completed.
func (h *Handler) GenerateDownloadURL(c *gin.Context) {
	if h.s3 == nil {
		response.ServiceUnavailable(c, "object storage not configured")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid file id")
		return
	}

	file, err := h.store.GetFile(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			response.NotFound(c, "file not found")
			return
		}
		h.logger.Error("get file failed", zap.Error(err), zap.String("file_id", id.String()))
		response.Internal(c, "failed to load file")
		return
	}
	if file.TransferStatus != models.TransferStatusCompleted {
		response.Conflict(c, "file transfer not completed yet")
		return
	}

	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), file.StorageKey, h.s3.PresignExpire())
	if err != nil {
		h.logger.Error("presign download failed", zap.Error(err), zap.String("storage_key", file.StorageKey))
		response.Internal(c, "failed to generate download url")
		return
	}
	response.OK(c, gin.H{
		"download_url": url,
		"expires_in":   int(h.s3.PresignExpire().Seconds()),
	})
}

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/AleksandraCheidze/LMS-sub001/internal/archive"
	"github.com/AleksandraCheidze/LMS-sub001/internal/models"
	"github.com/AleksandraCheidze/LMS-sub001/pkg/queue"
)

// Uploader transfers a stream to durable storage at the given key.
// Implemented by pkg/storage.S3.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
}

// TransferProcessor processes file transfer jobs: download the recording file
// from the provider URL, upload it to the archive at its computed key, update
// the per-file transfer status.
type TransferProcessor struct {
	store    archive.Store
	uploader Uploader
	queue    *queue.Queue
	logger   *zap.Logger
}

// NewTransferProcessor creates a file transfer processor.
func NewTransferProcessor(store archive.Store, uploader Uploader, q *queue.Queue, logger *zap.Logger) *TransferProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransferProcessor{store: store, uploader: uploader, queue: q, logger: logger}
}

// Process executes one file transfer job. Transfers already marked completed
// are skipped, so redelivered jobs are harmless.
func (p *TransferProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeFileTransfer {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.FileTransferPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	file, err := p.store.GetFile(ctx, payload.FileID)
	if err != nil {
		return fmt.Errorf("load file %s: %w", payload.FileID, err)
	}
	if file.TransferStatus == models.TransferStatusCompleted {
		p.logger.Info("file transfer already completed", zap.String("file_id", file.ID.String()))
		return nil
	}

	if err := p.store.UpdateFileTransfer(ctx, file.ID, models.TransferStatusUploading); err != nil {
		return fmt.Errorf("mark uploading: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, payload.DownloadURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download status: %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := p.uploader.Upload(ctx, file.StorageKey, contentType, resp.Body, resp.ContentLength); err != nil {
		return fmt.Errorf("archive upload: %w", err)
	}

	if err := p.store.UpdateFileTransfer(ctx, file.ID, models.TransferStatusCompleted); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}

	p.logger.Info("file transfer completed",
		zap.String("file_id", file.ID.String()),
		zap.String("storage_key", file.StorageKey),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error. Failed files
// are marked failed; a queue retry will flip them back to uploading.
func (p *TransferProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("transfer worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			p.markFailed(ctx, job)
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}

func (p *TransferProcessor) markFailed(ctx context.Context, job *queue.Job) {
	var payload queue.FileTransferPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return
	}
	if err := p.store.UpdateFileTransfer(ctx, payload.FileID, models.TransferStatusFailed); err != nil {
		p.logger.Error("mark file failed", zap.Error(err), zap.String("file_id", payload.FileID.String()))
	}
}

package worker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleksandraCheidze/LMS-sub001/internal/archive"
	"github.com/AleksandraCheidze/LMS-sub001/internal/models"
	"github.com/AleksandraCheidze/LMS-sub001/pkg/queue"
)

type fakeStore struct {
	files    map[uuid.UUID]*models.ArchiveFile
	statuses map[uuid.UUID][]string
}

func newFakeStore(files ...*models.ArchiveFile) *fakeStore {
	s := &fakeStore{
		files:    make(map[uuid.UUID]*models.ArchiveFile),
		statuses: make(map[uuid.UUID][]string),
	}
	for _, f := range files {
		s.files[f.ID] = f
	}
	return s
}

func (s *fakeStore) Claim(context.Context, string) error        { return nil }
func (s *fakeStore) ReleaseClaim(context.Context, string) error { return nil }
func (s *fakeStore) SaveUnits(context.Context, string, []models.ArchiveUnit) error {
	return nil
}
func (s *fakeStore) ListFileKeysByCohort(context.Context, string) ([]string, error) {
	return nil, nil
}

func (s *fakeStore) GetFile(_ context.Context, id uuid.UUID) (*models.ArchiveFile, error) {
	f, ok := s.files[id]
	if !ok {
		return nil, archive.ErrNotFound
	}
	return f, nil
}

func (s *fakeStore) UpdateFileTransfer(_ context.Context, id uuid.UUID, status string) error {
	s.statuses[id] = append(s.statuses[id], status)
	if f, ok := s.files[id]; ok {
		f.TransferStatus = status
	}
	return nil
}

type fakeUploader struct {
	err  error
	key  string
	body []byte
}

func (u *fakeUploader) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.key = key
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	u.body = data
	return "https://bucket/" + key, nil
}

func transferJob(t *testing.T, payload queue.FileTransferPayload) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &queue.Job{ID: uuid.New().String(), Type: queue.JobTypeFileTransfer, Payload: raw}
}

func TestProcessTransfersFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("media-bytes"))
	}))
	defer srv.Close()

	file := &models.ArchiveFile{
		ID:             uuid.New(),
		StorageKey:     "cohort_25/m/lecture/lesson1/rec.mp4",
		TransferStatus: models.TransferStatusPending,
	}
	store := newFakeStore(file)
	up := &fakeUploader{}
	p := NewTransferProcessor(store, up, nil, nil)

	job := transferJob(t, queue.FileTransferPayload{FileID: file.ID, DownloadURL: srv.URL, StorageKey: file.StorageKey})
	require.NoError(t, p.Process(context.Background(), job))

	assert.Equal(t, file.StorageKey, up.key)
	assert.Equal(t, []byte("media-bytes"), up.body)
	assert.Equal(t, []string{models.TransferStatusUploading, models.TransferStatusCompleted}, store.statuses[file.ID])
}

func TestProcessSkipsCompletedFile(t *testing.T) {
	file := &models.ArchiveFile{ID: uuid.New(), TransferStatus: models.TransferStatusCompleted}
	store := newFakeStore(file)
	up := &fakeUploader{}
	p := NewTransferProcessor(store, up, nil, nil)

	job := transferJob(t, queue.FileTransferPayload{FileID: file.ID, DownloadURL: "http://unused"})
	require.NoError(t, p.Process(context.Background(), job))
	assert.Empty(t, up.key)
	assert.Empty(t, store.statuses[file.ID])
}

func TestProcessUnknownFile(t *testing.T) {
	p := NewTransferProcessor(newFakeStore(), &fakeUploader{}, nil, nil)
	job := transferJob(t, queue.FileTransferPayload{FileID: uuid.New(), DownloadURL: "http://unused"})
	assert.Error(t, p.Process(context.Background(), job))
}

func TestProcessDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	file := &models.ArchiveFile{ID: uuid.New(), StorageKey: "k", TransferStatus: models.TransferStatusPending}
	store := newFakeStore(file)
	p := NewTransferProcessor(store, &fakeUploader{}, nil, nil)

	job := transferJob(t, queue.FileTransferPayload{FileID: file.ID, DownloadURL: srv.URL, StorageKey: "k"})
	err := p.Process(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download status")
}

func TestProcessUnknownJobType(t *testing.T) {
	p := NewTransferProcessor(newFakeStore(), &fakeUploader{}, nil, nil)
	assert.Error(t, p.Process(context.Background(), &queue.Job{Type: "email"}))
}

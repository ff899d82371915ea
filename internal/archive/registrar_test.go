package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleksandraCheidze/LMS-sub001/internal/models"
	"github.com/AleksandraCheidze/LMS-sub001/pkg/queue"
)

type fakeStore struct {
	claimErr error
	saveErr  error

	claimed  []string
	released []string
	saved    map[string][]models.ArchiveUnit
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: make(map[string][]models.ArchiveUnit)}
}

func (s *fakeStore) Claim(_ context.Context, meetingUUID string) error {
	s.claimed = append(s.claimed, meetingUUID)
	return s.claimErr
}

func (s *fakeStore) ReleaseClaim(_ context.Context, meetingUUID string) error {
	s.released = append(s.released, meetingUUID)
	return nil
}

func (s *fakeStore) SaveUnits(_ context.Context, meetingUUID string, units []models.ArchiveUnit) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved[meetingUUID] = units
	return nil
}

func (s *fakeStore) ListFileKeysByCohort(context.Context, string) ([]string, error) { return nil, nil }

func (s *fakeStore) GetFile(context.Context, uuid.UUID) (*models.ArchiveFile, error) {
	return nil, ErrNotFound
}

func (s *fakeStore) UpdateFileTransfer(context.Context, uuid.UUID, string) error { return nil }

type fakeQueue struct {
	enqueueErr error
	jobs       []queue.FileTransferPayload
}

func (q *fakeQueue) EnqueueFileTransfer(_ context.Context, payload queue.FileTransferPayload) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.jobs = append(q.jobs, payload)
	return nil
}

func testMeeting(topic string) models.MeetingRecording {
	return models.MeetingRecording{
		UUID:      "abc==123",
		MeetingID: 123456789,
		HostEmail: "Host.Email@Example.com",
		Topic:     topic,
		StartTime: time.Date(2023, 6, 26, 15, 31, 21, 0, time.UTC),
		Duration:  90,
		Files: []models.RecordingFile{
			{ID: "f1", FileType: "MP4", Extension: "mp4", DownloadURL: "https://zoom.example/dl/f1", SizeBytes: 100},
			{ID: "f2", FileType: "M4A", Extension: "m4a", DownloadURL: "https://zoom.example/dl/f2", SizeBytes: 10},
		},
	}
}

func newTestRegistrar(store Store, q TransferQueue) *Registrar {
	return NewRegistrar(store, NewKeyBuilder(time.UTC), q, nil)
}

func TestRegisterFansOutPerCohort(t *testing.T) {
	store := newFakeStore()
	q := &fakeQueue{}
	r := newTestRegistrar(store, q)

	meeting := testMeeting(`{cohort: ["25","26"], module: "basic_programming", type: "lecture", lesson: "lesson26", topic: "Hello"}`)
	require.NoError(t, r.Register(context.Background(), meeting))

	units := store.saved[meeting.UUID]
	require.Len(t, units, 2)
	assert.Equal(t, "25", units[0].CohortID)
	assert.Equal(t, "26", units[1].CohortID)
	for _, u := range units {
		assert.Equal(t, models.ClassificationValid, u.Classification)
		assert.Equal(t, meeting.UUID, u.MeetingUUID)
		require.Len(t, u.Files, 2)
	}
	assert.Equal(t, "cohort_25/basic_programming/lecture/lesson26/", units[0].StoragePrefix)
	assert.Equal(t, "cohort_25/basic_programming/lecture/lesson26/20230626T153121_123456789_part0.mp4", units[0].Files[0].StorageKey)
	assert.Equal(t, "cohort_25/basic_programming/lecture/lesson26/20230626T153121_123456789_part1.m4a", units[0].Files[1].StorageKey)
	assert.Equal(t, "cohort_26/basic_programming/lecture/lesson26/", units[1].StoragePrefix)

	// One transfer job per stored file across the whole fan-out.
	assert.Len(t, q.jobs, 4)
	assert.Equal(t, units[0].Files[0].ID, q.jobs[0].FileID)
	assert.Equal(t, units[0].Files[0].StorageKey, q.jobs[0].StorageKey)
}

func TestRegisterDateKeyedLesson(t *testing.T) {
	store := newFakeStore()
	r := newTestRegistrar(store, &fakeQueue{})

	meeting := testMeeting(`cohort: "25", module: "basic_programming", type: "consultation"`)
	require.NoError(t, r.Register(context.Background(), meeting))

	units := store.saved[meeting.UUID]
	require.Len(t, units, 1)
	assert.Equal(t, "cohort_25/basic_programming/consultation/2023-06-26/", units[0].StoragePrefix)
}

func TestRegisterUnparsedTopicGoesToManualReview(t *testing.T) {
	store := newFakeStore()
	q := &fakeQueue{}
	r := newTestRegistrar(store, q)

	meeting := testMeeting("Quick sync")
	require.NoError(t, r.Register(context.Background(), meeting))

	units := store.saved[meeting.UUID]
	require.Len(t, units, 1)
	u := units[0]
	assert.Equal(t, models.ClassificationManualReview, u.Classification)
	assert.Empty(t, u.CohortID)
	assert.Equal(t, "to_process_manually/2023-06-26/host.email@example.com/", u.StoragePrefix)
	require.Len(t, u.Files, 2)
	assert.Equal(t, "to_process_manually/2023-06-26/host.email@example.com/20230626T153121_123456789_Quick_sync_part0.mp4", u.Files[0].StorageKey)
	assert.Len(t, q.jobs, 2)
}

func TestRegisterRedeliveryIsNoOp(t *testing.T) {
	store := newFakeStore()
	store.claimErr = ErrAlreadyCompleted
	q := &fakeQueue{}
	r := newTestRegistrar(store, q)

	require.NoError(t, r.Register(context.Background(), testMeeting("Quick sync")))
	assert.Empty(t, store.saved)
	assert.Empty(t, q.jobs)
}

func TestRegisterConcurrentDuplicateIsNoOp(t *testing.T) {
	store := newFakeStore()
	store.claimErr = ErrClaimHeld
	r := newTestRegistrar(store, &fakeQueue{})

	require.NoError(t, r.Register(context.Background(), testMeeting("Quick sync")))
	assert.Empty(t, store.saved)
}

func TestRegisterPersistenceFailureReleasesClaim(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("db down")
	q := &fakeQueue{}
	r := newTestRegistrar(store, q)

	meeting := testMeeting("Quick sync")
	err := r.Register(context.Background(), meeting)
	require.Error(t, err)
	assert.Equal(t, []string{meeting.UUID}, store.released)
	assert.Empty(t, q.jobs)
}

func TestRegisterEnqueueFailureDoesNotFailRequest(t *testing.T) {
	store := newFakeStore()
	q := &fakeQueue{enqueueErr: errors.New("redis down")}
	r := newTestRegistrar(store, q)

	// Units are committed before transfers are scheduled; a queue outage is
	// an observability event, not a webhook failure.
	require.NoError(t, r.Register(context.Background(), testMeeting("Quick sync")))
	assert.Len(t, store.saved, 1)
}

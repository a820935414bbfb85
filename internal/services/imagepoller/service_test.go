package imagepoller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrosynchro-engine/internal/config"
	"agrosynchro-engine/internal/models"
	"agrosynchro-engine/internal/services/messaging"
	"agrosynchro-engine/internal/storage"
)

type fakeBlob struct {
	raw       map[string][]byte
	processed map[string][]byte
	deleted   []string

	listErr   error
	existsErr error
	deleteErr error
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{
		raw:       make(map[string][]byte),
		processed: make(map[string][]byte),
	}
}

func (f *fakeBlob) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	keys := make([]string, 0, len(f.raw))
	for key := range f.raw {
		keys = append(keys, key)
	}
	return keys, nil
}

func (f *fakeBlob) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	data, ok := f.raw[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func (f *fakeBlob) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	f.processed[key] = data
	return nil
}

func (f *fakeBlob) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.processed[key]
	return ok, nil
}

func (f *fakeBlob) Delete(ctx context.Context, bucket, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.raw, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeImageStore struct {
	records map[string]*models.DroneImage

	hasErr    error
	insertErr error
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{records: make(map[string]*models.DroneImage)}
}

func (f *fakeImageStore) HasDroneImage(ctx context.Context, rawKey string) (bool, error) {
	if f.hasErr != nil {
		return false, f.hasErr
	}
	_, ok := f.records[rawKey]
	return ok, nil
}

func (f *fakeImageStore) InsertDroneImage(ctx context.Context, img *models.DroneImage) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, ok := f.records[img.RawKey]; ok {
		return storage.ErrDuplicate
	}
	f.records[img.RawKey] = img
	return nil
}

type fakeClassifier struct {
	calls int
}

func (f *fakeClassifier) Classify(image []byte) (string, float64) {
	f.calls++
	return "good", 0.9
}

type fakeImageEvents struct {
	published []messaging.ImageProcessedEvent
}

func (f *fakeImageEvents) PublishImageProcessed(event messaging.ImageProcessedEvent) {
	f.published = append(f.published, event)
}

func newTestService(blob *fakeBlob, store *fakeImageStore, classifier *fakeClassifier, events *fakeImageEvents) *Service {
	cfg := &config.Config{
		RawBucket:         "raw-bucket",
		ProcessedBucket:   "processed-bucket",
		RawImagePrefix:    "drone-images/",
		ImagePollInterval: time.Millisecond,
	}
	return NewService(cfg, blob, store, classifier, events, nil)
}

const testKey = "drone-images/2025/10/19/drone001_7f3a.jpg"

func TestPollProcessesNewImage(t *testing.T) {
	blob := newFakeBlob()
	blob.raw[testKey] = []byte("jpegdata")
	store := newFakeImageStore()
	classifier := &fakeClassifier{}
	events := &fakeImageEvents{}
	s := newTestService(blob, store, classifier, events)

	s.poll(context.Background())

	assert.Equal(t, 1, classifier.calls)
	assert.Equal(t, []byte("jpegdata"), blob.processed["processed/"+testKey])

	record, ok := store.records[testKey]
	require.True(t, ok)
	assert.Equal(t, "drone001", record.DroneID)
	assert.Equal(t, "good", record.FieldStatus)
	assert.Equal(t, 0.9, record.Confidence)
	require.NotNil(t, record.AnalyzedAt)

	assert.Equal(t, []string{testKey}, blob.deleted)

	require.Len(t, events.published, 1)
	assert.Equal(t, "drone001", events.published[0].DroneID)
}

func TestPollSkipsAlreadyProcessed(t *testing.T) {
	blob := newFakeBlob()
	blob.raw[testKey] = []byte("jpegdata")
	blob.deleteErr = errors.New("access denied")
	store := newFakeImageStore()
	classifier := &fakeClassifier{}
	s := newTestService(blob, store, classifier, &fakeImageEvents{})

	s.poll(context.Background())
	// Raw object survived the failed delete; the record must still guard it.
	s.poll(context.Background())

	assert.Equal(t, 1, classifier.calls)
	assert.Len(t, store.records, 1)
}

func TestPollDatabaseErrorFallsBackToBlobCheck(t *testing.T) {
	blob := newFakeBlob()
	blob.raw[testKey] = []byte("jpegdata")
	blob.processed["processed/"+testKey] = []byte("jpegdata")
	store := newFakeImageStore()
	store.hasErr = errors.New("connection refused")
	classifier := &fakeClassifier{}
	s := newTestService(blob, store, classifier, &fakeImageEvents{})

	s.poll(context.Background())

	assert.Zero(t, classifier.calls)
}

func TestPollDatabaseErrorWithoutCounterpartProcesses(t *testing.T) {
	blob := newFakeBlob()
	blob.raw[testKey] = []byte("jpegdata")
	store := newFakeImageStore()
	store.hasErr = errors.New("connection refused")
	classifier := &fakeClassifier{}
	s := newTestService(blob, store, classifier, &fakeImageEvents{})

	s.poll(context.Background())

	assert.Equal(t, 1, classifier.calls)
}

func TestProcessImageDeleteFailureNotFatal(t *testing.T) {
	blob := newFakeBlob()
	blob.raw[testKey] = []byte("jpegdata")
	blob.deleteErr = errors.New("access denied")
	store := newFakeImageStore()
	s := newTestService(blob, store, &fakeClassifier{}, &fakeImageEvents{})

	require.NoError(t, s.processImage(context.Background(), testKey))
	assert.Len(t, store.records, 1)
}

func TestProcessImageDuplicateClaimIsNotAnError(t *testing.T) {
	blob := newFakeBlob()
	blob.raw[testKey] = []byte("jpegdata")
	store := newFakeImageStore()
	store.insertErr = storage.ErrDuplicate
	events := &fakeImageEvents{}
	s := newTestService(blob, store, &fakeClassifier{}, events)

	require.NoError(t, s.processImage(context.Background(), testKey))

	// The claiming worker owns cleanup and notification.
	assert.Empty(t, blob.deleted)
	assert.Empty(t, events.published)
}

func TestDeviceIDFromKey(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{"drone-images/2025/10/19/drone001_7f3a.jpg", "drone001"},
		{"drone-images/drone042_a_b.jpg", "drone042"},
		{"drone-images/snapshot.jpg", "snapshot"},
		{"drone-images/_orphan.jpg", "unknown"},
		{"", "unknown"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, DeviceIDFromKey(tc.key), "key %q", tc.key)
	}
}

func TestStartAndShutdown(t *testing.T) {
	s := newTestService(newFakeBlob(), newFakeImageStore(), &fakeClassifier{}, &fakeImageEvents{})

	require.NoError(t, s.Start())
	assert.True(t, s.Running())
	assert.Error(t, s.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.False(t, s.Running())
}

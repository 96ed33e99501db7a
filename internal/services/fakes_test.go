package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/davenrook/leasewise-backend/internal/platform/logger"
	"github.com/davenrook/leasewise-backend/internal/types"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

// fakeDocRepo is an in-memory CollectionDocumentRepo with the same lock
// semantics as the postgres implementation.
type fakeDocRepo struct {
	mu   sync.Mutex
	docs map[string]*types.CollectionDocument

	getErr error
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{docs: map[string]*types.CollectionDocument{}}
}

func (r *fakeDocRepo) Get(ctx context.Context, tx *gorm.DB, id string) (*types.CollectionDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	doc, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeDocRepo) Upsert(ctx context.Context, tx *gorm.DB, doc *types.CollectionDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.docs[doc.ID]
	if !ok {
		copied := *doc
		r.docs[doc.ID] = &copied
		return nil
	}
	// Content columns only; the lock columns belong to the mutex.
	existing.CollectionID = doc.CollectionID
	existing.ConfigID = doc.ConfigID
	existing.LeaseConfigHash = doc.LeaseConfigHash
	existing.Information = doc.Information
	return nil
}

func (r *fakeDocRepo) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, id)
	return nil
}

func (r *fakeDocRepo) AcquireLock(ctx context.Context, tx *gorm.DB, id string, until time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		r.docs[id] = &types.CollectionDocument{
			ID:                  id,
			IsLocked:            true,
			UnlockUnixTimestamp: until.Unix(),
		}
		return true, nil
	}
	if doc.IsLocked && doc.UnlockUnixTimestamp > time.Now().Unix() {
		return false, nil
	}
	doc.IsLocked = true
	doc.UnlockUnixTimestamp = until.Unix()
	return true, nil
}

func (r *fakeDocRepo) ReleaseLock(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || !doc.IsLocked {
		return false, nil
	}
	doc.IsLocked = false
	return true, nil
}

// fakeBlobStore keeps uploaded objects in memory.
type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}}
}

func (s *fakeBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fakeBlobStore) Upload(ctx context.Context, key string, contentType string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *fakeBlobStore) Download(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return data, nil
}

func (s *fakeBlobStore) DownloadString(ctx context.Context, key string) (string, error) {
	data, err := s.Download(ctx, key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *fakeBlobStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *fakeBlobStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeBlobStore) Ping(ctx context.Context) error { return nil }

// fakeInvalidator records InvalidateView calls.
type fakeInvalidator struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeInvalidator) InvalidateView(ctx context.Context, collectionID, configHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, collectionID+"/"+configHash)
	return nil
}

func (f *fakeInvalidator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

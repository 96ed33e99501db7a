package services

import (
	"context"
	"time"

	"github.com/davenrook/leasewise-backend/internal/platform/envutil"
	"github.com/davenrook/leasewise-backend/internal/platform/logger"
	"github.com/davenrook/leasewise-backend/internal/repos"
)

// DocumentLock is a polling mutex over collection document rows. A lock is
// a short lease; holders that die simply let it expire. Writers must call
// Wait before mutating a document and must treat a false return as failure.
type DocumentLock interface {
	Acquire(ctx context.Context, documentID string) (bool, error)
	Wait(ctx context.Context, documentID string) (bool, error)
	Release(ctx context.Context, documentID string) (bool, error)
}

type documentLock struct {
	docs          repos.CollectionDocumentRepo
	log           *logger.Logger
	leaseDuration time.Duration
	pollInterval  time.Duration
	waitTimeout   time.Duration
}

func NewDocumentLock(docs repos.CollectionDocumentRepo, baseLog *logger.Logger) DocumentLock {
	return &documentLock{
		docs:          docs,
		log:           baseLog.With("service", "DocumentLock"),
		leaseDuration: envutil.Duration("DOCUMENT_LOCK_LEASE", 1*time.Second),
		pollInterval:  envutil.Duration("DOCUMENT_LOCK_POLL_INTERVAL", 100*time.Millisecond),
		waitTimeout:   envutil.Duration("DOCUMENT_LOCK_WAIT_TIMEOUT", 3*time.Second),
	}
}

func (l *documentLock) Acquire(ctx context.Context, documentID string) (bool, error) {
	return l.docs.AcquireLock(ctx, nil, documentID, time.Now().Add(l.leaseDuration))
}

// Wait polls Acquire until the lock is held or the wait timeout lapses.
// Store errors are fatal and propagate immediately.
func (l *documentLock) Wait(ctx context.Context, documentID string) (bool, error) {
	deadline := time.Now().Add(l.waitTimeout)
	for {
		ok, err := l.Acquire(ctx, documentID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if time.Now().After(deadline) {
			l.log.Warn("Timed out waiting for document lock", "document_id", documentID, "timeout", l.waitTimeout.String())
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(l.pollInterval):
		}
	}
}

func (l *documentLock) Release(ctx context.Context, documentID string) (bool, error) {
	ok, err := l.docs.ReleaseLock(ctx, nil, documentID)
	if err != nil {
		return false, err
	}
	if !ok {
		l.log.Warn("Released a lock that was not held", "document_id", documentID)
	}
	return ok, nil
}

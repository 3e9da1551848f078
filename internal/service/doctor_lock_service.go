package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// Interval for cleaning up stale doctor locks
	lockCleanupInterval = 10 * time.Minute

	// How long a lock must be unused before cleanup
	lockStaleThreshold = 10 * time.Minute
)

// DoctorLock is the per-doctor exclusion resource. Create/reschedule hold it
// across the load -> conflict check -> persist sequence so the check-then-act
// is atomic with respect to other booking requests for the same doctor.
type DoctorLock struct {
	mu       sync.Mutex
	lastUsed atomic.Int64 // Unix timestamp
}

func (l *DoctorLock) Unlock() { l.mu.Unlock() }

// DoctorLockService hands out one lock per doctor id, created lazily and
// reused until the background sweeper reaps it after a period of disuse.
// Requests for different doctors never contend. Acquire verifies after
// locking that the registry still holds the same entry, so a sweep racing
// the acquisition can never leave two requests on different locks for the
// same doctor.
type DoctorLockService struct {
	log   *logrus.Logger
	locks sync.Map // map[uuid.UUID]*DoctorLock

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// NewDoctorLockService creates the lock registry and starts the background
// sweeper. Call Stop() during graceful shutdown.
func NewDoctorLockService(log *logrus.Logger) *DoctorLockService {
	svc := &DoctorLockService{
		log:      log,
		stopChan: make(chan struct{}),
	}

	svc.wg.Add(1)
	go svc.cleanupLoop()

	return svc
}

// Acquire returns the doctor's exclusion lock, locked, creating it on first
// use. The caller must Unlock it. If the sweeper deleted the entry between
// fetch and lock, the acquired lock is an orphan no other request can reach,
// so it is released and the acquisition retried against the live entry.
func (s *DoctorLockService) Acquire(doctorID uuid.UUID) *DoctorLock {
	for {
		l, _ := s.locks.LoadOrStore(doctorID, &DoctorLock{})
		lock := l.(*DoctorLock)
		lock.lastUsed.Store(time.Now().Unix())
		lock.mu.Lock()

		if current, ok := s.locks.Load(doctorID); ok && current == l {
			lock.lastUsed.Store(time.Now().Unix())
			return lock
		}
		lock.mu.Unlock()
	}
}

// Stop shuts down the sweeper. Safe to call multiple times.
func (s *DoctorLockService) Stop() {
	if s.stopped.CompareAndSwap(false, true) {
		close(s.stopChan)
		s.wg.Wait()
		s.log.Info("DoctorLockService stopped")
	}
}

func (s *DoctorLockService) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(lockCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanupStaleLocks()
		}
	}
}

// cleanupStaleLocks removes unused locks. TryLock first: a held lock is in
// use and must survive. Deleting an entry a racing Acquire just fetched is
// tolerated; the post-lock verification in Acquire detects it and retries.
func (s *DoctorLockService) cleanupStaleLocks() {
	cutoff := time.Now().Add(-lockStaleThreshold).Unix()
	var cleaned int

	s.locks.Range(func(key, value any) bool {
		lock, ok := value.(*DoctorLock)
		if !ok {
			return true
		}

		if lock.mu.TryLock() {
			if lock.lastUsed.Load() < cutoff {
				s.locks.Delete(key)
				cleaned++
			}
			lock.mu.Unlock()
		}
		return true
	})

	if cleaned > 0 {
		s.log.Debugf("Cleaned up %d stale doctor locks", cleaned)
	}
}

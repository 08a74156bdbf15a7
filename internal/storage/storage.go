package storage

import (
	"context"
	"sync"
	"time"
)

// QuotaStore decides whether a caller may run another scan
type QuotaStore interface {
	MayScan(ctx context.Context, userID string) (bool, error)
	RecordScan(ctx context.Context, userID string) error
}

// Reserver is a QuotaStore that can check and record in one step, so
// concurrent requests from one caller cannot overshoot the limit.
type Reserver interface {
	QuotaStore
	TryRecord(ctx context.Context, userID string) (bool, error)
}

type usage struct {
	day   string
	count int
}

// MemoryQuotaStore counts scans per user per UTC day in memory
type MemoryQuotaStore struct {
	usage map[string]*usage
	limit int
	now   func() time.Time
	mu    sync.RWMutex
}

// New creates a store allowing dailyLimit scans per user; 0 means unlimited
func New(dailyLimit int) *MemoryQuotaStore {
	return &MemoryQuotaStore{
		usage: make(map[string]*usage),
		limit: dailyLimit,
		now:   time.Now,
	}
}

func (s *MemoryQuotaStore) today() string {
	return s.now().UTC().Format(time.DateOnly)
}

func (s *MemoryQuotaStore) MayScan(ctx context.Context, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s.limit <= 0 {
		return true, nil
	}
	return s.Used(userID) < s.limit, nil
}

func (s *MemoryQuotaStore) RecordScan(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	day := s.today()

	s.mu.Lock()
	defer s.mu.Unlock()
	u, exists := s.usage[userID]
	if !exists || u.day != day {
		u = &usage{day: day}
		s.usage[userID] = u
	}
	u.count++
	return nil
}

// TryRecord records a scan for userID if the daily limit allows one more.
// It reports whether the scan was recorded.
func (s *MemoryQuotaStore) TryRecord(ctx context.Context, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	day := s.today()

	s.mu.Lock()
	defer s.mu.Unlock()
	u, exists := s.usage[userID]
	if !exists || u.day != day {
		u = &usage{day: day}
		s.usage[userID] = u
	}
	if s.limit > 0 && u.count >= s.limit {
		return false, nil
	}
	u.count++
	return true, nil
}

// Used returns how many scans userID has recorded today
func (s *MemoryQuotaStore) Used(userID string) int {
	day := s.today()

	s.mu.RLock()
	defer s.mu.RUnlock()
	u, exists := s.usage[userID]
	if !exists || u.day != day {
		return 0
	}
	return u.count
}

// GetAll returns today's usage for every caller
func (s *MemoryQuotaStore) GetAll() map[string]int {
	day := s.today()

	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]int, len(s.usage))
	for k, u := range s.usage {
		if u.day == day {
			result[k] = u.count
		}
	}
	return result
}

// Reset forgets all usage for userID
func (s *MemoryQuotaStore) Reset(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.usage, userID)
}

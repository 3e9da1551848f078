package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	// Redis key prefix for rendered availability grids
	redisSlotKeyPrefix = "availability:"

	// Timeout for individual Redis operations
	slotCacheTimeout = 2 * time.Second
)

// SlotCacheService caches rendered availability grids in Redis, keyed by
// doctor and calendar day. It is strictly an acceleration layer for slot
// listings: the booking conflict check never reads it, and any Redis failure
// degrades to recomputing from the store. Entries are deleted whenever a
// write can change the doctor's day.
type SlotCacheService struct {
	redisClient *redis.Client
	log         *logrus.Logger
}

func NewSlotCacheService(redisClient *redis.Client, log *logrus.Logger) *SlotCacheService {
	return &SlotCacheService{
		redisClient: redisClient,
		log:         log,
	}
}

// Get returns the cached slot list for a doctor/day, or false on miss
func (s *SlotCacheService) Get(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, slotCacheTimeout)
	defer cancel()

	raw, err := s.redisClient.Get(ctx, s.slotKey(doctorID, day)).Result()
	if err != nil {
		if err != redis.Nil {
			s.log.Warnf("Slot cache read failed for doctor %s: %+v", doctorID, err)
		}
		return nil, false
	}

	var slots []string
	if err := json.Unmarshal([]byte(raw), &slots); err != nil {
		s.log.Warnf("Slot cache entry corrupt for doctor %s, dropping: %+v", doctorID, err)
		s.redisClient.Del(ctx, s.slotKey(doctorID, day))
		return nil, false
	}

	return slots, true
}

// Set stores the slot list with a TTL running to the end of the cached day
func (s *SlotCacheService) Set(ctx context.Context, doctorID uuid.UUID, day time.Time, slots []string) {
	ctx, cancel := context.WithTimeout(ctx, slotCacheTimeout)
	defer cancel()

	raw, err := json.Marshal(slots)
	if err != nil {
		s.log.Warnf("Failed to marshal slots for doctor %s: %+v", doctorID, err)
		return
	}

	if err := s.redisClient.Set(ctx, s.slotKey(doctorID, day), raw, s.ttlFor(day)).Err(); err != nil {
		s.log.Warnf("Slot cache write failed for doctor %s (non-fatal): %+v", doctorID, err)
	}
}

// Invalidate drops the cached grid for a doctor/day after a booking write
func (s *SlotCacheService) Invalidate(ctx context.Context, doctorID uuid.UUID, day time.Time) {
	ctx, cancel := context.WithTimeout(ctx, slotCacheTimeout)
	defer cancel()

	if err := s.redisClient.Del(ctx, s.slotKey(doctorID, day)).Err(); err != nil {
		s.log.Warnf("Slot cache invalidation failed for doctor %s (non-fatal): %+v", doctorID, err)
	}
}

func (s *SlotCacheService) slotKey(doctorID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("%s%s:%s", redisSlotKeyPrefix, doctorID, day.Format("2006-01-02"))
}

// ttlFor expires the entry at the end of the cached day
func (s *SlotCacheService) ttlFor(day time.Time) time.Duration {
	endOfDay := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location()).AddDate(0, 0, 1)
	ttl := time.Until(endOfDay)

	if ttl <= 0 {
		// Past date - short TTL for cleanup
		return time.Minute
	}

	return ttl
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/abel-mek/school-roster-api/internal/models"
)

type kvStore interface {
	Get(ctx context.Context, scope, key string) (string, bool, error)
	Set(ctx context.Context, scope, key, value string) error
	AddToSet(ctx context.Context, scope, key, member string) error
	SetMembers(ctx context.Context, scope, key string) ([]string, error)
}

// WeekPointerService maintains the advisory "current week" cursor so the
// sidebar always opens on the week matching now, without any server-side
// scheduling. The pointer is a cache; losing it only costs a reset to 0.
type WeekPointerService struct {
	kv     kvStore
	logger *zap.Logger
}

// NewWeekPointerService constructs a WeekPointerService.
func NewWeekPointerService(kv kvStore, logger *zap.Logger) *WeekPointerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeekPointerService{kv: kv, logger: logger}
}

// Advance reconciles the persisted pointer with the current ISO week and
// returns the (possibly moved) index, clamped to [0, numWeeks-1].
//
// A positive ISO-week delta moves the pointer forward by exactly that many
// weeks, so a fortnight of inactivity still lands on the right week. A
// negative delta means the week number wrapped at a year boundary; the
// pointer resets to 0.
func (s *WeekPointerService) Advance(ctx context.Context, userID, courseID, academicYear string, now time.Time, numWeeks int) (int, error) {
	if numWeeks <= 0 {
		return 0, nil
	}
	scope := pointerScope(userID, courseID, academicYear)
	_, isoWeek := now.ISOWeek()

	pointer, found, err := s.load(ctx, scope)
	if err != nil {
		return 0, err
	}
	if !found {
		pointer = models.WeekPointer{PointerIndex: 0, LastISOWeek: isoWeek}
	} else {
		delta := isoWeek - pointer.LastISOWeek
		switch {
		case delta > 0:
			pointer.PointerIndex += delta
		case delta < 0:
			pointer.PointerIndex = 0
		}
		pointer.LastISOWeek = isoWeek
	}

	pointer.PointerIndex = clamp(pointer.PointerIndex, 0, numWeeks-1)

	if err := s.store(ctx, scope, pointer); err != nil {
		// Advisory state: failing to persist degrades to recomputing next
		// load, so the derived index is still returned.
		s.logger.Warn("week pointer persist failed", zap.String("scope", scope), zap.Error(err))
	}
	return pointer.PointerIndex, nil
}

func (s *WeekPointerService) load(ctx context.Context, scope string) (models.WeekPointer, bool, error) {
	raw, found, err := s.kv.Get(ctx, scope, "pointer")
	if err != nil {
		return models.WeekPointer{}, false, fmt.Errorf("load week pointer: %w", err)
	}
	if !found {
		return models.WeekPointer{}, false, nil
	}
	var pointer models.WeekPointer
	if err := json.Unmarshal([]byte(raw), &pointer); err != nil {
		// Corrupt advisory state is discarded, not surfaced.
		s.logger.Warn("week pointer unreadable, resetting", zap.String("scope", scope), zap.Error(err))
		return models.WeekPointer{}, false, nil
	}
	return pointer, true, nil
}

func (s *WeekPointerService) store(ctx context.Context, scope string, pointer models.WeekPointer) error {
	payload, err := json.Marshal(pointer)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, scope, "pointer", string(payload))
}

func pointerScope(userID, courseID, academicYear string) string {
	return fmt.Sprintf("weekptr:%s:%s:%s", userID, courseID, academicYear)
}

func clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/abel-mek/school-roster-api/internal/dto"
	"github.com/abel-mek/school-roster-api/internal/models"
	appErrors "github.com/abel-mek/school-roster-api/pkg/errors"
)

type lessonPlanFetcher interface {
	Record(ctx context.Context, segments ...string) json.RawMessage
}

type submissionStore interface {
	FindByKey(ctx context.Context, key string) (*models.SubmissionRecord, error)
	ListByCourse(ctx context.Context, teacherKey, courseID, academicYear string) ([]models.SubmissionRecord, error)
	Create(ctx context.Context, record *models.SubmissionRecord) (bool, error)
}

type snapshotProvider interface {
	Snapshot(ctx context.Context) *RosterSnapshot
}

type pointerAdvancer interface {
	Advance(ctx context.Context, userID, courseID, academicYear string, now time.Time, numWeeks int) (int, error)
}

// DeriveDayStatus computes the state of one planned day. It is pure: the
// same inputs always yield the same status.
//
// A submission record wins regardless of timing (a late write that landed
// before this read still counts). Without one, a weekday earlier than
// today's is missed; everything else is pending.
func DeriveDayStatus(dayName string, hasSubmission bool, today time.Time) models.DayStatus {
	if hasSubmission {
		return models.DayStatusSubmitted
	}
	dayIdx := models.WeekdayIndex(dayName)
	todayIdx := models.WeekdayIndex(today.Weekday().String())
	if dayIdx >= 0 && todayIdx >= 0 && dayIdx < todayIdx {
		return models.DayStatusMissed
	}
	return models.DayStatusPending
}

// ScheduleService derives lesson-plan submission status and records daily
// submissions. Status is never stored: it is recomputed from the plan, the
// submission set and the clock on every read.
type ScheduleService struct {
	mirror      lessonPlanFetcher
	roster      snapshotProvider
	submissions submissionStore
	pointers    pointerAdvancer
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
	cacheTTL    time.Duration
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(mirror lessonPlanFetcher, roster snapshotProvider, submissions submissionStore, pointers pointerAdvancer, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &ScheduleService{
		mirror:      mirror,
		roster:      roster,
		submissions: submissions,
		pointers:    pointers,
		cache:       cache,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
		cacheTTL:    cacheTTL,
	}
}

// StatusTable composes the per-day/per-week/per-month status view for one
// teacher user and course, advancing the persisted week pointer as a side
// effect. The bool result reports cache utilisation.
func (s *ScheduleService) StatusTable(ctx context.Context, teacherUserID, courseID, academicYear string) (*dto.LessonPlanStatusResponse, bool, error) {
	if courseID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "courseId is required")
	}
	if academicYear == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "academicYear is required")
	}

	snap := s.roster.Snapshot(ctx)
	teacherKey := snap.TeacherKeyForUser(teacherUserID)
	if teacherKey == "" {
		// No teacher profile behind this user: an expected, empty outcome.
		return &dto.LessonPlanStatusResponse{
			CourseID:     courseID,
			AcademicYear: academicYear,
			Weeks:        []models.WeekStatus{},
		}, false, nil
	}

	today := s.now().UTC()
	cacheKey := fmt.Sprintf("lp:status:%s:%s:%s:%s", teacherKey, courseID, academicYear, today.Format("2006-01-02"))
	if s.cache.Enabled() {
		var cached dto.LessonPlanStatusResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	weeks := models.DecodeLessonPlanWeeks(s.mirror.Record(ctx, models.SubtreeLessonPlans, teacherKey, courseID))

	pointer, err := s.pointers.Advance(ctx, teacherUserID, courseID, academicYear, today, len(weeks))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reconcile week pointer")
	}

	submitted, err := s.submittedKeys(ctx, teacherKey, courseID, academicYear)
	if err != nil {
		return nil, false, err
	}

	weekStatuses := deriveWeekStatuses(weeks, submitted, teacherKey, courseID, pointer, today)
	resp := &dto.LessonPlanStatusResponse{
		CourseID:     courseID,
		AcademicYear: academicYear,
		TeacherKey:   teacherKey,
		PointerIndex: pointer,
		NumWeeks:     len(weeks),
		Weeks:        weekStatuses,
		Months:       rollupMonths(weekStatuses),
	}

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, cacheKey, resp, s.cacheTTL)
	}
	return resp, false, nil
}

// SubmitDaily records one planned day as submitted. The write is confirmed
// before any submitted status is reported; a failed write leaves the day in
// its derived (pending) state. Submitting an already-submitted day is a
// no-op returning the existing record; submitting a missed day is rejected.
func (s *ScheduleService) SubmitDaily(ctx context.Context, teacherUserID string, req dto.SubmitDailyRequest) (*dto.SubmitDailyResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	if models.WeekdayIndex(req.DayName) < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown day name")
	}

	snap := s.roster.Snapshot(ctx)
	teacherKey := snap.TeacherKeyForUser(teacherUserID)
	if teacherKey == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher profile not found")
	}

	key := models.SubmissionKey(teacherKey, req.CourseID, req.Week, req.DayName)

	if existing, err := s.submissions.FindByKey(ctx, key); err == nil {
		return &dto.SubmitDailyResponse{
			Key:         existing.Key,
			Status:      models.DayStatusSubmitted,
			SubmittedAt: existing.SubmittedAt,
			AlreadyDone: true,
		}, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing submission")
	}

	weeks := models.DecodeLessonPlanWeeks(s.mirror.Record(ctx, models.SubtreeLessonPlans, teacherKey, req.CourseID))
	if len(weeks) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no lesson plan for course")
	}
	if req.Week > len(weeks) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "week not in lesson plan")
	}

	today := s.now().UTC()
	pointer, err := s.pointers.Advance(ctx, teacherUserID, req.CourseID, req.AcademicYear, today, len(weeks))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reconcile week pointer")
	}

	// missed -> submitted is not a legal transition.
	weekIdx := req.Week - 1
	if weekIdx < pointer {
		return nil, appErrors.Clone(appErrors.ErrDayMissed, "week already closed")
	}
	if weekIdx == pointer && DeriveDayStatus(req.DayName, false, today) == models.DayStatusMissed {
		return nil, appErrors.ErrDayMissed
	}

	record := &models.SubmissionRecord{
		Key:          key,
		TeacherKey:   teacherKey,
		CourseID:     req.CourseID,
		AcademicYear: req.AcademicYear,
		Week:         req.Week,
		DayName:      req.DayName,
		SubmittedAt:  today,
	}
	inserted, err := s.submissions.Create(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "submission not recorded")
	}
	if !inserted {
		// Lost a race with an identical submission; report the winner.
		if existing, err := s.submissions.FindByKey(ctx, key); err == nil {
			return &dto.SubmitDailyResponse{
				Key:         existing.Key,
				Status:      models.DayStatusSubmitted,
				SubmittedAt: existing.SubmittedAt,
				AlreadyDone: true,
			}, nil
		}
	}

	if s.cache.Enabled() {
		_ = s.cache.Invalidate(ctx, fmt.Sprintf("lp:status:%s:%s:*", teacherKey, req.CourseID))
	}

	return &dto.SubmitDailyResponse{
		Key:         record.Key,
		Status:      models.DayStatusSubmitted,
		SubmittedAt: record.SubmittedAt,
	}, nil
}

func (s *ScheduleService) submittedKeys(ctx context.Context, teacherKey, courseID, academicYear string) (map[string]struct{}, error) {
	records, err := s.submissions.ListByCourse(ctx, teacherKey, courseID, academicYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	keys := make(map[string]struct{}, len(records))
	for _, record := range records {
		keys[record.Key] = struct{}{}
	}
	return keys, nil
}

// deriveWeekStatuses applies the day state machine across the whole plan.
// Weeks behind the pointer are closed (unsubmitted days are missed), the
// pointed week follows the weekday rule, and future weeks stay pending.
func deriveWeekStatuses(weeks []models.LessonPlanWeek, submitted map[string]struct{}, teacherKey, courseID string, pointer int, today time.Time) []models.WeekStatus {
	out := make([]models.WeekStatus, 0, len(weeks))
	for i, week := range weeks {
		weekNumber := week.Week
		if weekNumber == 0 {
			weekNumber = i + 1
		}
		status := models.WeekStatus{Week: weekNumber, Month: week.Month, Topic: week.Topic}
		for _, day := range week.Days {
			key := models.SubmissionKey(teacherKey, courseID, weekNumber, day.DayName)
			_, hasSubmission := submitted[key]

			var dayStatus models.DayStatus
			switch {
			case hasSubmission:
				dayStatus = models.DayStatusSubmitted
			case i < pointer:
				dayStatus = models.DayStatusMissed
			case i > pointer:
				dayStatus = models.DayStatusPending
			default:
				dayStatus = DeriveDayStatus(day.DayName, false, today)
			}

			switch dayStatus {
			case models.DayStatusSubmitted:
				status.Submitted++
			case models.DayStatusMissed:
				status.Missed++
			default:
				status.Pending++
			}
			status.Days = append(status.Days, models.DayStatusRow{DayPlan: day, Status: dayStatus})
		}
		out = append(out, status)
	}
	return out
}

func rollupMonths(weeks []models.WeekStatus) []models.MonthStatus {
	index := make(map[string]int)
	out := make([]models.MonthStatus, 0)
	for _, week := range weeks {
		month := week.Month
		if month == "" {
			continue
		}
		pos, ok := index[month]
		if !ok {
			pos = len(out)
			index[month] = pos
			out = append(out, models.MonthStatus{Month: month})
		}
		out[pos].Submitted += week.Submitted
		out[pos].Missed += week.Missed
		out[pos].Pending += week.Pending
	}
	return out
}

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abel-mek/school-roster-api/internal/dto"
	"github.com/abel-mek/school-roster-api/internal/models"
	appErrors "github.com/abel-mek/school-roster-api/pkg/errors"
)

type stubPlanFetcher struct {
	records map[string]json.RawMessage
}

func (s *stubPlanFetcher) Record(_ context.Context, segments ...string) json.RawMessage {
	return s.records[strings.Join(segments, "/")]
}

type stubRoster struct {
	snap *RosterSnapshot
}

func (s *stubRoster) Snapshot(context.Context) *RosterSnapshot {
	return s.snap
}

type stubSubmissions struct {
	records   map[string]*models.SubmissionRecord
	createErr error
	created   []*models.SubmissionRecord
}

func (s *stubSubmissions) FindByKey(_ context.Context, key string) (*models.SubmissionRecord, error) {
	if record, ok := s.records[key]; ok {
		return record, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubSubmissions) ListByCourse(_ context.Context, teacherKey, courseID, academicYear string) ([]models.SubmissionRecord, error) {
	out := make([]models.SubmissionRecord, 0, len(s.records))
	for _, record := range s.records {
		if record.TeacherKey == teacherKey && record.CourseID == courseID && record.AcademicYear == academicYear {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (s *stubSubmissions) Create(_ context.Context, record *models.SubmissionRecord) (bool, error) {
	if s.createErr != nil {
		return false, s.createErr
	}
	if _, exists := s.records[record.Key]; exists {
		return false, nil
	}
	if s.records == nil {
		s.records = make(map[string]*models.SubmissionRecord)
	}
	s.records[record.Key] = record
	s.created = append(s.created, record)
	return true, nil
}

type stubPointer struct {
	index int
	err   error
}

func (s *stubPointer) Advance(context.Context, string, string, string, time.Time, int) (int, error) {
	return s.index, s.err
}

func rosterWithTeacher(userID, teacherKey string) *stubRoster {
	return &stubRoster{snap: &RosterSnapshot{
		teacherKeyByUserID: map[string]string{userID: teacherKey},
	}}
}

const testPlan = `{
	"weeks": [
		{"week": 1, "month": "September", "topic": "Numbers", "days": [
			{"date": "2025-09-01", "dayName": "Monday", "topic": "Counting"},
			{"date": "2025-09-03", "dayName": "Wednesday", "topic": "Addition"}
		]},
		{"week": 2, "month": "September", "topic": "Shapes", "days": [
			{"date": "2025-09-08", "dayName": "Monday", "topic": "Circles"},
			{"date": "2025-09-10", "dayName": "Wednesday", "topic": "Squares"},
			{"date": "2025-09-12", "dayName": "Friday", "topic": "Triangles"}
		]}
	]
}`

func newScheduleFixture(t *testing.T, submissions *stubSubmissions, pointer *stubPointer) *ScheduleService {
	t.Helper()
	mirror := &stubPlanFetcher{records: map[string]json.RawMessage{
		"LessonPlans/t1/c1": json.RawMessage(testPlan),
	}}
	svc := NewScheduleService(mirror, rosterWithTeacher("u1", "t1"), submissions, pointer, nil, nil, nil, 0)
	// Wednesday of the second plan week.
	svc.now = func() time.Time { return time.Date(2025, 9, 10, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestDeriveDayStatus(t *testing.T) {
	wednesday := time.Date(2025, 9, 10, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, models.DayStatusSubmitted, DeriveDayStatus("Monday", true, wednesday))
	assert.Equal(t, models.DayStatusMissed, DeriveDayStatus("Monday", false, wednesday))
	assert.Equal(t, models.DayStatusPending, DeriveDayStatus("Wednesday", false, wednesday))
	assert.Equal(t, models.DayStatusPending, DeriveDayStatus("Friday", false, wednesday))
	assert.Equal(t, models.DayStatusPending, DeriveDayStatus("Blursday", false, wednesday))
}

func TestStatusTableDerivesWeekStates(t *testing.T) {
	submissions := &stubSubmissions{records: map[string]*models.SubmissionRecord{
		"t1:c1:1:Monday": {
			Key:          "t1:c1:1:Monday",
			TeacherKey:   "t1",
			CourseID:     "c1",
			AcademicYear: "2025",
			Week:         1,
			DayName:      "Monday",
			SubmittedAt:  time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC),
		},
	}}
	svc := newScheduleFixture(t, submissions, &stubPointer{index: 1})

	resp, cached, err := svc.StatusTable(context.Background(), "u1", "c1", "2025")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "t1", resp.TeacherKey)
	assert.Equal(t, 1, resp.PointerIndex)
	require.Len(t, resp.Weeks, 2)

	// Week 1 is behind the pointer: submitted day stays, the rest is missed.
	week1 := resp.Weeks[0]
	assert.Equal(t, 1, week1.Submitted)
	assert.Equal(t, 1, week1.Missed)
	assert.Equal(t, 0, week1.Pending)
	assert.Equal(t, models.DayStatusSubmitted, week1.Days[0].Status)
	assert.Equal(t, models.DayStatusMissed, week1.Days[1].Status)

	// Week 2 is current: Monday passed unsubmitted, Wednesday and Friday pend.
	week2 := resp.Weeks[1]
	assert.Equal(t, models.DayStatusMissed, week2.Days[0].Status)
	assert.Equal(t, models.DayStatusPending, week2.Days[1].Status)
	assert.Equal(t, models.DayStatusPending, week2.Days[2].Status)

	require.Len(t, resp.Months, 1)
	assert.Equal(t, "September", resp.Months[0].Month)
	assert.Equal(t, 1, resp.Months[0].Submitted)
	assert.Equal(t, 2, resp.Months[0].Missed)
	assert.Equal(t, 2, resp.Months[0].Pending)
}

func TestStatusTableWithoutTeacherProfile(t *testing.T) {
	svc := NewScheduleService(&stubPlanFetcher{}, &stubRoster{snap: &RosterSnapshot{}}, &stubSubmissions{}, &stubPointer{}, nil, nil, nil, 0)

	resp, cached, err := svc.StatusTable(context.Background(), "nobody", "c1", "2025")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Empty(t, resp.Weeks)
	assert.Empty(t, resp.TeacherKey)
}

func TestStatusTableRejectsMissingCourse(t *testing.T) {
	svc := newScheduleFixture(t, &stubSubmissions{}, &stubPointer{})

	_, _, err := svc.StatusTable(context.Background(), "u1", "", "2025")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmitDailyRecordsPendingDay(t *testing.T) {
	submissions := &stubSubmissions{}
	svc := newScheduleFixture(t, submissions, &stubPointer{index: 1})

	resp, err := svc.SubmitDaily(context.Background(), "u1", dto.SubmitDailyRequest{
		CourseID:     "c1",
		AcademicYear: "2025",
		Week:         2,
		DayName:      "Wednesday",
	})
	require.NoError(t, err)
	assert.Equal(t, "t1:c1:2:Wednesday", resp.Key)
	assert.Equal(t, models.DayStatusSubmitted, resp.Status)
	assert.False(t, resp.AlreadyDone)
	require.Len(t, submissions.created, 1)
	assert.Equal(t, "t1", submissions.created[0].TeacherKey)
}

func TestSubmitDailyIsIdempotent(t *testing.T) {
	submittedAt := time.Date(2025, 9, 10, 8, 0, 0, 0, time.UTC)
	submissions := &stubSubmissions{records: map[string]*models.SubmissionRecord{
		"t1:c1:2:Wednesday": {Key: "t1:c1:2:Wednesday", SubmittedAt: submittedAt},
	}}
	svc := newScheduleFixture(t, submissions, &stubPointer{index: 1})

	resp, err := svc.SubmitDaily(context.Background(), "u1", dto.SubmitDailyRequest{
		CourseID:     "c1",
		AcademicYear: "2025",
		Week:         2,
		DayName:      "Wednesday",
	})
	require.NoError(t, err)
	assert.True(t, resp.AlreadyDone)
	assert.Equal(t, submittedAt, resp.SubmittedAt)
	assert.Empty(t, submissions.created)
}

func TestSubmitDailyRejectsMissedDay(t *testing.T) {
	svc := newScheduleFixture(t, &stubSubmissions{}, &stubPointer{index: 1})

	// Monday of the current week has already passed.
	_, err := svc.SubmitDaily(context.Background(), "u1", dto.SubmitDailyRequest{
		CourseID:     "c1",
		AcademicYear: "2025",
		Week:         2,
		DayName:      "Monday",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDayMissed.Code, appErrors.FromError(err).Code)
}

func TestSubmitDailyRejectsClosedWeek(t *testing.T) {
	svc := newScheduleFixture(t, &stubSubmissions{}, &stubPointer{index: 1})

	_, err := svc.SubmitDaily(context.Background(), "u1", dto.SubmitDailyRequest{
		CourseID:     "c1",
		AcademicYear: "2025",
		Week:         1,
		DayName:      "Wednesday",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDayMissed.Code, appErrors.FromError(err).Code)
}

func TestSubmitDailyRejectsUnknownDayName(t *testing.T) {
	svc := newScheduleFixture(t, &stubSubmissions{}, &stubPointer{index: 1})

	_, err := svc.SubmitDaily(context.Background(), "u1", dto.SubmitDailyRequest{
		CourseID:     "c1",
		AcademicYear: "2025",
		Week:         2,
		DayName:      "Blursday",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmitDailySurfacesWriteFailure(t *testing.T) {
	submissions := &stubSubmissions{createErr: errors.New("connection refused")}
	svc := newScheduleFixture(t, submissions, &stubPointer{index: 1})

	_, err := svc.SubmitDaily(context.Background(), "u1", dto.SubmitDailyRequest{
		CourseID:     "c1",
		AcademicYear: "2025",
		Week:         2,
		DayName:      "Wednesday",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

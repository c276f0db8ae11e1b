package dto

import (
	"time"

	"github.com/abel-mek/school-roster-api/internal/models"
)

// LessonPlanStatusResponse is the derived status table for one teacher,
// course and academic year.
type LessonPlanStatusResponse struct {
	CourseID     string               `json:"course_id"`
	AcademicYear string               `json:"academic_year"`
	TeacherKey   string               `json:"teacher_key"`
	PointerIndex int                  `json:"pointer_index"`
	NumWeeks     int                  `json:"num_weeks"`
	Weeks        []models.WeekStatus  `json:"weeks"`
	Months       []models.MonthStatus `json:"months,omitempty"`
}

// SubmitDailyRequest marks one planned day as submitted.
type SubmitDailyRequest struct {
	CourseID     string `json:"courseId" validate:"required"`
	AcademicYear string `json:"academicYear" validate:"required"`
	Week         int    `json:"week" validate:"required,min=1"`
	DayName      string `json:"dayName" validate:"required"`
}

// SubmitDailyResponse reports the confirmed submission.
type SubmitDailyResponse struct {
	Key         string           `json:"key"`
	Status      models.DayStatus `json:"status"`
	SubmittedAt time.Time        `json:"submitted_at"`
	AlreadyDone bool             `json:"already_done"`
}

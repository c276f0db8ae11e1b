package models

import (
	"fmt"
	"time"
)

// SubmissionRecord marks one lesson-plan day as submitted. The composite key
// is built from the teacher key (not the user id), the course id, the week
// number and the day name; status is always derived from the presence of a
// record, never stored.
type SubmissionRecord struct {
	ID           string    `db:"id" json:"id"`
	Key          string    `db:"submission_key" json:"key"`
	TeacherKey   string    `db:"teacher_key" json:"teacher_key"`
	CourseID     string    `db:"course_id" json:"course_id"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	Week         int       `db:"week" json:"week"`
	DayName      string    `db:"day_name" json:"day_name"`
	SubmittedAt  time.Time `db:"submitted_at" json:"submitted_at"`
}

// SubmissionKey encodes the composite key identifying one submitted day.
func SubmissionKey(teacherKey, courseID string, week int, dayName string) string {
	return fmt.Sprintf("%s:%s:%d:%s", teacherKey, courseID, week, dayName)
}

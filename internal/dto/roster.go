package dto

import "github.com/abel-mek/school-roster-api/internal/models"

// ParentChildrenResponse lists the joined children rows for one parent.
type ParentChildrenResponse struct {
	ParentID string                 `json:"parent_id"`
	Children []models.ChildSummary  `json:"children"`
}

// RosterMapResponse is the admin-facing full parent -> children map.
type RosterMapResponse struct {
	Parents map[string][]models.ChildSummary `json:"parents"`
}

// TeacherCoursesResponse lists the courses resolved for a teacher user.
type TeacherCoursesResponse struct {
	TeacherUserID string          `json:"teacher_user_id"`
	TeacherKey    string          `json:"teacher_key,omitempty"`
	Courses       []models.Course `json:"courses"`
}

package models

import "strings"

// Fallback placeholders used when a foreign key cannot be resolved. A broken
// link must never blank out a row.
const (
	UnknownName         = "Unknown"
	UnknownField        = "—"
	DefaultProfileImage = "/assets/avatar-default.png"
)

// Teacher mirrors a record from the Teachers subtree. TeacherKey is the
// subtree record id and the join key used by lesson plans, attendance and
// marks. It is distinct from UserID; submission keys must use TeacherKey.
type Teacher struct {
	TeacherKey        string   `json:"teacher_key"`
	UserID            string   `json:"user_id"`
	AssignedCourseIDs []string `json:"assigned_course_ids,omitempty"`
}

// Student mirrors a record from the Students subtree.
type Student struct {
	StudentID    string `json:"student_id"`
	UserID       string `json:"user_id"`
	Name         string `json:"name,omitempty"`
	Grade        string `json:"grade"`
	Section      string `json:"section"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// ChildLink associates a parent with one student.
type ChildLink struct {
	StudentID    string `json:"student_id"`
	Relationship string `json:"relationship"`
}

// Parent mirrors a record from the Parents subtree.
type Parent struct {
	ParentID string      `json:"parent_id"`
	UserID   string      `json:"user_id"`
	Children []ChildLink `json:"children,omitempty"`
}

// ChildSummary is the joined row shown on parent and admin dashboards.
type ChildSummary struct {
	StudentID    string `json:"student_id"`
	Name         string `json:"name"`
	Grade        string `json:"grade"`
	Section      string `json:"section"`
	Relationship string `json:"relationship"`
	ProfileImage string `json:"profile_image"`
}

// TeacherAssignment links a teacher key to a course.
type TeacherAssignment struct {
	ID         string `json:"id"`
	TeacherKey string `json:"teacher_key"`
	CourseID   string `json:"course_id"`
}

// Course identity is the composite of grade, section and subject, encoded as
// a single string key in the Courses subtree.
type Course struct {
	CourseID string `json:"course_id"`
	Grade    string `json:"grade"`
	Section  string `json:"section"`
	Subject  string `json:"subject"`
}

// CourseKey encodes the composite course identity.
func CourseKey(grade, section, subject string) string {
	return strings.Join([]string{grade, section, subject}, "_")
}

// ParseCourseKey splits an encoded course id back into its parts. Returns
// false when the key does not carry all three components.
func ParseCourseKey(key string) (grade, section, subject string, ok bool) {
	parts := strings.SplitN(key, "_", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

package service

import (
	"context"
	"encoding/json"
	"sort"

	"go.uber.org/zap"

	"github.com/abel-mek/school-roster-api/internal/models"
)

type subtreeFetcher interface {
	Subtrees(ctx context.Context, names ...string) map[string]map[string]json.RawMessage
}

// RosterSnapshot is one decoded fetch of the roster subtrees. Fetches are
// independent, so any subset may be stale relative to another; joins are
// pure functions over whatever the snapshot holds.
type RosterSnapshot struct {
	Users       map[string]models.User
	Students    map[string]models.Student
	Parents     map[string]models.Parent
	Teachers    map[string]models.Teacher
	Courses     map[string]models.Course
	Assignments map[string]models.TeacherAssignment

	teacherKeyByUserID map[string]string
}

// TeacherKeyForUser resolves the lesson-plan join key for a user id. The
// empty result is a normal outcome (the user has no teacher profile).
func (s *RosterSnapshot) TeacherKeyForUser(userID string) string {
	if s == nil || userID == "" {
		return ""
	}
	return s.teacherKeyByUserID[userID]
}

// RosterService joins the flat mirror subtrees into role-specific views.
type RosterService struct {
	mirror subtreeFetcher
	logger *zap.Logger
}

// NewRosterService constructs a RosterService.
func NewRosterService(mirror subtreeFetcher, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{mirror: mirror, logger: logger}
}

// Snapshot fetches and decodes the roster subtrees. Partial data is fine;
// absent subtrees decode to empty maps.
func (s *RosterService) Snapshot(ctx context.Context) *RosterSnapshot {
	raw := s.mirror.Subtrees(ctx,
		models.SubtreeUsers,
		models.SubtreeStudents,
		models.SubtreeParents,
		models.SubtreeTeachers,
		models.SubtreeCourses,
		models.SubtreeAssignments,
	)

	snap := &RosterSnapshot{
		Users:       models.DecodeUsers(raw[models.SubtreeUsers]),
		Students:    models.DecodeStudents(raw[models.SubtreeStudents]),
		Parents:     models.DecodeParents(raw[models.SubtreeParents]),
		Teachers:    models.DecodeTeachers(raw[models.SubtreeTeachers]),
		Courses:     models.DecodeCourses(raw[models.SubtreeCourses]),
		Assignments: models.DecodeAssignments(raw[models.SubtreeAssignments]),
	}

	// The userId -> teacherKey index replaces a per-request linear scan; it
	// is rebuilt on every snapshot so the semantics stay those of the scan.
	snap.teacherKeyByUserID = make(map[string]string, len(snap.Teachers))
	keys := make([]string, 0, len(snap.Teachers))
	for key := range snap.Teachers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		teacher := snap.Teachers[key]
		if teacher.UserID == "" {
			continue
		}
		if _, taken := snap.teacherKeyByUserID[teacher.UserID]; !taken {
			snap.teacherKeyByUserID[teacher.UserID] = teacher.TeacherKey
		}
	}

	return snap
}

// JoinStudentsToParents builds the parent -> children view. Broken student
// or user links degrade to placeholder fields; rows are never dropped.
func (s *RosterService) JoinStudentsToParents(snap *RosterSnapshot) map[string][]models.ChildSummary {
	out := make(map[string][]models.ChildSummary, len(snap.Parents))
	for parentID, parent := range snap.Parents {
		summaries := make([]models.ChildSummary, 0, len(parent.Children))
		for _, link := range parent.Children {
			summaries = append(summaries, s.childSummary(snap, link))
		}
		out[parentID] = summaries
	}
	return out
}

// ChildrenOfParent returns the joined rows for a single parent. An unknown
// parent id yields an empty list.
func (s *RosterService) ChildrenOfParent(snap *RosterSnapshot, parentID string) []models.ChildSummary {
	parent, ok := snap.Parents[parentID]
	if !ok {
		return []models.ChildSummary{}
	}
	summaries := make([]models.ChildSummary, 0, len(parent.Children))
	for _, link := range parent.Children {
		summaries = append(summaries, s.childSummary(snap, link))
	}
	return summaries
}

// JoinCoursesToTeacher resolves the courses assigned to the teacher profile
// behind a user id. No teacher profile means an empty list, which is an
// expected outcome, not an error.
func (s *RosterService) JoinCoursesToTeacher(snap *RosterSnapshot, teacherUserID string) []models.Course {
	teacherKey := snap.TeacherKeyForUser(teacherUserID)
	if teacherKey == "" {
		return []models.Course{}
	}

	courseIDs := make([]string, 0)
	seen := make(map[string]struct{})
	for _, assignment := range snap.Assignments {
		if assignment.TeacherKey != teacherKey || assignment.CourseID == "" {
			continue
		}
		if _, dup := seen[assignment.CourseID]; dup {
			continue
		}
		seen[assignment.CourseID] = struct{}{}
		courseIDs = append(courseIDs, assignment.CourseID)
	}
	if teacher, ok := snap.Teachers[teacherKey]; ok {
		for _, courseID := range teacher.AssignedCourseIDs {
			if _, dup := seen[courseID]; dup || courseID == "" {
				continue
			}
			seen[courseID] = struct{}{}
			courseIDs = append(courseIDs, courseID)
		}
	}
	sort.Strings(courseIDs)

	courses := make([]models.Course, 0, len(courseIDs))
	for _, courseID := range courseIDs {
		if course, ok := snap.Courses[courseID]; ok {
			courses = append(courses, course)
			continue
		}
		// A dangling assignment still renders: rebuild what the key encodes.
		courses = append(courses, models.NormalizeCourse(courseID, map[string]interface{}{}))
	}
	return courses
}

func (s *RosterService) childSummary(snap *RosterSnapshot, link models.ChildLink) models.ChildSummary {
	summary := models.ChildSummary{
		StudentID:    link.StudentID,
		Name:         models.UnknownName,
		Grade:        models.UnknownField,
		Section:      models.UnknownField,
		Relationship: link.Relationship,
		ProfileImage: models.DefaultProfileImage,
	}
	if summary.Relationship == "" {
		summary.Relationship = models.UnknownField
	}

	student, ok := snap.Students[link.StudentID]
	if !ok {
		return summary
	}
	if student.Grade != "" {
		summary.Grade = student.Grade
	}
	if student.Section != "" {
		summary.Section = student.Section
	}
	if student.Name != "" {
		summary.Name = student.Name
	}
	if student.ProfileImage != "" {
		summary.ProfileImage = student.ProfileImage
	}

	// The linked User record wins over raw student fields when present.
	if user, ok := snap.Users[student.UserID]; ok {
		if user.Name != "" {
			summary.Name = user.Name
		}
		if user.ProfileImage != "" {
			summary.ProfileImage = user.ProfileImage
		}
	}
	return summary
}

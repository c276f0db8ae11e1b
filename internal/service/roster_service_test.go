package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abel-mek/school-roster-api/internal/models"
)

type stubSubtreeFetcher struct {
	subtrees map[string]map[string]json.RawMessage
}

func (s *stubSubtreeFetcher) Subtrees(_ context.Context, names ...string) map[string]map[string]json.RawMessage {
	out := make(map[string]map[string]json.RawMessage, len(names))
	for _, name := range names {
		records, ok := s.subtrees[name]
		if !ok {
			records = map[string]json.RawMessage{}
		}
		out[name] = records
	}
	return out
}

func rosterFixture() *stubSubtreeFetcher {
	return &stubSubtreeFetcher{subtrees: map[string]map[string]json.RawMessage{
		"Users": {
			"u1": json.RawMessage(`{"name": "Abel", "role": "student", "profileImage": "/img/abel.png"}`),
			"u9": json.RawMessage(`{"name": "Ms. Worku", "role": "teacher"}`),
		},
		"Students": {
			"s1": json.RawMessage(`{"userId": "u1", "grade": "4", "section": "A"}`),
			"s2": json.RawMessage(`{"userId": "missing-user", "name": "Hanna", "grade": "5", "section": "B"}`),
		},
		"Parents": {
			"p1": json.RawMessage(`{"userId": "u5", "children": [{"studentId": "s1", "relationship": "Father"}, {"studentId": "ghost"}]}`),
		},
		"Teachers": {
			"t1": json.RawMessage(`{"userId": "u9", "assignedCourses": ["4_A_Maths"]}`),
		},
		"Courses": {
			"4_A_Maths":   json.RawMessage(`{"grade": "4", "section": "A", "subject": "Maths"}`),
			"4_A_Science": json.RawMessage(`{"subject": "Science"}`),
		},
		"TeacherAssignments": {
			"a1": json.RawMessage(`{"teacherKey": "t1", "courseId": "4_A_Science"}`),
			"a2": json.RawMessage(`{"teacherKey": "other", "courseId": "9_C_History"}`),
		},
	}}
}

func TestSnapshotResolvesTeacherKeys(t *testing.T) {
	svc := NewRosterService(rosterFixture(), nil)
	snap := svc.Snapshot(context.Background())

	assert.Equal(t, "t1", snap.TeacherKeyForUser("u9"))
	assert.Empty(t, snap.TeacherKeyForUser("u1"))
	assert.Empty(t, snap.TeacherKeyForUser(""))
}

func TestChildrenOfParentJoinsThroughUsers(t *testing.T) {
	svc := NewRosterService(rosterFixture(), nil)
	snap := svc.Snapshot(context.Background())

	children := svc.ChildrenOfParent(snap, "p1")
	require.Len(t, children, 2)

	// The student row resolves through its linked user record.
	abel := children[0]
	assert.Equal(t, "s1", abel.StudentID)
	assert.Equal(t, "Abel", abel.Name)
	assert.Equal(t, "4", abel.Grade)
	assert.Equal(t, "A", abel.Section)
	assert.Equal(t, "Father", abel.Relationship)
	assert.Equal(t, "/img/abel.png", abel.ProfileImage)

	// A dangling student link still yields a complete placeholder row.
	ghost := children[1]
	assert.Equal(t, "ghost", ghost.StudentID)
	assert.Equal(t, models.UnknownName, ghost.Name)
	assert.Equal(t, models.UnknownField, ghost.Grade)
	assert.Equal(t, models.UnknownField, ghost.Relationship)
	assert.Equal(t, models.DefaultProfileImage, ghost.ProfileImage)
}

func TestChildSummaryFallsBackToStudentFields(t *testing.T) {
	fetcher := rosterFixture()
	fetcher.subtrees["Parents"]["p2"] = json.RawMessage(`{"children": [{"studentId": "s2", "relationship": "Mother"}]}`)
	svc := NewRosterService(fetcher, nil)
	snap := svc.Snapshot(context.Background())

	children := svc.ChildrenOfParent(snap, "p2")
	require.Len(t, children, 1)
	// s2's user link is broken, so the raw student name carries the row.
	assert.Equal(t, "Hanna", children[0].Name)
	assert.Equal(t, "5", children[0].Grade)
}

func TestChildrenOfUnknownParent(t *testing.T) {
	svc := NewRosterService(rosterFixture(), nil)
	snap := svc.Snapshot(context.Background())

	assert.Empty(t, svc.ChildrenOfParent(snap, "nobody"))
}

func TestJoinCoursesToTeacherMergesSources(t *testing.T) {
	svc := NewRosterService(rosterFixture(), nil)
	snap := svc.Snapshot(context.Background())

	courses := svc.JoinCoursesToTeacher(snap, "u9")
	require.Len(t, courses, 2)
	// Sorted by course id: the assignment course and the profile course.
	assert.Equal(t, "4_A_Maths", courses[0].CourseID)
	assert.Equal(t, "Maths", courses[0].Subject)
	assert.Equal(t, "4_A_Science", courses[1].CourseID)
	assert.Equal(t, "Science", courses[1].Subject)
	// Partial course records backfill from the composite key.
	assert.Equal(t, "4", courses[1].Grade)
	assert.Equal(t, "A", courses[1].Section)
}

func TestJoinCoursesRebuildsDanglingCourse(t *testing.T) {
	fetcher := rosterFixture()
	delete(fetcher.subtrees["Courses"], "4_A_Science")
	svc := NewRosterService(fetcher, nil)
	snap := svc.Snapshot(context.Background())

	courses := svc.JoinCoursesToTeacher(snap, "u9")
	require.Len(t, courses, 2)
	assert.Equal(t, "4_A_Science", courses[1].CourseID)
	assert.Equal(t, "Science", courses[1].Subject)
}

func TestJoinCoursesWithoutTeacherProfile(t *testing.T) {
	svc := NewRosterService(rosterFixture(), nil)
	snap := svc.Snapshot(context.Background())

	assert.Empty(t, svc.JoinCoursesToTeacher(snap, "u1"))
}

func TestJoinStudentsToParentsCoversAllParents(t *testing.T) {
	svc := NewRosterService(rosterFixture(), nil)
	snap := svc.Snapshot(context.Background())

	byParent := svc.JoinStudentsToParents(snap)
	require.Contains(t, byParent, "p1")
	assert.Len(t, byParent["p1"], 2)
}

func TestSnapshotWithEmptyMirror(t *testing.T) {
	svc := NewRosterService(&stubSubtreeFetcher{subtrees: map[string]map[string]json.RawMessage{}}, nil)
	snap := svc.Snapshot(context.Background())

	assert.Empty(t, snap.Users)
	assert.Empty(t, svc.ChildrenOfParent(snap, "p1"))
	assert.Empty(t, svc.JoinCoursesToTeacher(snap, "u9"))
}

package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUserFallbackChain(t *testing.T) {
	user := NormalizeUser("u1", map[string]interface{}{
		"fullName": "Abel Mekonnen",
		"photoURL": "/img/abel.png",
		"userType": "Student",
	})
	assert.Equal(t, "Abel Mekonnen", user.Name)
	assert.Equal(t, "/img/abel.png", user.ProfileImage)
	assert.Equal(t, RoleStudent, user.Role)

	// The primary field wins over later fallbacks.
	user = NormalizeUser("u2", map[string]interface{}{
		"name":     "Primary",
		"fullName": "Secondary",
	})
	assert.Equal(t, "Primary", user.Name)
}

func TestNormalizeParentChildrenShapes(t *testing.T) {
	// Array shape.
	parent := NormalizeParent("p1", map[string]interface{}{
		"children": []interface{}{
			map[string]interface{}{"studentId": "s1", "relationship": "Father"},
			map[string]interface{}{"relationship": "orphan link"},
		},
	})
	require.Len(t, parent.Children, 1)
	assert.Equal(t, "s1", parent.Children[0].StudentID)

	// Push-id keyed object shape, ordered by key.
	parent = NormalizeParent("p2", map[string]interface{}{
		"children": map[string]interface{}{
			"-Nb2": map[string]interface{}{"studentId": "s2"},
			"-Na1": map[string]interface{}{"studentId": "s1"},
		},
	})
	require.Len(t, parent.Children, 2)
	assert.Equal(t, "s1", parent.Children[0].StudentID)
	assert.Equal(t, "s2", parent.Children[1].StudentID)
}

func TestNormalizeTeacherCourseList(t *testing.T) {
	teacher := NormalizeTeacher("t1", map[string]interface{}{
		"uid": "u9",
		"courses": map[string]interface{}{
			"0": "4_A_Maths",
			"1": "4_A_Science",
		},
	})
	assert.Equal(t, "u9", teacher.UserID)
	assert.Equal(t, []string{"4_A_Maths", "4_A_Science"}, teacher.AssignedCourseIDs)
}

func TestNormalizeCourseBackfillsFromKey(t *testing.T) {
	course := NormalizeCourse("4_A_Maths", map[string]interface{}{})
	assert.Equal(t, "4", course.Grade)
	assert.Equal(t, "A", course.Section)
	assert.Equal(t, "Maths", course.Subject)

	// Explicit fields win over the key.
	course = NormalizeCourse("4_A_Maths", map[string]interface{}{"subject": "Mathematics"})
	assert.Equal(t, "Mathematics", course.Subject)

	// A key without all three parts yields no backfill.
	course = NormalizeCourse("freeform", map[string]interface{}{})
	assert.Empty(t, course.Grade)
}

func TestDecodeSkipsMistypedRecords(t *testing.T) {
	users := DecodeUsers(map[string]json.RawMessage{
		"u1":  json.RawMessage(`{"name": "Abel"}`),
		"bad": json.RawMessage(`"just a string"`),
		"nil": json.RawMessage(`null`),
	})
	require.Len(t, users, 1)
	assert.Equal(t, "Abel", users["u1"].Name)
}

func TestPickStringToleratesNumbers(t *testing.T) {
	got := pickString(map[string]interface{}{"grade": float64(4)}, "grade")
	assert.Equal(t, "4", got)
}

func TestCourseKeyRoundTrip(t *testing.T) {
	key := CourseKey("4", "A", "Social Studies")
	grade, section, subject, ok := ParseCourseKey(key)
	require.True(t, ok)
	assert.Equal(t, "4", grade)
	assert.Equal(t, "A", section)
	assert.Equal(t, "Social Studies", subject)

	_, _, _, ok = ParseCourseKey("missing-parts")
	assert.False(t, ok)
}

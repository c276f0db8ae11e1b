package models

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Canonical subtree names in the mirror.
const (
	SubtreeUsers       = "Users"
	SubtreeStudents    = "Students"
	SubtreeParents     = "Parents"
	SubtreeTeachers    = "Teachers"
	SubtreeCourses     = "Courses"
	SubtreeAssignments = "TeacherAssignments"
	SubtreeLessonPlans = "LessonPlans"
	SubtreePosts       = "Posts"
	SubtreeChats       = "Chats"
)

// The upstream schema is unstable: the same logical field appears under
// several names depending on which client wrote the record. Each entity has
// exactly one normalization function with an ordered source-field list;
// callers never inline the fallback chain.

// NormalizeUser builds a User from a raw mirror record.
func NormalizeUser(id string, rec map[string]interface{}) User {
	return User{
		ID:           id,
		Name:         pickString(rec, "name", "fullName", "full_name", "displayName"),
		Username:     pickString(rec, "username", "userName"),
		ProfileImage: pickString(rec, "profileImage", "profile_image", "photoURL", "image", "avatar"),
		Role:         UserRole(strings.ToLower(pickString(rec, "role", "userType"))),
	}
}

// NormalizeStudent builds a Student from a raw mirror record.
func NormalizeStudent(id string, rec map[string]interface{}) Student {
	return Student{
		StudentID:    id,
		UserID:       pickString(rec, "userId", "user_id", "uid"),
		Name:         pickString(rec, "name", "fullName", "studentName"),
		Grade:        pickString(rec, "grade", "gradeLevel", "class"),
		Section:      pickString(rec, "section", "sec"),
		ProfileImage: pickString(rec, "profileImage", "photoURL", "image"),
	}
}

// NormalizeParent builds a Parent from a raw mirror record. The children
// collection arrives either as an array or as a push-id keyed object.
func NormalizeParent(id string, rec map[string]interface{}) Parent {
	parent := Parent{
		ParentID: id,
		UserID:   pickString(rec, "userId", "user_id", "uid"),
	}
	for _, child := range collectionValues(rec["children"]) {
		link := ChildLink{
			StudentID:    pickString(child, "studentId", "student_id", "id"),
			Relationship: pickString(child, "relationship", "relation"),
		}
		if link.StudentID == "" {
			continue
		}
		parent.Children = append(parent.Children, link)
	}
	return parent
}

// NormalizeTeacher builds a Teacher from a raw mirror record. The record id
// is the teacher key.
func NormalizeTeacher(id string, rec map[string]interface{}) Teacher {
	teacher := Teacher{
		TeacherKey: id,
		UserID:     pickString(rec, "userId", "user_id", "uid"),
	}
	for _, course := range scalarValues(rec["assignedCourses"], rec["courses"]) {
		if course != "" {
			teacher.AssignedCourseIDs = append(teacher.AssignedCourseIDs, course)
		}
	}
	return teacher
}

// NormalizeAssignment builds a TeacherAssignment from a raw mirror record.
func NormalizeAssignment(id string, rec map[string]interface{}) TeacherAssignment {
	return TeacherAssignment{
		ID:         id,
		TeacherKey: pickString(rec, "teacherKey", "teacher_key", "teacherId"),
		CourseID:   pickString(rec, "courseId", "course_id", "course"),
	}
}

// NormalizeCourse builds a Course from a raw mirror record, falling back to
// the composite record key when explicit fields are absent.
func NormalizeCourse(id string, rec map[string]interface{}) Course {
	course := Course{
		CourseID: id,
		Grade:    pickString(rec, "grade", "gradeLevel"),
		Section:  pickString(rec, "section", "sec"),
		Subject:  pickString(rec, "subject", "subjectName"),
	}
	if course.Grade == "" || course.Section == "" || course.Subject == "" {
		if grade, section, subject, ok := ParseCourseKey(id); ok {
			if course.Grade == "" {
				course.Grade = grade
			}
			if course.Section == "" {
				course.Section = section
			}
			if course.Subject == "" {
				course.Subject = subject
			}
		}
	}
	return course
}

// DecodeUsers converts a raw Users subtree into typed records.
func DecodeUsers(raw map[string]json.RawMessage) map[string]User {
	out := make(map[string]User, len(raw))
	for id, rec := range decodeRecords(raw) {
		out[id] = NormalizeUser(id, rec)
	}
	return out
}

// DecodeStudents converts a raw Students subtree into typed records.
func DecodeStudents(raw map[string]json.RawMessage) map[string]Student {
	out := make(map[string]Student, len(raw))
	for id, rec := range decodeRecords(raw) {
		out[id] = NormalizeStudent(id, rec)
	}
	return out
}

// DecodeParents converts a raw Parents subtree into typed records.
func DecodeParents(raw map[string]json.RawMessage) map[string]Parent {
	out := make(map[string]Parent, len(raw))
	for id, rec := range decodeRecords(raw) {
		out[id] = NormalizeParent(id, rec)
	}
	return out
}

// DecodeTeachers converts a raw Teachers subtree into typed records keyed by
// teacher key.
func DecodeTeachers(raw map[string]json.RawMessage) map[string]Teacher {
	out := make(map[string]Teacher, len(raw))
	for id, rec := range decodeRecords(raw) {
		out[id] = NormalizeTeacher(id, rec)
	}
	return out
}

// DecodeAssignments converts a raw TeacherAssignments subtree.
func DecodeAssignments(raw map[string]json.RawMessage) map[string]TeacherAssignment {
	out := make(map[string]TeacherAssignment, len(raw))
	for id, rec := range decodeRecords(raw) {
		out[id] = NormalizeAssignment(id, rec)
	}
	return out
}

// DecodeCourses converts a raw Courses subtree.
func DecodeCourses(raw map[string]json.RawMessage) map[string]Course {
	out := make(map[string]Course, len(raw))
	for id, rec := range decodeRecords(raw) {
		out[id] = NormalizeCourse(id, rec)
	}
	return out
}

func decodeRecords(raw map[string]json.RawMessage) map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{}, len(raw))
	for id, payload := range raw {
		var rec map[string]interface{}
		if err := json.Unmarshal(payload, &rec); err != nil || rec == nil {
			// Mistyped records are skipped, not fatal.
			continue
		}
		out[id] = rec
	}
	return out
}

// pickString returns the first non-empty string among the ordered source
// fields, tolerating numeric values written by older clients.
func pickString(rec map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := rec[key].(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// collectionValues flattens a value that is either a JSON array or a push-id
// keyed object into a list of records. Object entries are ordered by key so
// the result is deterministic.
func collectionValues(value interface{}) []map[string]interface{} {
	switch v := value.(type) {
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(v))
		for _, item := range v {
			if rec, ok := item.(map[string]interface{}); ok {
				out = append(out, rec)
			}
		}
		return out
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		out := make([]map[string]interface{}, 0, len(keys))
		for _, key := range keys {
			if rec, ok := v[key].(map[string]interface{}); ok {
				out = append(out, rec)
			}
		}
		return out
	default:
		return nil
	}
}

// scalarValues flattens the first non-nil candidate that is an array or a
// keyed object of strings.
func scalarValues(candidates ...interface{}) []string {
	for _, value := range candidates {
		switch v := value.(type) {
		case []interface{}:
			out := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok {
					out = append(out, strings.TrimSpace(s))
				}
			}
			return out
		case map[string]interface{}:
			keys := make([]string, 0, len(v))
			for key := range v {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			out := make([]string, 0, len(keys))
			for _, key := range keys {
				if s, ok := v[key].(string); ok {
					out = append(out, strings.TrimSpace(s))
				}
			}
			return out
		}
	}
	return nil
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/abel-mek/school-roster-api/internal/middleware"
	"github.com/abel-mek/school-roster-api/internal/models"
	"github.com/abel-mek/school-roster-api/internal/service"
)

type fakeRosterSrv struct {
	snap       *service.RosterSnapshot
	children   []models.ChildSummary
	byParent   map[string][]models.ChildSummary
	courses    []models.Course
	lastParent string
	lastUser   string
}

func (f *fakeRosterSrv) Snapshot(context.Context) *service.RosterSnapshot {
	if f.snap == nil {
		return &service.RosterSnapshot{}
	}
	return f.snap
}

func (f *fakeRosterSrv) ChildrenOfParent(_ *service.RosterSnapshot, parentID string) []models.ChildSummary {
	f.lastParent = parentID
	return f.children
}

func (f *fakeRosterSrv) JoinStudentsToParents(*service.RosterSnapshot) map[string][]models.ChildSummary {
	return f.byParent
}

func (f *fakeRosterSrv) JoinCoursesToTeacher(_ *service.RosterSnapshot, teacherUserID string) []models.Course {
	f.lastUser = teacherUserID
	return f.courses
}

type responseEnvelope struct {
	Data map[string]interface{} `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}

func TestParentChildrenSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeRosterSrv{children: []models.ChildSummary{{StudentID: "s1", Name: "Abel"}}}
	handler := NewRosterHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/roster/parents/p1/children", nil)
	c.Params = gin.Params{{Key: "parentId", Value: "p1"}}

	handler.ParentChildren(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p1", srv.lastParent)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, "p1", envelope.Data["parent_id"])
}

func TestParentChildrenMissingParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRosterHandler(&fakeRosterSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/roster/parents//children", nil)

	handler.ParentChildren(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAllChildrenSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRosterHandler(&fakeRosterSrv{byParent: map[string][]models.ChildSummary{
		"p1": {{StudentID: "s1"}},
	}})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/roster/children", nil)

	handler.AllChildren(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMyCoursesRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRosterHandler(&fakeRosterSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/roster/teachers/me/courses", nil)

	handler.MyCourses(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMyCoursesSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeRosterSrv{courses: []models.Course{{CourseID: "4_A_Maths", Subject: "Maths"}}}
	handler := NewRosterHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/roster/teachers/me/courses", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u9", Role: models.RoleTeacher})

	handler.MyCourses(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u9", srv.lastUser)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, "u9", envelope.Data["teacher_user_id"])
}

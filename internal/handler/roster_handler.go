package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/abel-mek/school-roster-api/internal/dto"
	"github.com/abel-mek/school-roster-api/internal/models"
	"github.com/abel-mek/school-roster-api/internal/service"
	appErrors "github.com/abel-mek/school-roster-api/pkg/errors"
	"github.com/abel-mek/school-roster-api/pkg/response"
)

type rosterService interface {
	Snapshot(ctx context.Context) *service.RosterSnapshot
	ChildrenOfParent(snap *service.RosterSnapshot, parentID string) []models.ChildSummary
	JoinStudentsToParents(snap *service.RosterSnapshot) map[string][]models.ChildSummary
	JoinCoursesToTeacher(snap *service.RosterSnapshot, teacherUserID string) []models.Course
}

// RosterHandler exposes the joined roster views.
type RosterHandler struct {
	service rosterService
}

// NewRosterHandler constructs the handler.
func NewRosterHandler(service rosterService) *RosterHandler {
	return &RosterHandler{service: service}
}

// ParentChildren godoc
// @Summary Children of one parent
// @Tags Roster
// @Produce json
// @Param parentId path string true "Parent ID"
// @Success 200 {object} response.Envelope
// @Router /roster/parents/{parentId}/children [get]
func (h *RosterHandler) ParentChildren(c *gin.Context) {
	parentID := strings.TrimSpace(c.Param("parentId"))
	if parentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "parentId is required"))
		return
	}
	snap := h.service.Snapshot(c.Request.Context())
	children := h.service.ChildrenOfParent(snap, parentID)
	response.JSON(c, http.StatusOK, dto.ParentChildrenResponse{ParentID: parentID, Children: children}, nil)
}

// AllChildren godoc
// @Summary Full parent to children map
// @Tags Roster
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /roster/children [get]
func (h *RosterHandler) AllChildren(c *gin.Context) {
	snap := h.service.Snapshot(c.Request.Context())
	response.JSON(c, http.StatusOK, dto.RosterMapResponse{Parents: h.service.JoinStudentsToParents(snap)}, nil)
}

// MyCourses godoc
// @Summary Courses assigned to the authenticated teacher
// @Tags Roster
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /roster/teachers/me/courses [get]
func (h *RosterHandler) MyCourses(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	snap := h.service.Snapshot(c.Request.Context())
	response.JSON(c, http.StatusOK, dto.TeacherCoursesResponse{
		TeacherUserID: claims.UserID,
		TeacherKey:    snap.TeacherKeyForUser(claims.UserID),
		Courses:       h.service.JoinCoursesToTeacher(snap, claims.UserID),
	}, nil)
}

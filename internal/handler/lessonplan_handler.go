package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abel-mek/school-roster-api/internal/dto"
	"github.com/abel-mek/school-roster-api/internal/middleware"
	appErrors "github.com/abel-mek/school-roster-api/pkg/errors"
	"github.com/abel-mek/school-roster-api/pkg/response"
)

type scheduleService interface {
	StatusTable(ctx context.Context, teacherUserID, courseID, academicYear string) (*dto.LessonPlanStatusResponse, bool, error)
	SubmitDaily(ctx context.Context, teacherUserID string, req dto.SubmitDailyRequest) (*dto.SubmitDailyResponse, error)
}

// LessonPlanHandler exposes the derived status table and daily submission.
type LessonPlanHandler struct {
	service scheduleService
}

// NewLessonPlanHandler constructs the handler.
func NewLessonPlanHandler(service scheduleService) *LessonPlanHandler {
	return &LessonPlanHandler{service: service}
}

// Status godoc
// @Summary Lesson plan submission status table
// @Tags LessonPlans
// @Produce json
// @Param courseId query string true "Course ID"
// @Param year query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /lesson-plans/status [get]
func (h *LessonPlanHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	courseID := strings.TrimSpace(c.Query("courseId"))
	if courseID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "courseId is required"))
		return
	}
	year := strings.TrimSpace(c.Query("year"))
	if year == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year is required"))
		return
	}

	start := time.Now()
	table, cacheHit, err := h.service.StatusTable(c.Request.Context(), claims.UserID, courseID, year)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, table, nil, meta)
}

// SubmitDaily godoc
// @Summary Submit one planned day
// @Tags LessonPlans
// @Accept json
// @Produce json
// @Param payload body dto.SubmitDailyRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Router /lesson-plans/submit-daily [post]
func (h *LessonPlanHandler) SubmitDaily(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitDailyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	result, err := h.service.SubmitDaily(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.AlreadyDone {
		response.JSON(c, http.StatusOK, result, nil)
		return
	}
	response.Created(c, result)
}

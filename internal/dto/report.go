package dto

import (
	"time"

	"github.com/abel-mek/school-roster-api/internal/models"
)

// ReportRequest asks for an asynchronous lesson-plan status export.
type ReportRequest struct {
	CourseID     string              `json:"courseId" validate:"required"`
	AcademicYear string              `json:"academicYear" validate:"required"`
	Format       models.ReportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ReportJobResponse acknowledges an enqueued job.
type ReportJobResponse struct {
	ID     string              `json:"id"`
	Status models.ReportStatus `json:"status"`
}

// ReportStatusResponse exposes job progress and, once finished, the signed
// download token.
type ReportStatusResponse struct {
	ID            string              `json:"id"`
	Status        models.ReportStatus `json:"status"`
	DownloadToken string              `json:"download_token,omitempty"`
	ExpiresAt     *time.Time          `json:"expires_at,omitempty"`
	ErrorMessage  string              `json:"error_message,omitempty"`
}

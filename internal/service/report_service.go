package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/abel-mek/school-roster-api/internal/dto"
	"github.com/abel-mek/school-roster-api/internal/models"
	"github.com/abel-mek/school-roster-api/internal/repository"
	appErrors "github.com/abel-mek/school-roster-api/pkg/errors"
	"github.com/abel-mek/school-roster-api/pkg/export"
	"github.com/abel-mek/school-roster-api/pkg/jobs"
	"github.com/abel-mek/school-roster-api/pkg/storage"
)

// JobTypeStatusExport labels lesson-plan status export jobs on the queue.
const JobTypeStatusExport = "lesson_plan_status_export"

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
}

type statusTabler interface {
	StatusTable(ctx context.Context, teacherUserID, courseID, academicYear string) (*dto.LessonPlanStatusResponse, bool, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type fileStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

// ReportService produces downloadable lesson-plan status exports. Requests
// enqueue a background job; the finished file is fetched with a signed token
// so download links work without auth headers.
type ReportService struct {
	repo      reportJobStore
	schedule  statusTabler
	queue     jobEnqueuer
	files     fileStore
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(repo reportJobStore, schedule statusTabler, queue jobEnqueuer, files fileStore, signer *storage.SignedURLSigner, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:      repo,
		schedule:  schedule,
		queue:     queue,
		files:     files,
		signer:    signer,
		validator: validate,
		logger:    logger,
	}
}

// Enqueue records a new export job and hands it to the worker pool.
func (s *ReportService) Enqueue(ctx context.Context, teacherUserID string, req dto.ReportRequest) (*dto.ReportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report request")
	}

	job := &models.ReportJob{
		Params: models.ReportJobParams{
			TeacherUserID: teacherUserID,
			CourseID:      req.CourseID,
			AcademicYear:  req.AcademicYear,
			Format:        req.Format,
		},
		Status:    models.ReportStatusQueued,
		CreatedBy: teacherUserID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: JobTypeStatusExport, Payload: job.ID}); err != nil {
		s.failJob(ctx, job.ID, "queue unavailable")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}

	return &dto.ReportJobResponse{ID: job.ID, Status: job.Status}, nil
}

// Process is the queue handler: it renders the export for one job. Errors
// are persisted on the job row and returned so the queue can retry.
func (s *ReportService) Process(ctx context.Context, queued jobs.Job) error {
	jobID, ok := queued.Payload.(string)
	if !ok || jobID == "" {
		return fmt.Errorf("report job payload is not a job id")
	}

	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load report job %s: %w", jobID, err)
	}

	processing := models.ReportStatusProcessing
	if err := s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{Status: &processing}); err != nil {
		return fmt.Errorf("mark report job processing: %w", err)
	}

	filename, err := s.render(ctx, job)
	if err != nil {
		s.failJob(ctx, job.ID, err.Error())
		return err
	}

	finished := models.ReportStatusFinished
	now := time.Now().UTC()
	if err := s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:     &finished,
		FilePath:   &filename,
		FinishedAt: &now,
	}); err != nil {
		return fmt.Errorf("mark report job finished: %w", err)
	}

	s.logger.Info("report job finished",
		zap.String("job_id", job.ID),
		zap.String("course_id", job.Params.CourseID),
		zap.String("format", string(job.Params.Format)))
	return nil
}

// Status reports job progress. Only the creator may read it; a finished job
// carries a signed download token.
func (s *ReportService) Status(ctx context.Context, jobID, requesterID string) (*dto.ReportStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.CreatedBy != requesterID {
		return nil, appErrors.ErrForbidden
	}

	resp := &dto.ReportStatusResponse{ID: job.ID, Status: job.Status}
	if job.ErrorMessage != nil {
		resp.ErrorMessage = *job.ErrorMessage
	}
	if job.Status == models.ReportStatusFinished && job.FilePath != nil {
		token, expiresAt, err := s.signer.Generate(job.ID, *job.FilePath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
		}
		resp.DownloadToken = token
		resp.ExpiresAt = &expiresAt
	}
	return resp, nil
}

// Download validates a signed token and opens the exported file.
func (s *ReportService) Download(_ context.Context, token string) (*os.File, string, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file not found")
	}
	return file, fmt.Sprintf("lesson-plan-status-%s%s", jobID, filepath.Ext(relPath)), nil
}

func (s *ReportService) render(ctx context.Context, job *models.ReportJob) (string, error) {
	table, _, err := s.schedule.StatusTable(ctx, job.Params.TeacherUserID, job.Params.CourseID, job.Params.AcademicYear)
	if err != nil {
		return "", fmt.Errorf("derive status table: %w", err)
	}

	statusTbl := statusTable(table)
	var payload []byte
	var ext string
	switch job.Params.Format {
	case models.ReportFormatPDF:
		statusTbl.Title = fmt.Sprintf("Lesson plan status %s %s", job.Params.CourseID, job.Params.AcademicYear)
		payload, err = export.PDF(statusTbl)
		ext = ".pdf"
	default:
		payload, err = export.CSV(statusTbl)
		ext = ".csv"
	}
	if err != nil {
		return "", fmt.Errorf("render %s export: %w", job.Params.Format, err)
	}

	filename := fmt.Sprintf("reports/%s%s", job.ID, ext)
	if _, err := s.files.Save(filename, payload); err != nil {
		return "", fmt.Errorf("store export file: %w", err)
	}
	return filename, nil
}

func (s *ReportService) failJob(ctx context.Context, jobID, message string) {
	failed := models.ReportStatusFailed
	now := time.Now().UTC()
	if err := s.repo.Update(ctx, jobID, repository.UpdateReportJobParams{
		Status:       &failed,
		ErrorMessage: &message,
		FinishedAt:   &now,
	}); err != nil {
		s.logger.Error("failed to mark report job failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

func statusTable(table *dto.LessonPlanStatusResponse) export.Table {
	out := export.Table{Columns: []string{"Week", "Month", "Day", "Date", "Topic", "Status"}}
	for _, week := range table.Weeks {
		for _, day := range week.Days {
			out.Rows = append(out.Rows, []string{
				strconv.Itoa(week.Week),
				week.Month,
				day.DayName,
				day.Date,
				day.Topic,
				string(day.Status),
			})
		}
	}
	return out
}

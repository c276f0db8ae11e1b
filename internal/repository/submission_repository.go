package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/abel-mek/school-roster-api/internal/models"
)

// SubmissionRepository manages persistence for lesson-plan day submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs a SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

const submissionColumns = "id, submission_key, teacher_key, course_id, academic_year, week, day_name, submitted_at"

// FindByKey fetches a submission by its composite key. Returns sql.ErrNoRows
// when the day has not been submitted.
func (r *SubmissionRepository) FindByKey(ctx context.Context, key string) (*models.SubmissionRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM lesson_plan_submissions WHERE submission_key = $1", submissionColumns)
	var record models.SubmissionRecord
	if err := r.db.GetContext(ctx, &record, query, key); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByCourse returns all submissions for a teacher, course and academic year.
func (r *SubmissionRepository) ListByCourse(ctx context.Context, teacherKey, courseID, academicYear string) ([]models.SubmissionRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM lesson_plan_submissions WHERE teacher_key = $1 AND course_id = $2 AND academic_year = $3 ORDER BY week, day_name", submissionColumns)
	var records []models.SubmissionRecord
	if err := r.db.SelectContext(ctx, &records, query, teacherKey, courseID, academicYear); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return records, nil
}

// Create inserts a submission record. A duplicate composite key is a silent
// no-op (the unique constraint backs the idempotence guarantee); the second
// return value reports whether a row was actually inserted.
func (r *SubmissionRepository) Create(ctx context.Context, record *models.SubmissionRecord) (bool, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.SubmittedAt.IsZero() {
		record.SubmittedAt = time.Now().UTC()
	}

	const query = `INSERT INTO lesson_plan_submissions (id, submission_key, teacher_key, course_id, academic_year, week, day_name, submitted_at)
		VALUES (:id, :submission_key, :teacher_key, :course_id, :academic_year, :week, :day_name, :submitted_at)
		ON CONFLICT (submission_key) DO NOTHING`
	result, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return false, fmt.Errorf("create submission: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create submission result: %w", err)
	}
	return affected > 0, nil
}

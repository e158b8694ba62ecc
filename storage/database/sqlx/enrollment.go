package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/kymanga/darasa/core/enrollment"
)

type enrollmentRow struct {
	ID        string    `db:"id"`
	StudentID string    `db:"student_id"`
	CourseID  string    `db:"course_id"`
	Progress  int       `db:"progress"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row *enrollmentRow) unload(completedIDs []string) enrollment.Enrollment {
	if completedIDs == nil {
		completedIDs = []string{}
	}
	return enrollment.Enrollment{
		ID:                 row.ID,
		StudentID:          row.StudentID,
		CourseID:           row.CourseID,
		CompletedLessonIDs: completedIDs,
		Progress:           row.Progress,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}

// recomputeProgressQ recomputes progress from the live lesson count and the
// completed set, with integer rounding to the nearest percent.
const recomputeProgressQ = `
UPDATE enrollment SET
	progress = (
		SELECT CASE WHEN t.total = 0 THEN 0 ELSE (200 * c.done + t.total) / (2 * t.total) END
		FROM (SELECT COUNT(*) AS total FROM lesson WHERE course_id = enrollment.course_id) t,
			 (SELECT COUNT(*) AS done FROM enrollment_lesson WHERE enrollment_id = enrollment.id) c
	),
	updated_at = $2
WHERE id = $1`

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil)

func NewEnrollmentRepository(db *sqlx.DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	enr.ID = uuid.New().String()

	q := `INSERT INTO enrollment (id, student_id, course_id, progress, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.db.ExecContext(ctx, q, enr.ID, enr.StudentID, enr.CourseID, enr.Progress, enr.CreatedAt, enr.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, studentID, courseID string) (enrollment.Enrollment, error) {
	var row enrollmentRow
	q := `SELECT * FROM enrollment WHERE student_id = $1 AND course_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return enrollment.Enrollment{}, enrollment.ErrNotFound
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "getting enrollment")
	}

	ids, err := repo.completedIDs(ctx, repo.db, row.ID)
	if err != nil {
		return enrollment.Enrollment{}, err
	}
	return row.unload(ids), nil
}

func (repo *enrollmentRepository) QueryEnrollmentsByStudent(ctx context.Context, studentID string) ([]enrollment.Enrollment, error) {
	var rows []enrollmentRow
	q := `SELECT * FROM enrollment WHERE student_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}

	enrollments := make([]enrollment.Enrollment, 0, len(rows))
	for _, row := range rows {
		ids, err := repo.completedIDs(ctx, repo.db, row.ID)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, row.unload(ids))
	}
	return enrollments, nil
}

func (repo *enrollmentRepository) completedIDs(ctx context.Context, q sqlx.QueryerContext, enrollmentID string) ([]string, error) {
	var ids pq.StringArray
	query := `SELECT COALESCE(array_agg(lesson_id), '{}') FROM enrollment_lesson WHERE enrollment_id = $1`
	if err := sqlx.GetContext(ctx, q, &ids, query, enrollmentID); err != nil {
		return nil, errors.Wrap(err, "loading completed lessons")
	}
	return []string(ids), nil
}

func (repo *enrollmentRepository) getByID(ctx context.Context, q sqlx.QueryerContext, enrollmentID string) (enrollment.Enrollment, error) {
	var row enrollmentRow
	if err := sqlx.GetContext(ctx, q, &row, `SELECT * FROM enrollment WHERE id = $1`, enrollmentID); err != nil {
		if err == sql.ErrNoRows {
			return enrollment.Enrollment{}, enrollment.ErrNotFound
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "getting enrollment")
	}
	ids, err := repo.completedIDs(ctx, q, enrollmentID)
	if err != nil {
		return enrollment.Enrollment{}, err
	}
	return row.unload(ids), nil
}

// AddCompletedLessons unions lessonIDs into the completed set and recomputes
// progress, all in one transaction. Already-completed ids are no-ops thanks
// to ON CONFLICT DO NOTHING on the set's primary key.
func (repo *enrollmentRepository) AddCompletedLessons(ctx context.Context, enrollmentID string, lessonIDs ...string) (enrollment.Enrollment, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	if len(lessonIDs) > 0 {
		q := `INSERT INTO enrollment_lesson (enrollment_id, lesson_id)
			SELECT $1, unnest($2::uuid[]) ON CONFLICT DO NOTHING`
		if _, err = tx.ExecContext(ctx, q, enrollmentID, pq.Array(lessonIDs)); err != nil {
			return enrollment.Enrollment{}, errors.Wrap(err, "adding completed lessons")
		}
	}

	enr, err := repo.recomputeAndGet(ctx, tx, enrollmentID)
	if err != nil {
		return enrollment.Enrollment{}, err
	}
	if err = tx.Commit(); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "committing tx")
	}
	return enr, nil
}

func (repo *enrollmentRepository) RemoveCompletedLesson(ctx context.Context, enrollmentID, lessonID string) (enrollment.Enrollment, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	q := `DELETE FROM enrollment_lesson WHERE enrollment_id = $1 AND lesson_id = $2`
	if _, err = tx.ExecContext(ctx, q, enrollmentID, lessonID); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "removing completed lesson")
	}

	enr, err := repo.recomputeAndGet(ctx, tx, enrollmentID)
	if err != nil {
		return enrollment.Enrollment{}, err
	}
	if err = tx.Commit(); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "committing tx")
	}
	return enr, nil
}

func (repo *enrollmentRepository) RefreshProgress(ctx context.Context, enrollmentID string) (enrollment.Enrollment, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	enr, err := repo.recomputeAndGet(ctx, tx, enrollmentID)
	if err != nil {
		return enrollment.Enrollment{}, err
	}
	if err = tx.Commit(); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "committing tx")
	}
	return enr, nil
}

func (repo *enrollmentRepository) recomputeAndGet(ctx context.Context, tx *sqlx.Tx, enrollmentID string) (enrollment.Enrollment, error) {
	res, err := tx.ExecContext(ctx, recomputeProgressQ, enrollmentID, time.Now().UTC())
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "recomputing progress")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	return repo.getByID(ctx, tx, enrollmentID)
}

func (repo *enrollmentRepository) CountEnrollmentsByCourse(ctx context.Context, courseID string) (int, error) {
	var count int
	q := `SELECT COUNT(*) FROM enrollment WHERE course_id = $1`
	if err := repo.db.GetContext(ctx, &count, q, courseID); err != nil {
		return 0, errors.Wrap(err, "counting enrollments")
	}
	return count, nil
}

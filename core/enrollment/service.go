package enrollment

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/kymanga/darasa/core"
)

var (
	// errors
	ErrNotFound          = errors.New("enrollment not found")
	ErrCourseNotFound    = errors.New("course not found")
	ErrAlreadyEnrolled   = errors.New("already enrolled in this course")
	ErrLessonNotInCourse = errors.New("lesson does not belong to this course")
)

type (
	// CourseCatalog is the slice of the course domain the engine depends on.
	CourseCatalog interface {
		Exists(ctx context.Context, courseID string) (bool, error)
	}

	// LessonSequencer yields live lesson membership for a course. Counts are
	// always queried at the moment of recomputation, never cached.
	LessonSequencer interface {
		CountByCourse(ctx context.Context, courseID string) (int, error)
		ListIDsByCourse(ctx context.Context, courseID string) ([]string, error)
		BelongsToCourse(ctx context.Context, lessonID, courseID string) (bool, error)
	}

	Repository interface {
		// CreateEnrollment persists enr; a (StudentID, CourseID) uniqueness
		// violation is reported as ErrAlreadyEnrolled.
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, studentID, courseID string) (Enrollment, error)
		QueryEnrollmentsByStudent(ctx context.Context, studentID string) ([]Enrollment, error)
		// AddCompletedLessons unions lessonIDs into the completed set with an
		// atomic add-to-set operation (already-present ids are no-ops) and
		// recomputes progress from the live lesson count in the same
		// transaction. It returns the updated Enrollment.
		AddCompletedLessons(ctx context.Context, enrollmentID string, lessonIDs ...string) (Enrollment, error)
		// RemoveCompletedLesson removes lessonID from the completed set if
		// present (no error if absent) and recomputes progress.
		RemoveCompletedLesson(ctx context.Context, enrollmentID, lessonID string) (Enrollment, error)
		// RefreshProgress recomputes and persists progress from the live
		// lesson count without touching the completed set.
		RefreshProgress(ctx context.Context, enrollmentID string) (Enrollment, error)
		CountEnrollmentsByCourse(ctx context.Context, courseID string) (int, error)
	}

	Service interface {
		Enroll(ctx context.Context, studentID, courseID string) (Enrollment, error)
		ListByStudent(ctx context.Context, studentID string) ([]Enrollment, error)
		Progress(ctx context.Context, studentID, courseID string) (int, error)
		CompleteLesson(ctx context.Context, studentID, courseID, lessonID string) (Enrollment, error)
		UndoCompleteLesson(ctx context.Context, studentID, courseID, lessonID string) (Enrollment, error)
		CompleteCourse(ctx context.Context, studentID, courseID string) (Enrollment, error)
		CountStudents(ctx context.Context, courseID string) (int, error)
	}

	service struct {
		repo    Repository
		catalog CourseCatalog
		lessons LessonSequencer
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, catalog CourseCatalog, lessons LessonSequencer, conf *core.Config) Service {
	return &service{
		repo:    repo,
		catalog: catalog,
		lessons: lessons,
		conf:    conf,
	}
}

func (svc *service) Enroll(ctx context.Context, studentID, courseID string) (Enrollment, error) {
	if exists, err := svc.catalog.Exists(ctx, courseID); err != nil {
		return Enrollment{}, errors.Wrap(err, "checking course")
	} else if !exists {
		return Enrollment{}, ErrCourseNotFound
	}

	now := time.Now().UTC()
	enr := Enrollment{
		StudentID:          studentID,
		CourseID:           courseID,
		CompletedLessonIDs: []string{},
		Progress:           0,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	return svc.repo.CreateEnrollment(ctx, enr)
}

func (svc *service) ListByStudent(ctx context.Context, studentID string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollmentsByStudent(ctx, studentID)
}

// Progress recomputes the percentage from the current completed count and the
// current total lesson count, persists it and returns it. Reads are
// self-healing: adding or removing lessons changes the result without any
// completion activity.
func (svc *service) Progress(ctx context.Context, studentID, courseID string) (int, error) {
	enr, err := svc.repo.GetEnrollment(ctx, studentID, courseID)
	if err != nil {
		return 0, err
	}
	enr, err = svc.repo.RefreshProgress(ctx, enr.ID)
	if err != nil {
		return 0, errors.Wrap(err, "refreshing progress")
	}
	return enr.Progress, nil
}

func (svc *service) CompleteLesson(ctx context.Context, studentID, courseID, lessonID string) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollment(ctx, studentID, courseID)
	if err != nil {
		return Enrollment{}, err
	}

	if svc.conf.Enrollment.EnforceLessonCourseMatch {
		if ok, err := svc.lessons.BelongsToCourse(ctx, lessonID, courseID); err != nil {
			return Enrollment{}, errors.Wrap(err, "checking lesson")
		} else if !ok {
			return Enrollment{}, ErrLessonNotInCourse
		}
	}

	return svc.repo.AddCompletedLessons(ctx, enr.ID, lessonID)
}

func (svc *service) UndoCompleteLesson(ctx context.Context, studentID, courseID, lessonID string) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollment(ctx, studentID, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	return svc.repo.RemoveCompletedLesson(ctx, enr.ID, lessonID)
}

// CompleteCourse unions every lesson currently in the course into the
// completed set; a bulk convenience over repeated CompleteLesson calls using
// a single membership fetch.
func (svc *service) CompleteCourse(ctx context.Context, studentID, courseID string) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollment(ctx, studentID, courseID)
	if err != nil {
		return Enrollment{}, err
	}

	ids, err := svc.lessons.ListIDsByCourse(ctx, courseID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "listing course lessons")
	}
	return svc.repo.AddCompletedLessons(ctx, enr.ID, ids...)
}

func (svc *service) CountStudents(ctx context.Context, courseID string) (int, error) {
	return svc.repo.CountEnrollmentsByCourse(ctx, courseID)
}

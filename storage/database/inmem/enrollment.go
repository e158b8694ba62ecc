package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kymanga/darasa/core/enrollment"
)

type enrollmentRepository struct {
	db      *enrollmentTable
	lessons *lessonTable
}

var _ enrollment.Repository = (*enrollmentRepository)(nil)

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db.enrollment, lessons: db.lesson}
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, e := range repo.db.table {
		if e.StudentID == enr.StudentID && e.CourseID == enr.CourseID {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
	}
	enr.ID = uuid.New().String()
	repo.db.table[enr.ID] = &enr
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, studentID, courseID string) (enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, enr := range repo.db.table {
		if enr.StudentID == studentID && enr.CourseID == courseID {
			return *enr, nil
		}
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) QueryEnrollmentsByStudent(ctx context.Context, studentID string) ([]enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrollments := make([]enrollment.Enrollment, 0)
	for _, enr := range repo.db.table {
		if enr.StudentID == studentID {
			enrollments = append(enrollments, *enr)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].CreatedAt.Before(enrollments[j].CreatedAt) })
	return enrollments, nil
}

func (repo *enrollmentRepository) countLessons(courseID string) int {
	repo.lessons.mutex.RLock()
	defer repo.lessons.mutex.RUnlock()

	count := 0
	for _, lsn := range repo.lessons.table {
		if lsn.CourseID == courseID {
			count++
		}
	}
	return count
}

func (repo *enrollmentRepository) recompute(enr *enrollment.Enrollment) {
	total := repo.countLessons(enr.CourseID)
	enr.Progress = enrollment.ComputeProgress(len(enr.CompletedLessonIDs), total)
	enr.UpdatedAt = time.Now().UTC()
}

func (repo *enrollmentRepository) AddCompletedLessons(ctx context.Context, enrollmentID string, lessonIDs ...string) (enrollment.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	enr, ok := repo.db.table[enrollmentID]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	for _, lid := range lessonIDs {
		if !enr.Completed(lid) {
			enr.CompletedLessonIDs = append(enr.CompletedLessonIDs, lid)
		}
	}
	repo.recompute(enr)
	return *enr, nil
}

func (repo *enrollmentRepository) RemoveCompletedLesson(ctx context.Context, enrollmentID, lessonID string) (enrollment.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	enr, ok := repo.db.table[enrollmentID]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	for i, lid := range enr.CompletedLessonIDs {
		if lid == lessonID {
			enr.CompletedLessonIDs = append(enr.CompletedLessonIDs[:i], enr.CompletedLessonIDs[i+1:]...)
			break
		}
	}
	repo.recompute(enr)
	return *enr, nil
}

func (repo *enrollmentRepository) RefreshProgress(ctx context.Context, enrollmentID string) (enrollment.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	enr, ok := repo.db.table[enrollmentID]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	repo.recompute(enr)
	return *enr, nil
}

func (repo *enrollmentRepository) CountEnrollmentsByCourse(ctx context.Context, courseID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	count := 0
	for _, enr := range repo.db.table {
		if enr.CourseID == courseID {
			count++
		}
	}
	return count, nil
}

package enrollment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kymanga/darasa/core"
)

type fakeCatalog struct {
	courses map[string]bool
}

func (c *fakeCatalog) Exists(ctx context.Context, courseID string) (bool, error) {
	return c.courses[courseID], nil
}

type fakeSequencer struct {
	// lessonID -> courseID
	lessons map[string]string
}

func (s *fakeSequencer) CountByCourse(ctx context.Context, courseID string) (int, error) {
	n := 0
	for _, cid := range s.lessons {
		if cid == courseID {
			n++
		}
	}
	return n, nil
}

func (s *fakeSequencer) ListIDsByCourse(ctx context.Context, courseID string) ([]string, error) {
	ids := make([]string, 0)
	for lid, cid := range s.lessons {
		if cid == courseID {
			ids = append(ids, lid)
		}
	}
	return ids, nil
}

func (s *fakeSequencer) BelongsToCourse(ctx context.Context, lessonID, courseID string) (bool, error) {
	cid, ok := s.lessons[lessonID]
	return ok && cid == courseID, nil
}

// fakeRepo mirrors the real repository's contract: set semantics on the
// completed ids and a progress recompute from the live lesson count on every
// mutating call.
type fakeRepo struct {
	seq         *fakeSequencer
	enrollments map[string]*Enrollment // by ID
}

func newFakeRepo(seq *fakeSequencer) *fakeRepo {
	return &fakeRepo{seq: seq, enrollments: make(map[string]*Enrollment)}
}

func (r *fakeRepo) CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error) {
	for _, e := range r.enrollments {
		if e.StudentID == enr.StudentID && e.CourseID == enr.CourseID {
			return Enrollment{}, ErrAlreadyEnrolled
		}
	}
	enr.ID = uuid.New().String()
	r.enrollments[enr.ID] = &enr
	return enr, nil
}

func (r *fakeRepo) GetEnrollment(ctx context.Context, studentID, courseID string) (Enrollment, error) {
	for _, e := range r.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return *e, nil
		}
	}
	return Enrollment{}, ErrNotFound
}

func (r *fakeRepo) QueryEnrollmentsByStudent(ctx context.Context, studentID string) ([]Enrollment, error) {
	enrollments := make([]Enrollment, 0)
	for _, e := range r.enrollments {
		if e.StudentID == studentID {
			enrollments = append(enrollments, *e)
		}
	}
	return enrollments, nil
}

func (r *fakeRepo) recompute(e *Enrollment) {
	total, _ := r.seq.CountByCourse(context.Background(), e.CourseID)
	e.Progress = ComputeProgress(len(e.CompletedLessonIDs), total)
}

func (r *fakeRepo) AddCompletedLessons(ctx context.Context, enrollmentID string, lessonIDs ...string) (Enrollment, error) {
	e, ok := r.enrollments[enrollmentID]
	if !ok {
		return Enrollment{}, ErrNotFound
	}
	for _, lid := range lessonIDs {
		if !e.Completed(lid) {
			e.CompletedLessonIDs = append(e.CompletedLessonIDs, lid)
		}
	}
	r.recompute(e)
	return *e, nil
}

func (r *fakeRepo) RemoveCompletedLesson(ctx context.Context, enrollmentID, lessonID string) (Enrollment, error) {
	e, ok := r.enrollments[enrollmentID]
	if !ok {
		return Enrollment{}, ErrNotFound
	}
	for i, lid := range e.CompletedLessonIDs {
		if lid == lessonID {
			e.CompletedLessonIDs = append(e.CompletedLessonIDs[:i], e.CompletedLessonIDs[i+1:]...)
			break
		}
	}
	r.recompute(e)
	return *e, nil
}

func (r *fakeRepo) RefreshProgress(ctx context.Context, enrollmentID string) (Enrollment, error) {
	e, ok := r.enrollments[enrollmentID]
	if !ok {
		return Enrollment{}, ErrNotFound
	}
	r.recompute(e)
	return *e, nil
}

func (r *fakeRepo) CountEnrollmentsByCourse(ctx context.Context, courseID string) (int, error) {
	n := 0
	for _, e := range r.enrollments {
		if e.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

type testEnv struct {
	svc     Service
	catalog *fakeCatalog
	seq     *fakeSequencer
	repo    *fakeRepo
	conf    *core.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	catalog := &fakeCatalog{courses: make(map[string]bool)}
	seq := &fakeSequencer{lessons: make(map[string]string)}
	repo := newFakeRepo(seq)
	conf := &core.Config{}
	return &testEnv{
		svc:     NewService(repo, catalog, seq, conf),
		catalog: catalog,
		seq:     seq,
		repo:    repo,
		conf:    conf,
	}
}

func (env *testEnv) addCourse() string {
	id := uuid.New().String()
	env.catalog.courses[id] = true
	return id
}

func (env *testEnv) addLesson(courseID string) string {
	id := uuid.New().String()
	env.seq.lessons[id] = courseID
	return id
}

func TestComputeProgress(t *testing.T) {
	tests := []struct {
		name             string
		completed, total int
		want             int
	}{
		{"no lessons", 0, 0, 0},
		{"none completed", 0, 10, 0},
		{"all completed", 7, 7, 100},
		{"half", 2, 4, 50},
		{"quarter", 1, 4, 25},
		{"two thirds rounds up", 2, 3, 67},
		{"one third rounds down", 1, 3, 33},
		{"one eighth rounds half up", 1, 8, 13},
		{"over-complete clamps at formula", 3, 3, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeProgress(tt.completed, tt.total))
		})
	}
}

func TestService_Enroll(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	courseID := env.addCourse()
	studentID := uuid.New().String()

	t.Run("unknown course", func(t *testing.T) {
		_, err := env.svc.Enroll(ctx, studentID, uuid.New().String())
		assert.Equal(t, ErrCourseNotFound, err)
	})

	t.Run("success", func(t *testing.T) {
		enr, err := env.svc.Enroll(ctx, studentID, courseID)
		require.NoError(t, err)
		assert.NotEmpty(t, enr.ID)
		assert.Equal(t, studentID, enr.StudentID)
		assert.Equal(t, courseID, enr.CourseID)
		assert.Empty(t, enr.CompletedLessonIDs)
		assert.Equal(t, 0, enr.Progress)
	})

	t.Run("duplicate", func(t *testing.T) {
		_, err := env.svc.Enroll(ctx, studentID, courseID)
		assert.Equal(t, ErrAlreadyEnrolled, err)
	})

	t.Run("same student other course", func(t *testing.T) {
		otherCourse := env.addCourse()
		_, err := env.svc.Enroll(ctx, studentID, otherCourse)
		assert.NoError(t, err)
	})
}

func TestService_Progress(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	studentID := uuid.New().String()

	t.Run("not enrolled", func(t *testing.T) {
		_, err := env.svc.Progress(ctx, studentID, env.addCourse())
		assert.Equal(t, ErrNotFound, err)
	})

	t.Run("zero lessons is zero percent", func(t *testing.T) {
		courseID := env.addCourse()
		_, err := env.svc.Enroll(ctx, studentID, courseID)
		require.NoError(t, err)

		pct, err := env.svc.Progress(ctx, studentID, courseID)
		require.NoError(t, err)
		assert.Equal(t, 0, pct)
	})

	t.Run("reflects live lesson count", func(t *testing.T) {
		courseID := env.addCourse()
		l1 := env.addLesson(courseID)
		env.addLesson(courseID)

		_, err := env.svc.Enroll(ctx, studentID, courseID)
		require.NoError(t, err)
		_, err = env.svc.CompleteLesson(ctx, studentID, courseID, l1)
		require.NoError(t, err)

		pct, err := env.svc.Progress(ctx, studentID, courseID)
		require.NoError(t, err)
		assert.Equal(t, 50, pct)

		// adding lessons dilutes progress without any completion activity
		env.addLesson(courseID)
		env.addLesson(courseID)
		pct, err = env.svc.Progress(ctx, studentID, courseID)
		require.NoError(t, err)
		assert.Equal(t, 25, pct)
	})
}

func TestService_CompleteLesson(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	studentID := uuid.New().String()
	courseID := env.addCourse()
	lessons := []string{
		env.addLesson(courseID),
		env.addLesson(courseID),
		env.addLesson(courseID),
		env.addLesson(courseID),
	}
	_, err := env.svc.Enroll(ctx, studentID, courseID)
	require.NoError(t, err)

	t.Run("not enrolled", func(t *testing.T) {
		_, err := env.svc.CompleteLesson(ctx, uuid.New().String(), courseID, lessons[0])
		assert.Equal(t, ErrNotFound, err)
	})

	t.Run("marks and recomputes", func(t *testing.T) {
		enr, err := env.svc.CompleteLesson(ctx, studentID, courseID, lessons[0])
		require.NoError(t, err)
		assert.Equal(t, 25, enr.Progress)

		enr, err = env.svc.CompleteLesson(ctx, studentID, courseID, lessons[1])
		require.NoError(t, err)
		assert.Len(t, enr.CompletedLessonIDs, 2)
		assert.Equal(t, 50, enr.Progress)
	})

	t.Run("idempotent", func(t *testing.T) {
		enr, err := env.svc.CompleteLesson(ctx, studentID, courseID, lessons[0])
		require.NoError(t, err)
		assert.Len(t, enr.CompletedLessonIDs, 2)
		assert.Equal(t, 50, enr.Progress)
	})

	t.Run("foreign lesson accepted by default", func(t *testing.T) {
		otherCourse := env.addCourse()
		foreign := env.addLesson(otherCourse)

		enr, err := env.svc.CompleteLesson(ctx, studentID, courseID, foreign)
		require.NoError(t, err)
		assert.True(t, enr.Completed(foreign))
	})

	t.Run("foreign lesson rejected when enforced", func(t *testing.T) {
		env := newTestEnv(t)
		env.conf.Enrollment.EnforceLessonCourseMatch = true
		courseID := env.addCourse()
		otherCourse := env.addCourse()
		foreign := env.addLesson(otherCourse)
		env.addLesson(courseID)

		_, err := env.svc.Enroll(ctx, studentID, courseID)
		require.NoError(t, err)
		_, err = env.svc.CompleteLesson(ctx, studentID, courseID, foreign)
		assert.Equal(t, ErrLessonNotInCourse, err)
	})
}

func TestService_UndoCompleteLesson(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	studentID := uuid.New().String()
	courseID := env.addCourse()
	lessons := []string{
		env.addLesson(courseID),
		env.addLesson(courseID),
		env.addLesson(courseID),
		env.addLesson(courseID),
	}
	_, err := env.svc.Enroll(ctx, studentID, courseID)
	require.NoError(t, err)
	_, err = env.svc.CompleteLesson(ctx, studentID, courseID, lessons[0])
	require.NoError(t, err)
	enr, err := env.svc.CompleteLesson(ctx, studentID, courseID, lessons[1])
	require.NoError(t, err)
	require.Equal(t, 50, enr.Progress)

	t.Run("not enrolled", func(t *testing.T) {
		_, err := env.svc.UndoCompleteLesson(ctx, uuid.New().String(), courseID, lessons[0])
		assert.Equal(t, ErrNotFound, err)
	})

	t.Run("removes and recomputes", func(t *testing.T) {
		enr, err := env.svc.UndoCompleteLesson(ctx, studentID, courseID, lessons[1])
		require.NoError(t, err)
		assert.False(t, enr.Completed(lessons[1]))
		assert.Equal(t, 25, enr.Progress)
	})

	t.Run("absent lesson is a no-op", func(t *testing.T) {
		enr, err := env.svc.UndoCompleteLesson(ctx, studentID, courseID, lessons[3])
		require.NoError(t, err)
		assert.Len(t, enr.CompletedLessonIDs, 1)
		assert.Equal(t, 25, enr.Progress)
	})
}

func TestService_CompleteCourse(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	studentID := uuid.New().String()
	courseID := env.addCourse()
	l1 := env.addLesson(courseID)
	env.addLesson(courseID)
	env.addLesson(courseID)

	_, err := env.svc.Enroll(ctx, studentID, courseID)
	require.NoError(t, err)

	t.Run("not enrolled", func(t *testing.T) {
		_, err := env.svc.CompleteCourse(ctx, uuid.New().String(), courseID)
		assert.Equal(t, ErrNotFound, err)
	})

	t.Run("marks all lessons", func(t *testing.T) {
		_, err := env.svc.CompleteLesson(ctx, studentID, courseID, l1)
		require.NoError(t, err)

		enr, err := env.svc.CompleteCourse(ctx, studentID, courseID)
		require.NoError(t, err)
		assert.Len(t, enr.CompletedLessonIDs, 3)
		assert.Equal(t, 100, enr.Progress)
	})

	t.Run("idempotent", func(t *testing.T) {
		enr, err := env.svc.CompleteCourse(ctx, studentID, courseID)
		require.NoError(t, err)
		assert.Len(t, enr.CompletedLessonIDs, 3)
		assert.Equal(t, 100, enr.Progress)
	})

	t.Run("empty course stays at zero", func(t *testing.T) {
		emptyCourse := env.addCourse()
		_, err := env.svc.Enroll(ctx, studentID, emptyCourse)
		require.NoError(t, err)

		enr, err := env.svc.CompleteCourse(ctx, studentID, emptyCourse)
		require.NoError(t, err)
		assert.Empty(t, enr.CompletedLessonIDs)
		assert.Equal(t, 0, enr.Progress)
	})
}

func TestService_CountStudents(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	courseID := env.addCourse()

	n, err := env.svc.CountStudents(ctx, courseID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for i := 0; i < 3; i++ {
		_, err = env.svc.Enroll(ctx, uuid.New().String(), courseID)
		require.NoError(t, err)
	}

	n, err = env.svc.CountStudents(ctx, courseID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

package enrollment

import "time"

// Enrollment tracks one student's participation and progress in one course.
// At most one Enrollment exists per (StudentID, CourseID) pair.
type Enrollment struct {
	ID        string `json:"id"`
	StudentID string `json:"student_id"` // immutable after creation
	CourseID  string `json:"course_id"`  // immutable after creation

	// CompletedLessonIDs is a set: uniqueness enforced, order irrelevant.
	// IDs are not purged when a lesson is later deleted from the course;
	// progress computation tolerates that drift.
	CompletedLessonIDs []string `json:"completed_lesson_ids"`

	// Progress is derived, never set by a caller. It is recomputed from the
	// live lesson count on every mutation and on every progress read.
	Progress int `json:"progress"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Completed reports whether lessonID is in the completed set.
func (e *Enrollment) Completed(lessonID string) bool {
	for _, id := range e.CompletedLessonIDs {
		if id == lessonID {
			return true
		}
	}
	return false
}

// ComputeProgress returns the integer percentage of completed lessons,
// rounded half-up; 0 when the course has no lessons.
func ComputeProgress(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*completed + total) / (2 * total)
}

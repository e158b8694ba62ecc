package lesson

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kymanga/darasa/core"
)

type Lesson struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	VideoURL  string    `json:"video_url,omitempty"`
	CourseID  string    `json:"course_id"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewLesson contains information needed to create a new Lesson.
// A zero Order means "append": the next free position in the course.
type NewLesson struct {
	Title    string `json:"title" validate:"required,max=100"`
	Content  string `json:"content"`
	VideoURL string `json:"video_url" validate:"omitempty,httpurl"`
	Order    int    `json:"order" validate:"omitempty,gte=1"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	nl.Content = core.CleanString(nl.Content)
	nl.VideoURL = core.CleanString(nl.VideoURL)
	return validate.Struct(nl)
}

// UpdateLesson defines what information may be provided to modify an
// existing Lesson; zero fields keep their current value.
type UpdateLesson struct {
	Title    string  `json:"title" validate:"omitempty,max=100"`
	Content  *string `json:"content"`
	VideoURL *string `json:"video_url" validate:"omitempty,httpurl"`
	Order    int     `json:"order" validate:"omitempty,gte=1"`
}

func (ul *UpdateLesson) Validate(validate *validator.Validate) error {
	ul.Title = core.CleanString(ul.Title)
	return validate.Struct(ul)
}

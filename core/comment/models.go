package comment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kymanga/darasa/core"
)

type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	LessonID  string    `json:"lesson_id"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type NewComment struct {
	Content string `json:"content" validate:"required,max=2000"`
}

func (nc *NewComment) Validate(validate *validator.Validate) error {
	nc.Content = core.CleanString(nc.Content)
	return validate.Struct(nc)
}

type UpdateComment struct {
	Content string `json:"content" validate:"required,max=2000"`
}

func (uc *UpdateComment) Validate(validate *validator.Validate) error {
	uc.Content = core.CleanString(uc.Content)
	return validate.Struct(uc)
}

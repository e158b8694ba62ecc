package course

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"

	"github.com/kymanga/darasa/core"
)

// Level is the closed set of course difficulty levels.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

var Levels = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}

func (l Level) Valid() bool {
	for _, level := range Levels {
		if l == level {
			return true
		}
	}
	return false
}

type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Image       string    `json:"image"`
	Category    string    `json:"category"`
	Level       Level     `json:"level"`
	Published   bool      `json:"published"`
	AuthorID    string    `json:"author_id"`
	Tags        []Tag     `json:"tags"`
	Favorites   []string  `json:"favorites"` // user IDs
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// MakeSlug derives the URL slug from the course title. Slugs are unique in
// storage; a duplicate title surfaces as a conflict on create.
func MakeSlug(title string) string {
	return slug.Make(title)
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Price       float64  `json:"price" validate:"gte=0"`
	Image       string   `json:"image" validate:"required"`
	Category    string   `json:"category" validate:"required"`
	Level       Level    `json:"level" validate:"omitempty,courselevel"`
	Published   bool     `json:"published"`
	Tags        []string `json:"tags"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Category = core.CleanString(nc.Category)
	for i, tag := range nc.Tags {
		nc.Tags[i] = core.CleanString(tag)
	}
	if nc.Level == "" {
		nc.Level = LevelBeginner
	}
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an
// existing Course; empty fields keep their current value.
type UpdateCourse struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Image       string   `json:"image"`
	Category    string   `json:"category"`
	Level       Level    `json:"level" validate:"omitempty,courselevel"`
	Published   *bool    `json:"published"`
	Tags        []string `json:"tags"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Title = core.CleanString(uc.Title)
	uc.Category = core.CleanString(uc.Category)
	for i, tag := range uc.Tags {
		uc.Tags[i] = core.CleanString(tag)
	}
	return validate.Struct(uc)
}

type QueryFilter struct {
	Category    string   `query:"category"`
	Level       Level    `query:"level"`
	PriceMin    *float64 `query:"price_min"`
	PriceMax    *float64 `query:"price_max"`
	Tags        []string `query:"tag"`
	AuthorID    string   `query:"author"`
	Published   *bool    `query:"published"`
	Search      string   `query:"search"`
	FavoritesOf string   `query:"-"` // set from claims when ?favorites=true
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Category == "" && qf.Level == "" && qf.PriceMin == nil && qf.PriceMax == nil &&
		qf.Tags == nil && qf.AuthorID == "" && qf.Published == nil && qf.Search == "" &&
		qf.FavoritesOf == ""
}

func (qf *QueryFilter) Clean() {
	qf.Category = core.CleanString(qf.Category)
	qf.Search = core.CleanString(qf.Search)
}

var (
	levelTag  = "courselevel"
	levelText = "invalid course level"
)

// InitValidators registers the course package's custom validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(levelTag, func(fl validator.FieldLevel) bool {
		return Level(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, levelTag, levelText)
}

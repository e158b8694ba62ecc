package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kymanga/darasa/core"
	"github.com/kymanga/darasa/core/comment"
	"github.com/kymanga/darasa/core/course"
	"github.com/kymanga/darasa/core/lesson"
	"github.com/kymanga/darasa/core/user"
)

type lessonApi struct {
	conf       *core.Config
	svc        lesson.Service
	courseSvc  course.Service
	commentSvc comment.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerLessonAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *server) {
	api := lessonApi{
		conf:       s.deps.Conf,
		svc:        s.deps.LessonSvc,
		courseSvc:  s.deps.CourseSvc,
		commentSvc: s.deps.CommentSvc,
		validate:   s.deps.Validate,
		translator: s.deps.Translator,
	}

	lg := g.Group("/lessons")

	// un-authed endpoints
	lg.GET("/:id", api.retrieve)
	lg.GET("/:id/comments", api.queryComments)

	// authed endpoints
	ag := lg.Group("", jwt)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
	ag.POST("/:id/comments", api.createComment)
}

// getManagedLesson fetches the lesson and checks that the caller may mutate
// it; lessons are managed by their course's author.
func (api *lessonApi) getManagedLesson(ctx echo.Context) (lesson.Lesson, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "getting context claims")
	}

	lsn, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == lesson.ErrNotFound {
			return lesson.Lesson{}, errHttpNotFound
		}
		return lesson.Lesson{}, errors.Wrap(err, "getting lesson")
	}

	crs, err := api.courseSvc.GetByID(ctx.Request().Context(), lsn.CourseID)
	if err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "getting course")
	}
	if !user.CanManage(user.Role(claims.Role), crs.AuthorID, claims.Subject) {
		return lesson.Lesson{}, errHttpForbidden
	}
	return lsn, nil
}

// Handlers

func (api *lessonApi) retrieve(ctx echo.Context) error {
	lsn, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == lesson.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting lesson")
	}
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *lessonApi) update(ctx echo.Context) error {
	lsn, err := api.getManagedLesson(ctx)
	if err != nil {
		return err
	}

	var data lesson.UpdateLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	lsn, err = api.svc.Update(ctx.Request().Context(), lsn, data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *lessonApi) destroy(ctx echo.Context) error {
	lsn, err := api.getManagedLesson(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), lsn.ID); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *lessonApi) queryComments(ctx echo.Context) error {
	if _, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == lesson.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting lesson")
	}

	comments, err := api.commentSvc.QueryByLesson(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying comments")
	}
	return ctx.JSON(http.StatusOK, comments)
}

func (api *lessonApi) createComment(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data comment.NewComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cmt, err := api.commentSvc.Create(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data)
	if err != nil {
		if errors.Cause(err) == lesson.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "creating comment")
	}
	return ctx.JSON(http.StatusCreated, cmt)
}

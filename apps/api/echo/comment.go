package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kymanga/darasa/core"
	"github.com/kymanga/darasa/core/comment"
	"github.com/kymanga/darasa/core/user"
)

type commentApi struct {
	conf       *core.Config
	svc        comment.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerCommentAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *server) {
	api := commentApi{
		conf:       s.deps.Conf,
		svc:        s.deps.CommentSvc,
		validate:   s.deps.Validate,
		translator: s.deps.Translator,
	}

	ag := g.Group("/comments", jwt)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
}

// getManagedComment fetches the comment and checks that the caller may
// mutate it; comments are managed by their author.
func (api *commentApi) getManagedComment(ctx echo.Context) (comment.Comment, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return comment.Comment{}, errors.Wrap(err, "getting context claims")
	}

	cmt, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == comment.ErrNotFound {
			return comment.Comment{}, errHttpNotFound
		}
		return comment.Comment{}, errors.Wrap(err, "getting comment")
	}

	if !user.CanManage(user.Role(claims.Role), cmt.AuthorID, claims.Subject) {
		return comment.Comment{}, errHttpForbidden
	}
	return cmt, nil
}

// Handlers

func (api *commentApi) update(ctx echo.Context) error {
	cmt, err := api.getManagedComment(ctx)
	if err != nil {
		return err
	}

	var data comment.UpdateComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateComment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cmt, err = api.svc.Update(ctx.Request().Context(), cmt, data)
	if err != nil {
		return errors.Wrap(err, "updating comment")
	}
	return ctx.JSON(http.StatusOK, cmt)
}

func (api *commentApi) destroy(ctx echo.Context) error {
	cmt, err := api.getManagedComment(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), cmt.ID); err != nil {
		return errors.Wrap(err, "deleting comment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kymanga/darasa/core"
	"github.com/kymanga/darasa/core/course"
	"github.com/kymanga/darasa/core/enrollment"
	"github.com/kymanga/darasa/core/lesson"
	"github.com/kymanga/darasa/core/user"
)

type courseApi struct {
	conf       *core.Config
	svc        course.Service
	lessonSvc  lesson.Service
	enrollSvc  enrollment.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *server) {
	api := courseApi{
		conf:       s.deps.Conf,
		svc:        s.deps.CourseSvc,
		lessonSvc:  s.deps.LessonSvc,
		enrollSvc:  s.deps.EnrollmentSvc,
		validate:   s.deps.Validate,
		translator: s.deps.Translator,
	}

	cg := g.Group("/courses")

	// un-authed endpoints
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.GET("/:id/lessons", api.queryLessons)
	cg.GET("/:id/students/count", api.countStudents)

	// authed endpoints; jwt is attached per route: an empty-prefix subgroup
	// would register catch-all routes shadowing the public GET "" above
	cg.POST("", api.create, jwt, teacherOrAdminMiddleware())
	cg.PUT("/:id", api.update, jwt)
	cg.DELETE("/:id", api.destroy, jwt)
	cg.POST("/:id/favorite", api.toggleFavorite, jwt)
	cg.POST("/:id/lessons", api.createLesson, jwt)

	// enrollment endpoints
	cg.POST("/:id/enroll", api.enroll, jwt)
	cg.GET("/:id/progress", api.progress, jwt)
	cg.POST("/:id/complete", api.completeCourse, jwt)
	cg.POST("/:id/lessons/:lessonID/complete", api.completeLesson, jwt)
	cg.DELETE("/:id/lessons/:lessonID/complete", api.undoCompleteLesson, jwt)
}

// getManagedCourse fetches the course and checks that the caller may mutate it.
func (api *courseApi) getManagedCourse(ctx echo.Context) (course.Course, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "getting context claims")
	}

	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return course.Course{}, errHttpNotFound
		}
		return course.Course{}, errors.Wrap(err, "getting course")
	}

	if !user.CanManage(user.Role(claims.Role), crs.AuthorID, claims.Subject) {
		return course.Course{}, errHttpForbidden
	}
	return crs, nil
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	crs, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		if errors.Cause(err) == course.ErrDuplicateTitle {
			return core.NewValidationError(course.ErrDuplicateTitle)
		}
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, PaginatedResponse{Results: []course.Course{}})
	}
	filter.Clean()

	// ?favorites=true narrows the listing down to the caller's favorites
	if ctx.QueryParam("favorites") == "true" {
		if claims, err := getContextClaims(ctx); err == nil {
			filter.FavoritesOf = claims.Subject
		}
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)
	page := bindPagination(ctx)

	courses, total, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings, page)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, PaginatedResponse{
		Count:   total,
		Page:    page.Page,
		Limit:   page.Limit,
		Results: courses,
	})
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	crs, err := api.getManagedCourse(ctx)
	if err != nil {
		return err
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err = api.svc.Update(ctx.Request().Context(), crs, data)
	if err != nil {
		if errors.Cause(err) == course.ErrDuplicateTitle {
			return core.NewValidationError(course.ErrDuplicateTitle)
		}
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	crs, err := api.getManagedCourse(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), crs.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) toggleFavorite(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	isFavorite, count, err := api.svc.ToggleFavorite(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "toggling favorite")
	}
	return ctx.JSON(http.StatusOK, FavoriteResponse{IsFavorite: isFavorite, Count: count})
}

func (api *courseApi) queryLessons(ctx echo.Context) error {
	exists, err := api.svc.Exists(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "checking course")
	}
	if !exists {
		return errHttpNotFound
	}

	lessons, err := api.lessonSvc.QueryByCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *courseApi) createLesson(ctx echo.Context) error {
	crs, err := api.getManagedCourse(ctx)
	if err != nil {
		return err
	}

	var data lesson.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	lsn, err := api.lessonSvc.Create(ctx.Request().Context(), crs.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, lsn)
}

func (api *courseApi) countStudents(ctx echo.Context) error {
	exists, err := api.svc.Exists(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "checking course")
	}
	if !exists {
		return errHttpNotFound
	}

	count, err := api.enrollSvc.CountStudents(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "counting students")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: count})
}

// Enrollment handlers

func (api *courseApi) enroll(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	enr, err := api.enrollSvc.Enroll(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		switch errors.Cause(err) {
		case enrollment.ErrCourseNotFound:
			return errHttpNotFound
		case enrollment.ErrAlreadyEnrolled:
			return core.NewValidationError(enrollment.ErrAlreadyEnrolled)
		}
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *courseApi) progress(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	pct, err := api.enrollSvc.Progress(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == enrollment.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting progress")
	}
	return ctx.JSON(http.StatusOK, ProgressResponse{Progress: pct})
}

func (api *courseApi) completeCourse(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	enr, err := api.enrollSvc.CompleteCourse(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == enrollment.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "completing course")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *courseApi) completeLesson(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	enr, err := api.enrollSvc.CompleteLesson(ctx.Request().Context(), claims.Subject, ctx.Param("id"), ctx.Param("lessonID"))
	if err != nil {
		switch errors.Cause(err) {
		case enrollment.ErrNotFound:
			return errHttpNotFound
		case enrollment.ErrLessonNotInCourse:
			return core.NewValidationError(enrollment.ErrLessonNotInCourse)
		}
		return errors.Wrap(err, "completing lesson")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *courseApi) undoCompleteLesson(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	enr, err := api.enrollSvc.UndoCompleteLesson(ctx.Request().Context(), claims.Subject, ctx.Param("id"), ctx.Param("lessonID"))
	if err != nil {
		if errors.Cause(err) == enrollment.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "undoing lesson completion")
	}
	return ctx.JSON(http.StatusOK, enr)
}

type (
	PaginatedResponse struct {
		Count   int         `json:"count"`
		Page    int         `json:"page"`
		Limit   int         `json:"limit"`
		Results interface{} `json:"results"`
	}

	FavoriteResponse struct {
		IsFavorite bool `json:"is_favorite"`
		Count      int  `json:"count"`
	}

	CountResponse struct {
		Count int `json:"count"`
	}

	ProgressResponse struct {
		Progress int `json:"progress"`
	}
)

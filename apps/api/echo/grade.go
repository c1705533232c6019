package echoapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/umoja/campus/core"
	"github.com/umoja/campus/core/grade"
)

type gradeApi struct {
	svc *grade.Service
}

func registerGradeAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *grade.Service) {
	api := gradeApi{svc: svc}

	gg := g.Group("/grades", jwt)
	gg.POST("", api.create)
	gg.GET("", api.query)
	gg.POST("/bulk-submit", api.bulkSubmit)
	gg.POST("/auto-calculate", api.autoCalculate)

	dg := gg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.POST("/submit", api.submit)
	dg.POST("/approve", api.approve)
	dg.POST("/dispute", api.dispute)
	dg.POST("/finalize", api.finalize)

	cg := g.Group("/courses", jwt)
	cg.GET("/:id/stats", api.courseStats)
}

type (
	ReviewRequest struct {
		Comment string `json:"comment"`
	}

	BulkSubmitRequest struct {
		IDs []string `json:"ids" validate:"required,min=1"`
	}

	AutoCalculateRequest struct {
		CourseID     string `json:"course_id" validate:"required"`
		Semester     int    `json:"semester" validate:"required,gte=1,lte=4"`
		AcademicYear string `json:"academic_year" validate:"required,academic_year"`
	}
)

// Handlers

func (api *gradeApi) create(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var data grade.NewGradeRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGradeRecord")
	}

	rec, err := api.svc.Create(ctx.Request().Context(), data, actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *gradeApi) query(ctx echo.Context) error {
	if _, err := getContextActor(ctx); err != nil {
		return err
	}

	var filter grade.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	var ordering Ordering
	ordering.Bind(ctx)

	recs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *gradeApi) retrieve(ctx echo.Context) error {
	if _, err := getContextActor(ctx); err != nil {
		return err
	}
	rec, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *gradeApi) update(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var data grade.UpdateGradeRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGradeRecord")
	}

	rec, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data, actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *gradeApi) destroy(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"), actor); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *gradeApi) submit(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	rec, err := api.svc.Submit(ctx.Request().Context(), ctx.Param("id"), actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *gradeApi) approve(ctx echo.Context) error {
	return api.review(ctx, api.svc.Approve)
}

func (api *gradeApi) dispute(ctx echo.Context) error {
	return api.review(ctx, api.svc.Dispute)
}

type reviewOp func(ctx context.Context, id, comment string, actor grade.Actor) (grade.GradeRecord, error)

func (api *gradeApi) review(ctx echo.Context, op reviewOp) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var data ReviewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewRequest")
	}

	rec, err := op(ctx.Request().Context(), ctx.Param("id"), data.Comment, actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *gradeApi) finalize(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	rec, err := api.svc.Finalize(ctx.Request().Context(), ctx.Param("id"), actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *gradeApi) bulkSubmit(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var data BulkSubmitRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkSubmitRequest")
	}
	if err := core.Validate.Struct(&data); err != nil {
		return err
	}

	res, err := api.svc.BulkSubmit(ctx.Request().Context(), data.IDs, actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *gradeApi) autoCalculate(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var data AutoCalculateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AutoCalculateRequest")
	}
	if err := core.Validate.Struct(&data); err != nil {
		return err
	}

	res, err := api.svc.AutoCalculate(ctx.Request().Context(), data.CourseID, data.Semester, data.AcademicYear, actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *gradeApi) courseStats(ctx echo.Context) error {
	if _, err := getContextActor(ctx); err != nil {
		return err
	}

	semester, _ := strconv.Atoi(ctx.QueryParam("semester"))
	stats, err := api.svc.CourseStats(ctx.Request().Context(), ctx.Param("id"), semester, ctx.QueryParam("academic_year"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}

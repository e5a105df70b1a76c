package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lab/core"
	"github.com/trezcool/masomo-lab/core/progress"
)

var slugParam = "required,slug"

type checkpointApi struct {
	svc        progress.ServiceInterface
	validate   *validator.Validate
	translator ut.Translator
}

func registerCheckpointAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc progress.ServiceInterface,
	validate *validator.Validate,
	translator ut.Translator,
) {
	api := checkpointApi{
		svc:        svc,
		validate:   validate,
		translator: translator,
	}

	ag := g.Group("/activities/:activity", jwt)

	// the student's own checkpoints
	sg := ag.Group("/checkpoints", studentMiddleware)
	sg.GET("", api.load)
	sg.PUT("/:component", api.save)

	// staff endpoints
	ag.GET("/progress", api.report, staffMiddleware())
	ag.DELETE("/students/:student/checkpoints", api.reset, staffMiddleware())
}

// param validates a slug path parameter.
func (api *checkpointApi) param(ctx echo.Context, name string) (string, error) {
	val := ctx.Param(name)
	if err := api.validate.Var(val, slugParam); err != nil {
		fErr := core.FieldError{Field: name, Error: err.Error()}
		if vErrs, ok := err.(validator.ValidationErrors); ok && len(vErrs) > 0 {
			fErr.Error = vErrs[0].Translate(api.translator)
		}
		return "", core.NewValidationError(err, fErr)
	}
	return val, nil
}

// studentKey scopes the request to the authenticated student's activity.
func (api *checkpointApi) studentKey(ctx echo.Context) (progress.Key, error) {
	activity, err := api.param(ctx, "activity")
	if err != nil {
		return progress.Key{}, err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return progress.Key{}, errors.Wrap(err, "getting context claims")
	}
	return progress.Key{StudentID: claims.Subject, ActivityID: activity}, nil
}

// Handlers

func (api *checkpointApi) load(ctx echo.Context) error {
	key, err := api.studentKey(ctx)
	if err != nil {
		return err
	}

	set, err := api.svc.Load(ctx.Request().Context(), key)
	if err != nil {
		return errors.Wrap(err, "loading checkpoints")
	}
	return ctx.JSON(http.StatusOK, progress.NewCheckpointsResponse(set))
}

func (api *checkpointApi) save(ctx echo.Context) error {
	key, err := api.studentKey(ctx)
	if err != nil {
		return err
	}

	var data progress.SaveCheckpoint
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveCheckpoint")
	}
	// the path wins over the body
	data.ActivityID = key.ActivityID
	data.ComponentID = ctx.Param("component")
	if err = data.Validate(api.validate, api.translator); err != nil {
		return err
	}

	set, err := api.svc.Save(ctx.Request().Context(), key, data)
	if err != nil {
		return errors.Wrap(err, "saving checkpoint")
	}
	return ctx.JSON(http.StatusOK, progress.NewCheckpointsResponse(set))
}

func (api *checkpointApi) reset(ctx echo.Context) error {
	activity, err := api.param(ctx, "activity")
	if err != nil {
		return err
	}
	student, err := api.param(ctx, "student")
	if err != nil {
		return err
	}

	n, err := api.svc.Reset(ctx.Request().Context(), progress.Key{StudentID: student, ActivityID: activity})
	if err != nil {
		return errors.Wrap(err, "resetting checkpoints")
	}
	if n == 0 {
		return errors.Wrap(progress.ErrNotFound, "resetting checkpoints")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *checkpointApi) report(ctx echo.Context) error {
	activity, err := api.param(ctx, "activity")
	if err != nil {
		return err
	}

	var ord Ordering
	ord.Bind(ctx)

	rows, err := api.svc.Report(ctx.Request().Context(), activity, ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying activity progress")
	}
	if rows == nil {
		rows = []progress.StudentProgress{}
	}
	return ctx.JSON(http.StatusOK, rows)
}

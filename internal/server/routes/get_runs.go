package routes

import (
	"errors"
	"net/http"
	"slices"

	"github.com/OFFIS-RIT/influence/internal/runs"
	"github.com/OFFIS-RIT/influence/internal/server/middleware"
	"github.com/OFFIS-RIT/influence/pkg/pipeline"

	"github.com/labstack/echo/v4"
)

func GetLatestRunHandler(c echo.Context) error {
	type response struct {
		runs.Run
		PredictedDurationMs int64 `json:"predicted_duration_ms"`
	}

	dataset := c.Param("dataset")
	if !slices.Contains(pipeline.Datasets, dataset) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown dataset"})
	}

	app := c.(*middleware.AppContext).App
	if app.Runs == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Run history unavailable"})
	}

	ctx := c.Request().Context()
	run, err := app.Runs.Latest(ctx, dataset)
	if errors.Is(err, runs.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No runs yet"})
	}
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}

	predicted, err := app.Runs.PredictDuration(ctx, dataset)
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, response{Run: run, PredictedDurationMs: predicted.Milliseconds()})
}

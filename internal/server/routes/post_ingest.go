package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/influence/internal/queue"
	"github.com/OFFIS-RIT/influence/internal/server/middleware"
	"github.com/OFFIS-RIT/influence/pkg/logger"

	"github.com/labstack/echo/v4"
)

func PostIngestHandler(c echo.Context) error {
	type request struct {
		Datasets []string `json:"datasets" validate:"dive,oneof=interests funding"`
		Message  string   `json:"message" validate:"max=512"`
	}
	type response struct {
		CorrelationID string   `json:"correlation_id"`
		Datasets      []string `json:"datasets"`
	}

	data := new(request)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	job, err := queue.NewIngestJob(data.Message, data.Datasets...)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	app := c.(*middleware.AppContext).App
	if app.Queue == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Queue unavailable"})
	}
	if err := queue.PublishIngestJob(app.Queue, job); err != nil {
		logger.Error("[Server] Failed to queue ingest job", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to queue job"})
	}

	logger.Info("[Server] Queued ingest job", "correlation_id", job.CorrelationID, "datasets", job.Datasets)
	return c.JSON(http.StatusAccepted, response{CorrelationID: job.CorrelationID, Datasets: job.Datasets})
}

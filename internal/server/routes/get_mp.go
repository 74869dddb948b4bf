package routes

import (
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/influence/internal/server/middleware"
	"github.com/OFFIS-RIT/influence/pkg/graph"
	"github.com/OFFIS-RIT/influence/pkg/logger"
	"github.com/OFFIS-RIT/influence/pkg/store"

	"github.com/labstack/echo/v4"
)

func GetMpHandler(c echo.Context) error {
	type request struct {
		Name string `query:"name" validate:"required,max=256"`
	}

	data := new(request)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name is required"})
	}

	ctx := c.Request().Context()
	s := c.(*middleware.AppContext).App.Store

	view, err := graph.DescribePolitician(ctx, s, data.Name)
	switch {
	case errors.Is(err, graph.ErrMissing):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Politician not found"})
	case errors.Is(err, store.ErrUnavailable):
		logger.Error("[Server] Graph store unavailable", "err", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Graph store unavailable"})
	case err != nil:
		logger.Error("[Server] Failed to describe politician", "name", data.Name, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, view)
}

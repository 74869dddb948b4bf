package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/influence/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

func GetStatsHandler(c echo.Context) error {
	stats, err := c.(*middleware.AppContext).App.Store.Counts(c.Request().Context())
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

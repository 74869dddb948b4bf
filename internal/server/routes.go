package server

import (
	"github.com/OFFIS-RIT/influence/internal/server/middleware"
	"github.com/OFFIS-RIT/influence/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	api := e.Group("/api/v0.1")

	// Read side
	api.GET("/getMp", routes.GetMpHandler)
	api.GET("/stats", routes.GetStatsHandler)

	// Operator routes
	api.POST("/ingest", routes.PostIngestHandler, middleware.OperatorMiddleware)
	api.GET("/runs/:dataset", routes.GetLatestRunHandler, middleware.OperatorMiddleware)
}

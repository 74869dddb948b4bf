package middleware

import (
	"context"
	"time"

	"github.com/OFFIS-RIT/influence/internal/queue"
	"github.com/OFFIS-RIT/influence/internal/runs"
	"github.com/OFFIS-RIT/influence/pkg/store"

	"github.com/labstack/echo/v4"
)

// RunReader reads persisted ingestion runs.
type RunReader interface {
	Latest(ctx context.Context, dataset string) (runs.Run, error)
	PredictDuration(ctx context.Context, dataset string) (time.Duration, error)
}

type App struct {
	Store        store.Store
	Queue        queue.Publisher
	Runs         RunReader
	MasterAPIKey string
}

type AppContext struct {
	echo.Context
	App      *App
	Operator bool
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{Context: c, App: app}
			return next(cc)
		}
	}
}

// routes.go - Route and middleware registration
package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/api/health", h.HandleHealth)

	g := e.Group("/api/sessions")
	g.POST("", h.HandleCreateSession)
	g.GET("/:id", h.HandleGetSession)
	g.DELETE("/:id", h.HandleDeleteSession)
	g.POST("/:id/files", h.HandleUploadFiles)
	g.POST("/:id/reset", h.HandleResetSession)
	g.GET("/:id/export.xlsx", h.HandleExportXLSX)
	g.GET("/:id/reports.msgpack", h.HandleExportMsgpack)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, logger *slog.Logger, bodyLimit string) {
	if logger == nil {
		logger = slog.Default()
	}
	e.HTTPErrorHandler = NewErrorHandler(logger)

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10,
	}))
	if bodyLimit != "" {
		e.Use(middleware.BodyLimit(bodyLimit))
	}
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/api/health"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(c.Request().Context(), level, "http.request",
				slog.String("req_id", v.RequestID),
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Int64("elapsed_ms", v.Latency.Milliseconds()),
			)
			return nil
		},
	}))
}

// NewServer builds a configured Echo instance serving h.
func NewServer(h *Handler, logger *slog.Logger, bodyLimit string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	SetupMiddleware(e, logger, bodyLimit)
	RegisterRoutes(e, h)
	return e
}

package http

import (
	"net/http"
	"snaptrade/pkg/common"
	"snaptrade/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func (h *HttpAPIHandler) SetupMiddlewares() {
	h.echo.HTTPErrorHandler = HTTPErrorHandler(h.log)

	h.echo.Use(middleware.Recover())
	h.echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	h.echo.Use(h.contextLogger)
	h.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ctx := c.Request().Context()
			fields := []zap.Field{
				logger.StringField("method", v.Method),
				logger.StringField("uri", v.URI),
				logger.IntField("status", v.Status),
				logger.StringField("remote_ip", v.RemoteIP),
				logger.DurationField("latency", v.Latency),
			}
			switch {
			case v.Status >= http.StatusInternalServerError:
				h.log.ErrorContext(ctx, "request", fields...)
			case v.Status >= http.StatusBadRequest:
				h.log.WarnContext(ctx, "request", fields...)
			default:
				h.log.InfoContext(ctx, "request", fields...)
			}
			return nil
		},
	}))
	h.echo.Use(middleware.Secure())
	h.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: h.cfg.API.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, common.HEADER_API_TOKEN},
	}))
}

// contextLogger stores a request scoped logger carrying the request id.
func (h *HttpAPIHandler) contextLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := c.Response().Header().Get(echo.HeaderXRequestID)
		reqLog := h.log.With(logger.StringField("request_id", reqID))

		req := c.Request()
		c.SetRequest(req.WithContext(logger.NewContext(req.Context(), reqLog)))
		return next(c)
	}
}

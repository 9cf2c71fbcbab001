package http

import (
	"errors"
	"net/http"
	"snaptrade/internal/dto"
	"snaptrade/pkg/logger"
	"snaptrade/pkg/middleware"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

func (h *HttpAPIHandler) SetupAnalyze() {
	h.echo.POST("/analyze", h.analyze,
		middleware.NewTokenAuthMiddleware(h.cfg.Auth.APIToken),
		middleware.NewRateLimiterMiddleware(h.limiter, h.identifier()),
		echoMiddleware.BodyLimit(h.cfg.API.RequestLimit),
	)
}

func (h *HttpAPIHandler) analyze(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.AnalyzeRequest)
	if err := c.Bind(req); err != nil {
		if errors.Is(err, echo.ErrStatusRequestEntityTooLarge) {
			return c.JSON(http.StatusBadRequest, dto.NewErrorResponse(msgBodyTooLarge))
		}
		h.log.DebugContext(ctx, "failed to bind analyze request", logger.ErrorField(err))
		return c.JSON(http.StatusBadRequest, dto.NewErrorResponse(msgValidationFailed, "body: corpo JSON inválido"))
	}

	result, err := h.service.AnalyzerService.Analyze(ctx, *req)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

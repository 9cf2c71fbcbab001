package http

import (
	"context"
	"snaptrade/config"
	"snaptrade/internal/service"
	"snaptrade/pkg/logger"
	"snaptrade/pkg/middleware"
	"snaptrade/pkg/ratelimit"

	"github.com/labstack/echo/v4"
)

type HttpAPIHandler struct {
	ctx     context.Context
	echo    *echo.Echo
	cfg     *config.Config
	log     *logger.Logger
	service *service.Service
	limiter *ratelimit.FixedWindow
}

func NewHttpAPIHandler(ctx context.Context, echo *echo.Echo, cfg *config.Config, log *logger.Logger, service *service.Service, limiter *ratelimit.FixedWindow) *HttpAPIHandler {
	return &HttpAPIHandler{
		ctx:     ctx,
		echo:    echo,
		cfg:     cfg,
		log:     log,
		service: service,
		limiter: limiter,
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	h.SetupMiddlewares()
	h.SetupHealth()
	h.SetupAnalyze()
	h.SetupWeb()
}

func (h *HttpAPIHandler) identifier() middleware.IdentifierExtractor {
	if h.cfg.RateLimit.KeyBy == config.RateLimitKeyIP {
		return middleware.IPIdentifier
	}
	return middleware.TokenIdentifier
}

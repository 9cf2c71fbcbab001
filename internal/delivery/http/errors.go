package http

import (
	"errors"
	"net/http"
	"snaptrade/internal/dto"
	"snaptrade/internal/repository"
	"snaptrade/internal/service"
	"snaptrade/pkg/decoder"
	"snaptrade/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	msgValidationFailed  = "Validação falhou"
	msgBodyTooLarge      = "Corpo da requisição excede o limite"
	msgInvalidBase64     = "Base64 inválido"
	msgUnsupportedImage  = "Formato de imagem não suportado (permitido: PNG, JPEG, WEBP)"
	msgImageTooLarge     = "Imagem excede tamanho máximo"
	msgContractViolation = "Resposta fora do formato esperado"
	msgUpstreamTimeout   = "Timeout ao consultar o modelo"
	msgInternal          = "Erro interno"
)

// writeError maps an error to its status by origin: caller input, upstream contract,
// upstream timeout, everything else.
func (h *HttpAPIHandler) writeError(c echo.Context, err error) error {
	ctx := c.Request().Context()

	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		return c.JSON(http.StatusBadRequest, dto.NewErrorResponse(msgValidationFailed, vErr.Details...))
	case errors.Is(err, decoder.ErrInvalidBase64):
		return c.JSON(http.StatusBadRequest, dto.NewErrorResponse(msgInvalidBase64))
	case errors.Is(err, decoder.ErrUnsupportedImage):
		return c.JSON(http.StatusBadRequest, dto.NewErrorResponse(msgUnsupportedImage))
	case errors.Is(err, decoder.ErrImageTooLarge):
		return c.JSON(http.StatusBadRequest, dto.NewErrorResponse(msgImageTooLarge))
	case errors.Is(err, service.ErrContractViolation):
		return c.JSON(http.StatusBadGateway, dto.NewErrorResponse(msgContractViolation))
	case errors.Is(err, repository.ErrUpstreamTimeout):
		h.log.ErrorContext(ctx, "vision model timed out", logger.ErrorField(err))
		return c.JSON(http.StatusGatewayTimeout, dto.NewErrorResponse(msgUpstreamTimeout))
	default:
		h.log.ErrorContext(ctx, "failed to process /analyze", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(msgInternal))
	}
}

// HTTPErrorHandler renders errors escaping handlers (404, 405, panics) in the {error} envelope.
func HTTPErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := msgInternal

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(code)
			}
		}
		if code == http.StatusRequestEntityTooLarge {
			code = http.StatusBadRequest
			message = msgBodyTooLarge
		}
		if code >= http.StatusInternalServerError {
			log.ErrorContext(c.Request().Context(), "unhandled error", logger.ErrorField(err))
			message = msgInternal
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(code)
		} else {
			writeErr = c.JSON(code, dto.NewErrorResponse(message))
		}
		if writeErr != nil {
			log.ErrorContext(c.Request().Context(), "failed to write error response", logger.ErrorField(writeErr))
		}
	}
}

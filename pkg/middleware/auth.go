package middleware

import (
	"crypto/subtle"
	"net/http"
	"snaptrade/pkg/common"
	"strings"

	"github.com/labstack/echo/v4"
)

const tokenContextKey = "api_token"

// ErrorResponse mirrors the service's {error} envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ExtractToken reads the caller token from "Authorization: Bearer" or X-API-Token.
func ExtractToken(r *http.Request) string {
	auth := r.Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return strings.TrimSpace(r.Header.Get(common.HEADER_API_TOKEN))
}

// TokenFromContext returns the token accepted by NewTokenAuthMiddleware.
func TokenFromContext(c echo.Context) string {
	token, _ := c.Get(tokenContextKey).(string)
	return token
}

// NewTokenAuthMiddleware gates routes behind a single shared secret.
func NewTokenAuthMiddleware(expected string) echo.MiddlewareFunc {
	expected = strings.TrimSpace(expected)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method == http.MethodOptions {
				return next(c)
			}

			provided := ExtractToken(c.Request())
			if provided == "" {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Token ausente"})
			}
			if expected == "" {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Token não configurado"})
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Token inválido"})
			}

			c.Set(tokenContextKey, provided)
			return next(c)
		}
	}
}

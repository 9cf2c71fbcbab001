package middleware

import (
	"math"
	"net/http"
	"snaptrade/pkg/common"
	"snaptrade/pkg/ratelimit"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// IdentifierExtractor picks the key a request is counted under.
type IdentifierExtractor func(c echo.Context) string

// TokenIdentifier keys by the presented token, falling back to a shared bucket.
func TokenIdentifier(c echo.Context) string {
	if token := TokenFromContext(c); token != "" {
		return token
	}
	if token := ExtractToken(c.Request()); token != "" {
		return token
	}
	return common.NO_TOKEN
}

func IPIdentifier(c echo.Context) string {
	return c.RealIP()
}

type RateLimiterConfig struct {
	Skipper    middleware.Skipper
	Limiter    *ratelimit.FixedWindow
	Identifier IdentifierExtractor
}

func NewRateLimiterMiddleware(limiter *ratelimit.FixedWindow, identifier IdentifierExtractor) echo.MiddlewareFunc {
	return NewRateLimiterMiddlewareWithConfig(RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().Method == http.MethodOptions
		},
		Limiter:    limiter,
		Identifier: identifier,
	})
}

func NewRateLimiterMiddlewareWithConfig(config RateLimiterConfig) echo.MiddlewareFunc {
	if config.Skipper == nil {
		config.Skipper = middleware.DefaultSkipper
	}
	if config.Identifier == nil {
		config.Identifier = TokenIdentifier
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Skipper(c) {
				return next(c)
			}

			res := config.Limiter.Hit(config.Identifier(c))

			h := c.Response().Header()
			h.Set(common.HEADER_RATE_LIMIT_LIMIT, strconv.Itoa(res.Limit))
			h.Set(common.HEADER_RATE_LIMIT_REMAINING, strconv.Itoa(res.Remaining))
			h.Set(common.HEADER_RATE_LIMIT_RESET, strconv.Itoa(ceilSeconds(time.Until(res.ResetAt))))

			if !res.Allowed {
				h.Set(echo.HeaderRetryAfter, strconv.Itoa(ceilSeconds(res.RetryAfter)))
				return c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "Limite de requisições excedido"})
			}
			return next(c)
		}
	}
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

package http

import (
	"io/fs"
	"net/http"
	"snaptrade/internal/frontend"
	"snaptrade/pkg/logger"

	"github.com/labstack/echo/v4"
)

const indexFile = "index.html"

// SetupWeb serves the embedded single page client at "/".
func (h *HttpAPIHandler) SetupWeb() {
	dist, err := frontend.GetDistFS()
	if err != nil {
		h.log.Error("failed to open embedded web client", logger.ErrorField(err))
		return
	}

	index, err := fs.ReadFile(dist, indexFile)
	if err != nil {
		h.log.Error("embedded web client has no index", logger.ErrorField(err))
		return
	}

	h.echo.GET("/", func(c echo.Context) error {
		c.Response().Header().Set("Cache-Control", "no-cache")
		return c.Blob(http.StatusOK, echo.MIMETextHTMLCharsetUTF8, index)
	})
}

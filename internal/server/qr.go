package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// publicURL resolves path against the configured public base URL, falling
// back to the request's own host.
func (s *Server) publicURL(c *gin.Context, path string, query url.Values) string {
	base := strings.TrimRight(s.cfg.PublicBaseURL, "/")
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + c.Request.Host
	}
	target := base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

func writeQR(c *gin.Context, content string) {
	png, err := qrcode.Encode(content, qrcode.Medium, qrSize)
	if err != nil {
		writeServerError(c, "failed to render qr code", err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

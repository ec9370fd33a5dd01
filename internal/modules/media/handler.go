// Package media streams locally stored attachments to moderators.
package media

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vbg-space/core/internal/modules/storage/blob"
	"github.com/vbg-space/core/internal/pkg/response"
	"go.uber.org/zap"
)

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".mp4":  "video/mp4",
	".webm": "video/webm",
}

type Handler struct {
	local  *blob.LocalBackend
	logger *zap.Logger
}

func NewHandler(local *blob.LocalBackend, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{local: local, logger: logger}
}

// RegisterRoutes mounts GET <prefix>/:file behind mws.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, prefix string, mws ...gin.HandlerFunc) {
	handlers := append(append([]gin.HandlerFunc{}, mws...), h.serve)
	rg.GET(strings.TrimRight(prefix, "/")+"/:file", handlers...)
}

// serve streams one file. Range requests get 206; unsatisfiable ranges 416.
func (h *Handler) serve(c *gin.Context) {
	name := c.Param("file")
	if blob.SafeName(name) != name {
		response.NotFound(c)
		return
	}
	contentType, ok := contentTypes[strings.ToLower(filepath.Ext(name))]
	if !ok {
		response.NotFound(c)
		return
	}

	f, info, err := h.local.Open(name)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) || errors.Is(err, blob.ErrInvalidName) {
			response.NotFound(c)
			return
		}
		h.logger.Error("open media failed", zap.String("file", name), zap.Error(err))
		response.InternalError(c, err)
		return
	}
	defer f.Close()

	header := c.Writer.Header()
	header.Set("Content-Type", contentType)
	header.Set("Cache-Control", "private, max-age=3600")
	header.Set("Content-Disposition", "inline")
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), f)
}

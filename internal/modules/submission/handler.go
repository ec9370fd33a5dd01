package submission

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vbg-space/core/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, mws ...gin.HandlerFunc) {
	handlers := append(append([]gin.HandlerFunc{}, mws...), h.submit)
	rg.POST("/submissions", handlers...)
}

// POST /submissions: multipart message plus up to 3 files
func (h *Handler) submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)

	form, err := ReadForm(c.Request)
	if err != nil {
		response.Error(c, err)
		return
	}
	if _, err := h.svc.Submit(c.Request.Context(), form.Message, form.Files); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated)
}

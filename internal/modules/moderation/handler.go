package moderation

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vbg-space/core/internal/pkg/apperr"
	"github.com/vbg-space/core/internal/pkg/pagination"
	"github.com/vbg-space/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// RegisterRoutes mounts the moderation endpoints. The caller supplies the
// admin guard chain through mws.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, mws ...gin.HandlerFunc) {
	g := rg.Group("/admin", mws...)
	g.GET("/stats", h.stats)
	g.GET("/testimonials", h.list)
	g.GET("/testimonials/:id", h.get)
	g.PATCH("/testimonials/:id", h.update)
	g.DELETE("/testimonials/:id", h.delete)
}

func (h *Handler) stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, st)
}

func (h *Handler) list(c *gin.Context) {
	items, pag, err := h.svc.List(c.Request.Context(), pagination.ParsePage(c.Query("page")), c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) get(c *gin.Context) {
	id, err := ParseID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	d, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, d)
}

func (h *Handler) update(c *gin.Context) {
	id, err := ParseID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	var dto UpdateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, apperr.Wrap(apperr.KindValidation, "invalid request body", err))
		return
	}
	if err := h.svc.Update(c.Request.Context(), id, dto.Status, dto.Notes); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK)
}

func (h *Handler) delete(c *gin.Context) {
	id, err := ParseID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK)
}

package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vbg-space/core/internal/middleware"
	"github.com/vbg-space/core/internal/pkg/apperr"
	"github.com/vbg-space/core/internal/pkg/response"
	"github.com/vbg-space/core/internal/pkg/session"
)

type Handler struct {
	gate    *Gate
	cookies *session.Cookies
}

func NewHandler(gate *Gate, cookies *session.Cookies) *Handler {
	return &Handler{gate: gate, cookies: cookies}
}

// RegisterRoutes mounts the session endpoints. loginMW guards the login
// route, authMW the logout route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, loginMW, authMW gin.HandlerFunc) {
	g := rg.Group("/admin/session")
	g.GET("", h.status)
	g.POST("", loginMW, h.login)
	g.POST("/close", authMW, h.logout)
}

// POST /admin/session
func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, apperr.Wrap(apperr.KindValidation, "invalid request body", err))
		return
	}

	sess, err := h.gate.Login(c.Request.Context(), h.cookies.SessionID(c), dto.Username, dto.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.cookies.Set(c, sess.ID); err != nil {
		_ = h.gate.Logout(c.Request.Context(), sess)
		response.InternalError(c, err)
		return
	}
	response.Success(c, http.StatusOK)
}

// POST /admin/session/close
func (h *Handler) logout(c *gin.Context) {
	if err := h.gate.Logout(c.Request.Context(), middleware.CurrentSession(c)); err != nil {
		response.InternalError(c, err)
		return
	}
	h.cookies.Clear(c)
	response.Success(c, http.StatusOK)
}

// GET /admin/session
func (h *Handler) status(c *gin.Context) {
	response.OK(c, sessionStatus{Authenticated: middleware.IsAuthenticated(c)})
}

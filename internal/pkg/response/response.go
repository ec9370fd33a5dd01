package response

import (
	"errors"
	"net/http"
	"reflect"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/vbg-space/core/internal/pkg/apperr"
	"github.com/vbg-space/core/internal/pkg/pagination"
)

const internalMessage = "internal server error"

var exposeInternal atomic.Bool

// SetExposeInternal controls whether 500 responses carry the underlying error text.
// Only development mode should enable it.
func SetExposeInternal(v bool) { exposeInternal.Store(v) }

// OK sends a 200 response. Arrays/slices are wrapped in {data: [...]}.
func OK(c *gin.Context, data interface{}) {
	if data != nil {
		v := reflect.ValueOf(data)
		if v.Kind() == reflect.Slice {
			c.JSON(http.StatusOK, gin.H{"data": data})
			return
		}
	}
	c.JSON(http.StatusOK, data)
}

// pagedResponse is the envelope for paginated list responses.
type pagedResponse struct {
	Data       interface{}     `json:"data"`
	Pagination pagination.Page `json:"pagination"`
}

// Paged sends a paginated response.
func Paged(c *gin.Context, data interface{}, page pagination.Page) {
	c.JSON(http.StatusOK, pagedResponse{Data: data, Pagination: page})
}

// Success sends {"success": true} with the given status.
func Success(c *gin.Context, status int) {
	c.JSON(status, gin.H{"success": true})
}

// Abort sends the error envelope with an explicit status.
func Abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"ok": 0, "code": status, "message": message})
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, message string) {
	Abort(c, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 error response.
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "not authorized"
	}
	Abort(c, http.StatusUnauthorized, message)
}

// NotFound sends a 404 error response.
func NotFound(c *gin.Context) {
	Abort(c, http.StatusNotFound, "not found")
}

// MethodNotAllowed sends a 405 error response.
func MethodNotAllowed(c *gin.Context) {
	Abort(c, http.StatusMethodNotAllowed, "method not allowed")
}

// TooManyRequests sends a 429 error response.
func TooManyRequests(c *gin.Context, message string) {
	Abort(c, http.StatusTooManyRequests, message)
}

// InternalError sends a 500 error response. The cause is only shown in development.
func InternalError(c *gin.Context, err error) {
	msg := internalMessage
	if err != nil && exposeInternal.Load() {
		msg = err.Error()
	}
	if err != nil {
		_ = c.Error(err)
	}
	Abort(c, http.StatusInternalServerError, msg)
}

// Error maps err onto the envelope using its apperr kind.
func Error(c *gin.Context, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		InternalError(c, err)
		return
	}
	status := apperr.Status(ae.Kind)
	if status >= http.StatusInternalServerError {
		InternalError(c, err)
		return
	}
	Abort(c, status, ae.Message)
}

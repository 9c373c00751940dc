package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	issuer *Issuer
}

func NewHandler(issuer *Issuer) *Handler {
	return &Handler{issuer: issuer}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/me", h.me)
	r.POST("/leave", h.leave)
}

func (h *Handler) me(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No current user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// leave forgets this browser's identity. The session is unaffected.
func (h *Handler) leave(c *gin.Context) {
	h.issuer.clear(c)
	c.Status(http.StatusNoContent)
}

package handlers

import (
	"github.com/gin-gonic/gin"
)

const Version = "1.0.0"

type HealthHandler struct {
	mode string
}

func NewHealthHandler(mode string) *HealthHandler {
	return &HealthHandler{mode: mode}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	RespondOK(c, gin.H{
		"status":  "healthy",
		"mode":    h.mode,
		"version": Version,
	})
}

package http

import "github.com/gin-gonic/gin"

// Register mounts the generation endpoints on the given group.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/generations", h.generate)
	r.GET("/generations", h.list)
	r.GET("/generations/quota", h.quota)
	r.GET("/generations/metrics", h.metrics)
	r.GET("/generations/:id", h.get)
	r.DELETE("/generations/:id", h.delete)
}

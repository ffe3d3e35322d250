package http

import "github.com/gin-gonic/gin"

// Register mounts the workspace endpoints on the given group.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/workspaces", h.open)
	r.GET("/workspaces/:id", h.get)
	r.GET("/workspaces/:id/preview", h.preview)
	r.POST("/workspaces/:id/files", h.addFile)
	r.PUT("/workspaces/:id/files", h.updateFile)
	r.DELETE("/workspaces/:id/files", h.deleteFile)
	r.PUT("/workspaces/:id/active", h.selectActive)
	r.POST("/workspaces/:id/navigate", h.navigate)
}

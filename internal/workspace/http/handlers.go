package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	gendomain "github.com/pageforge-dev/pageforge-backend/internal/generation/domain"
	wsdomain "github.com/pageforge-dev/pageforge-backend/internal/workspace/domain"
	"github.com/pageforge-dev/pageforge-backend/internal/workspace/repository"
	"github.com/pageforge-dev/pageforge-backend/internal/workspace/service"
)

// Handler exposes workspace sessions over HTTP.
type Handler struct {
	svc *service.WorkspaceService
}

func New(svc *service.WorkspaceService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) open(c *gin.Context) {
	var req openReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	view, err := h.svc.Open(c.Request.Context(), strings.TrimSpace(req.GenerationID))
	if err != nil {
		if errors.Is(err, gendomain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "generation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, viewBody(view))
}

func (h *Handler) get(c *gin.Context) {
	view, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeWorkspaceError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewBody(view))
}

// preview returns the derived document alone, as html, for direct embedding
// in a sandboxed iframe.
func (h *Handler) preview(c *gin.Context) {
	view, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeWorkspaceError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(view.Preview))
}

func (h *Handler) addFile(c *gin.Context) {
	var req fileReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "file name is required"})
		return
	}

	view, err := h.svc.AddFile(c.Request.Context(), c.Param("id"), req.Name, req.Content)
	if err != nil {
		writeWorkspaceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewBody(view))
}

func (h *Handler) updateFile(c *gin.Context) {
	var req fileReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "file name is required"})
		return
	}

	view, err := h.svc.UpdateFile(c.Request.Context(), c.Param("id"), req.Name, req.Content)
	if err != nil {
		writeWorkspaceError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewBody(view))
}

func (h *Handler) deleteFile(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "file name is required"})
		return
	}

	view, err := h.svc.DeleteFile(c.Request.Context(), c.Param("id"), name)
	if err != nil {
		writeWorkspaceError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewBody(view))
}

func (h *Handler) selectActive(c *gin.Context) {
	var req selectReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "file name is required"})
		return
	}

	view, err := h.svc.SelectActive(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		writeWorkspaceError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewBody(view))
}

// navigate handles the NAVIGATE messages the preview's interception script
// posts: resolve the href, switch the active file, re-render.
func (h *Handler) navigate(c *gin.Context) {
	var req navigateReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Href) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "href is required"})
		return
	}

	view, err := h.svc.Navigate(c.Request.Context(), c.Param("id"), req.Href)
	if err != nil {
		writeWorkspaceError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewBody(view))
}

func viewBody(view *service.View) gin.H {
	return gin.H{
		"ok":      true,
		"session": view.Session,
		"preview": view.Preview,
		"tree":    view.Tree,
	}
}

// writeWorkspaceError maps session and project errors onto status codes.
func writeWorkspaceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "workspace session not found"})
	case errors.Is(err, wsdomain.ErrFileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, wsdomain.ErrDuplicateFile), errors.Is(err, wsdomain.ErrProtectedFile):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	}
}

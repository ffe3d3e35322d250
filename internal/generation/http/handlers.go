package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageforge-dev/pageforge-backend/internal/generation/domain"
	"github.com/pageforge-dev/pageforge-backend/internal/generation/service"
)

// Handler exposes the generation pipeline over HTTP.
type Handler struct {
	svc *service.GenerationService
}

func New(svc *service.GenerationService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) generate(c *gin.Context) {
	var req generateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	prompt := strings.TrimSpace(req.Prompt)
	if len(prompt) < MinPromptLength {
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":    false,
			"error": "prompt must be at least 10 characters",
		})
		return
	}

	gen, err := h.svc.Generate(c.Request.Context(), prompt)
	if err != nil {
		writePipelineError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "generation": gen})
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "generations": items})
}

func (h *Handler) get(c *gin.Context) {
	gen, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "generation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "generation": gen})
}

func (h *Handler) delete(c *gin.Context) {
	err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "generation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// quota reports what an admission check would decide right now, so clients
// can show a countdown before submitting.
func (h *Handler) quota(c *gin.Context) {
	d := h.svc.QuotaStatus()
	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"allowed":     d.Allowed,
		"waitSeconds": d.WaitSeconds,
		"reason":      d.Reason,
	})
}

func (h *Handler) metrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "metrics": service.GetMetrics()})
}

// writePipelineError maps the error taxonomy onto status codes and the shared
// failure envelope. Every fatal class carries an actionable message.
func writePipelineError(c *gin.Context, err error) {
	code := service.ClassifyError(err)

	body := errorBody{Error: userMessage(code), Code: code}

	var denied *domain.AdmissionDeniedError
	if errors.As(err, &denied) {
		body.WaitTime = denied.WaitSeconds
	}

	status := http.StatusInternalServerError
	switch code {
	case domain.CodeRateLimit:
		status = http.StatusTooManyRequests
	case domain.CodeInvalidAPIKey, domain.CodeEmptyResponse:
		status = http.StatusBadGateway
	case domain.CodeInvalidFormat:
		status = http.StatusUnprocessableEntity
	}

	c.JSON(status, body)
}

func userMessage(code string) string {
	switch code {
	case domain.CodeRateLimit:
		return "generation limit reached, please wait before retrying"
	case domain.CodeInvalidAPIKey:
		return "upstream model rejected the configured API key, check the credential"
	case domain.CodeEmptyResponse:
		return "the model returned an empty reply, try again"
	case domain.CodeInvalidFormat:
		return "the model reply could not be understood, try again"
	}
	return "generation failed, try again"
}

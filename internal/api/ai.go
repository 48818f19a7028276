package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vibestack/internal/llm"
	"vibestack/internal/models"
	"vibestack/internal/relay"
)

func (h *Handler) analyze(c *gin.Context) {
	var req models.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	messages := llm.AnalyzeMessages(h.analyzePrompt, req.Text, req.ImageURL)

	if c.Query("stream") == "1" {
		body, err := h.llm.Stream(c.Request.Context(), messages)
		if err != nil {
			h.aiError(c, err)
			return
		}
		if err := relay.Pipe(c.Writer, body); err != nil {
			h.logger.Warn("stream relay ended early", slog.String("err", err.Error()))
			// headers are already sent; aborting leaves the chunked body
			// unterminated so the client reads an unexpected EOF
			panic(http.ErrAbortHandler)
		}
		return
	}

	content, err := h.llm.Complete(c.Request.Context(), messages)
	if err != nil {
		h.aiError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Response[models.Completion]{Data: models.Completion{Content: content}})
}

func (h *Handler) chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	content, err := h.llm.Complete(c.Request.Context(), llm.ChatMessages(h.chatPrompt, req.Context, req.Text))
	if err != nil {
		h.aiError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Response[models.Completion]{Data: models.Completion{Content: content}})
}

func (h *Handler) aiError(c *gin.Context, err error) {
	if errors.Is(err, llm.ErrNotConfigured) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": llm.ErrNotConfigured.Error()})
		return
	}
	h.logger.Error("AI call failed", slog.String("path", c.FullPath()), slog.String("err", err.Error()))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Failed to call AI service",
		"message": err.Error(),
	})
}

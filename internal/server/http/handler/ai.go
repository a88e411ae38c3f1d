package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/hiinen/internal/logging"
	"github.com/dmitrijs2005/hiinen/internal/server/cofounder"
	"github.com/dmitrijs2005/hiinen/internal/server/llm"
)

// CoFounder is the AI co-founder API. *cofounder.Service implements it.
type CoFounder interface {
	Chat(ctx context.Context, message string, history []llm.Message) *cofounder.Reply
	Recommendations(ctx context.Context, area, subject string) *cofounder.Reply
	Insights(ctx context.Context, data any, requestType string) cofounder.Result
	MarketAnalysis(ctx context.Context, businessIdea, industry string) cofounder.Result
	Health(ctx context.Context) error
	Model() string
}

type AIHandler struct {
	cofounder CoFounder
	logger    logging.Logger
	now       func() time.Time
}

func NewAIHandler(cf CoFounder, logger logging.Logger) *AIHandler {
	return &AIHandler{cofounder: cf, logger: logger.With("module", "ai_handler"), now: time.Now}
}

func aiError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

type chatRequest struct {
	Message             string        `json:"message"`
	ConversationHistory []llm.Message `json:"conversationHistory"`
}

func (h *AIHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		aiError(c, http.StatusBadRequest, "Message is required")
		return
	}
	c.JSON(http.StatusOK, h.cofounder.Chat(c.Request.Context(), req.Message, req.ConversationHistory))
}

type insightsRequest struct {
	UserProfile any    `json:"userProfile"`
	UserData    any    `json:"userData"`
	RequestType string `json:"requestType"`
}

func (h *AIHandler) Insights(c *gin.Context) {
	var req insightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		aiError(c, http.StatusBadRequest, "User data is required")
		return
	}

	data := req.UserProfile
	if isEmpty(data) {
		data = req.UserData
	}
	if isEmpty(data) {
		aiError(c, http.StatusBadRequest, "User data is required")
		return
	}

	c.JSON(http.StatusOK, h.cofounder.Insights(c.Request.Context(), data, req.RequestType))
}

// isEmpty treats absent, null and falsy JSON values as missing.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	}
	return false
}

type marketAnalysisRequest struct {
	BusinessIdea string `json:"businessIdea"`
	Industry     string `json:"industry"`
}

func (h *AIHandler) MarketAnalysis(c *gin.Context) {
	var req marketAnalysisRequest
	_ = c.ShouldBindJSON(&req)
	if strings.TrimSpace(req.BusinessIdea) == "" || strings.TrimSpace(req.Industry) == "" {
		aiError(c, http.StatusBadRequest, "Business idea and industry are required")
		return
	}
	c.JSON(http.StatusOK, h.cofounder.MarketAnalysis(c.Request.Context(), req.BusinessIdea, req.Industry))
}

type recommendationsRequest struct {
	Area    string `json:"area"`
	Context string `json:"context"`
}

func (h *AIHandler) Recommendations(c *gin.Context) {
	var req recommendationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		aiError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	c.JSON(http.StatusOK, h.cofounder.Recommendations(c.Request.Context(), req.Area, req.Context))
}

func (h *AIHandler) Health(c *gin.Context) {
	if err := h.cofounder.Health(c.Request.Context()); err != nil {
		h.logger.Warn(c.Request.Context(), "co-founder health probe failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"status":  "AI Co-founder is offline",
			"error":   cofounder.ErrMessageUnavailable,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"status":    "AI Co-founder is online",
		"model":     h.cofounder.Model(),
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

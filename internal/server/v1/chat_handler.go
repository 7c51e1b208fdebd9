package v1

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/parley-llm/parley/internal/server/middleware"
	"github.com/parley-llm/parley/internal/server/validator"
	"github.com/parley-llm/parley/pkg/api"
	"github.com/parley-llm/parley/pkg/client"
	"github.com/parley-llm/parley/pkg/provider"
)

// ChatHandler serves the OpenAI-compatible completions surface over the
// unification core. Models are addressed as <provider>/<model>.
type ChatHandler struct {
	client *client.Client
}

func NewChatHandler(c *client.Client) *ChatHandler {
	return &ChatHandler{client: c}
}

func (h *ChatHandler) RegisterRoutes(g *gin.RouterGroup) {
	g.POST("/chat/completions", h.CreateCompletion)
}

// splitModel resolves the <provider>/<model> addressing scheme. The model
// part may itself contain slashes (hosted HF-style ids).
func splitModel(qualified string) (provider.Provider, string, bool) {
	name, model, found := strings.Cut(qualified, "/")
	if !found || model == "" {
		return "", "", false
	}
	p, ok := provider.Parse(name)
	if !ok {
		return "", "", false
	}
	return p, model, true
}

func (h *ChatHandler) CreateCompletion(c *gin.Context) {
	var req api.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
			"message": "validation failed",
			"fields":  validator.ParseError(err),
		}})
		return
	}

	p, model, ok := splitModel(req.Model)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
			"message": "model must be addressed as <provider>/<model> with a known provider",
		}})
		return
	}
	req.Model = model

	if req.Stream {
		h.handleStream(c, p, &req)
		return
	}

	resp, err := h.client.Chat(c.Request.Context(), p, &req)
	if err != nil {
		middleware.RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ChatHandler) handleStream(c *gin.Context, p provider.Provider, req *api.ChatRequest) {
	stream, err := h.client.Stream(c.Request.Context(), p, req)
	if err != nil {
		middleware.RenderError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	results := stream.Results(c.Request.Context())

	c.Stream(func(w io.Writer) bool {
		result, ok := <-results
		if !ok {
			_, _ = io.WriteString(w, "data: [DONE]\n\n")
			return false
		}

		if result.Err != nil {
			payload, _ := json.Marshal(gin.H{"error": gin.H{"message": result.Err.Error()}})
			_, _ = fmt.Fprintf(w, "data: %s\n\n", payload)
			return false
		}

		payload, err := json.Marshal(result.Delta)
		if err != nil {
			return false
		}
		_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
		return err == nil
	})
}

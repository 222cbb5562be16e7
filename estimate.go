package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

/* ─── Request / Response types ───────────────────────────────────────── */

// estimateRequest is the request body for POST /api/meal-logger/estimate.
type estimateRequest struct {
	Description string `json:"description"`
}

// mealEstimate is the nutrition data parsed from the model's reply.
// Confidence is 1-5 indicating how accurate the estimate is.
type mealEstimate struct {
	Name       string  `json:"name"`
	Calories   float64 `json:"calories"`
	Protein    float64 `json:"protein"`
	Carbs      float64 `json:"carbs"`
	Fats       float64 `json:"fats"`
	Confidence int     `json:"confidence"`
}

const estimateSystemPrompt = `You are a nutrition assistant. Parse the meal description and return a JSON object with:
- "name" (string, cleaned up title case)
- "calories" (number, kcal for the whole portion)
- "protein" (number, grams)
- "carbs" (number, grams)
- "fats" (number, grams)
- "confidence" (integer 1-5: 5=exact known nutritional data, 3=reasonable estimate, 1=very uncertain)

Always provide your best estimate, even for vague meals. Only return {"error": "unrecognized"} if the input is not food at all.
Return only valid JSON, no explanation.`

/* ─── Chat completions client ────────────────────────────────────────── */

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

var errNoAPIKey = errors.New("OPENAI_API_KEY not set")

// completeChat sends a chat completions request to an OpenAI-compatible
// endpoint and returns the content of the first choice.
func completeChat(ctx context.Context, cfg *config, messages []chatMessage) (string, error) {
	if cfg.OpenAIAPIKey == "" {
		return "", errNoAPIKey
	}

	bodyBytes, err := json.Marshal(chatRequest{
		Model:          cfg.OpenAIModel,
		Messages:       messages,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(cfg.OpenAIBaseURL, "/")+"/v1/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+cfg.OpenAIAPIKey)

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, string(respBytes))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	return result.Choices[0].Message.Content, nil
}

// parseEstimate decodes the model's JSON reply. ok is false when the model
// did not recognize the input as food.
func parseEstimate(content string) (est mealEstimate, ok bool, err error) {
	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(content), &probe); err != nil {
		return mealEstimate{}, false, fmt.Errorf("parse reply: %w", err)
	}
	if probe.Error != "" {
		return mealEstimate{}, false, nil
	}
	if err := json.Unmarshal([]byte(content), &est); err != nil {
		return mealEstimate{}, false, fmt.Errorf("parse estimate: %w", err)
	}
	if est.Name == "" || est.Calories <= 0 {
		return mealEstimate{}, false, nil
	}
	return est, true, nil
}

// estimateMeal turns a free-text meal description into a nutrition estimate.
// POST /api/meal-logger/estimate. Body: { "description": "..." }.
func (h *Handler) estimateMeal(c *gin.Context) {
	var req estimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		apiError(c, http.StatusBadRequest, "description is required")
		return
	}

	content, err := completeChat(c.Request.Context(), h.cfg, []chatMessage{
		{Role: "system", Content: estimateSystemPrompt},
		{Role: "user", Content: req.Description},
	})
	if err != nil {
		log.Printf("[estimateMeal] upstream error: %v", err)
		apiError(c, http.StatusInternalServerError, "estimate request failed")
		return
	}

	est, ok, err := parseEstimate(content)
	if err != nil {
		log.Printf("[estimateMeal] %v", err)
		apiError(c, http.StatusInternalServerError, "estimate request failed")
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"error": "unrecognized"})
		return
	}
	c.JSON(http.StatusOK, est)
}

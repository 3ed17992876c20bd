package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	openai "github.com/sashabaranov/go-openai"
)

type coachRequest struct {
	UserData struct {
		FoodBudget *decimal.Decimal `json:"food_budget"`
	} `json:"user_data"`
	RecentExpenses struct {
		Food  *decimal.Decimal `json:"food"`
		Total *decimal.Decimal `json:"total"`
	} `json:"recent_expenses"`
}

// Coach asks the AI advisor for spending advice based on the caller's
// budget and recent spending.
func (h *Handlers) Coach(c *gin.Context) {
	var req coachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserData.FoodBudget == nil || req.RecentExpenses.Food == nil || req.RecentExpenses.Total == nil {
		respondError(c, http.StatusBadRequest, "Missing required user_data or recent_expenses fields.", nil)
		return
	}
	if h.ai == nil {
		respondError(c, http.StatusInternalServerError, "OpenAI API key not configured.", nil)
		return
	}

	prompt := fmt.Sprintf(
		"Give financial advice based on this:\n- User has spent $%s on food\n- Budget for food is $%s\n- Total expenses: $%s\n",
		req.RecentExpenses.Food, req.UserData.FoodBudget, req.RecentExpenses.Total,
	)

	resp, err := h.ai.CreateChatCompletion(c.Request.Context(), openai.ChatCompletionRequest{
		Model: openai.GPT4Turbo,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a helpful financial advisor."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   180,
		Temperature: 0.7,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("coach completion failed")
		respondError(c, http.StatusInternalServerError, "AI response failed", nil)
		return
	}
	if len(resp.Choices) == 0 {
		respondError(c, http.StatusInternalServerError, "AI response failed", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"advice": resp.Choices[0].Message.Content})
}

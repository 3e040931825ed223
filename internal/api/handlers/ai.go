package handlers

import (
	"errors"
	"net/http"

	"github.com/felixgeelhaar/finplan/internal/advisor"
	"github.com/felixgeelhaar/finplan/internal/api/respond"
	"github.com/felixgeelhaar/finplan/internal/domain"
	"github.com/felixgeelhaar/finplan/internal/llm"
)

// AIHandler proxies budgeting questions to the advisor
type AIHandler struct {
	advisor *advisor.Advisor
}

// NewAIHandler creates a new AI handler
func NewAIHandler(a *advisor.Advisor) *AIHandler {
	return &AIHandler{advisor: a}
}

// BudgetAdviceRequest is the request body for budget advice
type BudgetAdviceRequest struct {
	MonthlyIncome *float64 `json:"monthlyIncome"`
	FixedCosts    *float64 `json:"fixedCosts"`
	SavingsGoal   *float64 `json:"savingsGoal"`
}

// ChatMessage is one turn of a chat transcript
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatContextRequest carries optional figures for the system prompt
type ChatContextRequest struct {
	MonthlyIncome *float64 `json:"monthlyIncome"`
	FixedCosts    *float64 `json:"fixedCosts"`
	SavingsGoal   *float64 `json:"savingsGoal"`
	Locale        string   `json:"locale"`
}

// ChatRequest is the request body for chat
type ChatRequest struct {
	Messages []ChatMessage       `json:"messages"`
	Context  *ChatContextRequest `json:"context"`
}

// BudgetAdvice returns three budgeting tips
func (h *AIHandler) BudgetAdvice(w http.ResponseWriter, r *http.Request) {
	var req BudgetAdviceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.InvalidBody(w, r, err)
		return
	}
	if req.MonthlyIncome == nil || req.FixedCosts == nil || req.SavingsGoal == nil {
		respond.InvalidBody(w, r, nil)
		return
	}

	advice, err := h.advisor.BudgetAdvice(r.Context(), advisor.BudgetInput{
		MonthlyIncome: *req.MonthlyIncome,
		FixedCosts:    *req.FixedCosts,
		SavingsGoal:   *req.SavingsGoal,
	})
	if err != nil {
		respond.Internal(w, r, "OpenAI request failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"advice": advice})
}

// Chat answers a conversation in Korean
func (h *AIHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.InvalidBody(w, r, err)
		return
	}
	if req.Messages == nil {
		respond.InvalidBody(w, r, nil)
		return
	}

	in := advisor.ChatInput{Messages: make([]llm.Message, len(req.Messages))}
	for i, m := range req.Messages {
		in.Messages[i] = llm.Message{Role: llm.Role(m.Role), Content: m.Content}
	}
	if c := req.Context; c != nil {
		in.Context = &advisor.ChatContext{
			MonthlyIncome: c.MonthlyIncome,
			FixedCosts:    c.FixedCosts,
			SavingsGoal:   c.SavingsGoal,
			Locale:        c.Locale,
		}
	}

	reply, err := h.advisor.Chat(r.Context(), in)
	if errors.Is(err, domain.ErrInvalidInput) {
		respond.InvalidBody(w, r, err)
		return
	}
	if err != nil {
		respond.Internal(w, r, "AI chat failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"reply": reply})
}

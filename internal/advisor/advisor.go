// Package advisor turns budget figures and chat transcripts into LLM prompts.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/felixgeelhaar/finplan/internal/domain"
	"github.com/felixgeelhaar/finplan/internal/llm"
)

const (
	// DefaultLocale formats reference amounts when the caller sends none
	DefaultLocale = "ko-KR"

	chatTemperature = 0.5
)

var systemLines = []string{
	"당신은 대한민국 사용자를 돕는 재무 가이드입니다.",
	"- 반드시 한국어로 답변하세요.",
	"- 금액은 KRW(₩)로, 예: ₩1,001,000.",
	"- 표는 사용자가 원할 때만 간결하게 제시하세요.",
}

// BudgetInput holds the figures for a one-shot budgeting tip
type BudgetInput struct {
	MonthlyIncome float64
	FixedCosts    float64
	SavingsGoal   float64
}

// ChatContext carries optional figures appended to the system prompt
type ChatContext struct {
	MonthlyIncome *float64
	FixedCosts    *float64
	SavingsGoal   *float64
	Locale        string
}

// ChatInput is a conversation plus optional context
type ChatInput struct {
	Messages []llm.Message
	Context  *ChatContext
}

// Validate checks roles, non-empty content and non-negative figures
func (in ChatInput) Validate() error {
	for i, m := range in.Messages {
		if !m.Role.Valid() {
			return fmt.Errorf("%w: message %d has role %q", domain.ErrInvalidInput, i, m.Role)
		}
		if m.Content == "" {
			return fmt.Errorf("%w: message %d is empty", domain.ErrInvalidInput, i)
		}
	}
	if c := in.Context; c != nil {
		for _, v := range []*float64{c.MonthlyIncome, c.FixedCosts, c.SavingsGoal} {
			if v != nil && *v < 0 {
				return fmt.Errorf("%w: context amounts must not be negative", domain.ErrInvalidInput)
			}
		}
	}
	return nil
}

// Advisor asks an LLM for budgeting help
type Advisor struct {
	provider llm.Provider
	logger   *slog.Logger
}

// New creates an advisor on provider
func New(provider llm.Provider, logger *slog.Logger) *Advisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Advisor{provider: provider, logger: logger}
}

// BudgetAdvice returns three short budgeting tips for the given figures
func (a *Advisor) BudgetAdvice(ctx context.Context, in BudgetInput) (string, error) {
	prompt := fmt.Sprintf(
		"Give concise budgeting advice for a user. Income: %s, fixed costs: %s, target monthly savings: %s. Return 3 bullet points.",
		plain(in.MonthlyIncome), plain(in.FixedCosts), plain(in.SavingsGoal),
	)

	resp, err := a.provider.Generate(ctx, &llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("budget advice: %w", err)
	}
	a.logger.Debug("budget advice generated",
		"provider", a.provider.Name(),
		"output_tokens", resp.Usage.OutputTokens,
	)
	return resp.Content, nil
}

// Chat answers the latest turn of a conversation in Korean
func (a *Advisor) Chat(ctx context.Context, in ChatInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}

	resp, err := a.provider.Generate(ctx, &llm.Request{
		System:      systemPrompt(in.Context),
		Messages:    in.Messages,
		Temperature: chatTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	a.logger.Debug("chat reply generated",
		"provider", a.provider.Name(),
		"turns", len(in.Messages),
		"output_tokens", resp.Usage.OutputTokens,
	)
	return resp.Content, nil
}

// systemPrompt joins the fixed guidance with a reference block for any
// figures present in c.
func systemPrompt(c *ChatContext) string {
	var b strings.Builder
	b.WriteString(strings.Join(systemLines, "\n"))

	if c == nil {
		return b.String()
	}

	p := printer(c.Locale)
	var refs []string
	add := func(label string, v *float64) {
		if v != nil {
			refs = append(refs, label+": ₩"+formatAmount(p, *v))
		}
	}
	add("월 소득", c.MonthlyIncome)
	add("고정비", c.FixedCosts)
	add("저축 목표", c.SavingsGoal)

	if len(refs) > 0 {
		b.WriteString("\n[참고]\n")
		b.WriteString(strings.Join(refs, "\n"))
	}
	return b.String()
}

func printer(locale string) *message.Printer {
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Korean
	}
	return message.NewPrinter(tag)
}

// formatAmount groups digits per locale and drops fractions
func formatAmount(p *message.Printer, v float64) string {
	return p.Sprint(number.Decimal(v, number.MaxFractionDigits(0)))
}

// plain renders a figure without grouping, trimming a zero fraction
func plain(v float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%.2f", v), ".00")
}

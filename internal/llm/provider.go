package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/gradelens/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize writes a narrative of the metrics snapshot
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for LLM summarization
type SummarizeRequest struct {
	// Snapshot is the metrics snapshot to describe
	Snapshot model.Snapshot

	// Title names the analysed dataset in the prompt
	Title string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// SummarizeResponse contains the LLM's summary output
type SummarizeResponse struct {
	Summary    string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai" or "" (disabled)
	Provider string

	// Model name (provider-specific)
	Model string

	APIKey string

	// BaseURL for OpenAI-compatible endpoints (local gateways, proxies)
	BaseURL string

	// Timeout for API requests, in seconds
	Timeout int

	MaxTokens int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   30,
		MaxTokens: 800,
	}
}

// maxPromptQuestions caps the per-question lines sent to the model
const maxPromptQuestions = 20

// BuildPrompt constructs the default prompt for a snapshot
func BuildPrompt(snap model.Snapshot, title string) string {
	if title == "" {
		title = "grading dataset"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `You are summarizing agreement statistics between LLM-assigned scores and human TA scores for %q.
The numbers below are final. Describe them; do not recompute, round differently, or invent values.

RULES:
1. Only refer to question IDs that appear in the per-question list.
2. Treat "N/A" as "not enough data", never as zero.
3. Flags mark items for human review. Do not say any grade is right or wrong.

Global metrics:
- Items: %d (%d students, %d questions)
- MAE: %s, RMSE: %s, MAPE: %s%%
- Mean bias (LLM - TA): %s, std of error: %s
- Pearson r: %s, Spearman rho: %s
- Flagged for review: %d (%s%%)

Per-question:
`, title,
		snap.TotalItems, snap.TotalStudents, snap.TotalQuestions,
		snap.MAE.Format(3), snap.RMSE.Format(3), snap.MAPE.Format(2),
		snap.Bias.Format(3), snap.StdError.Format(3),
		snap.PearsonR.Format(3), snap.SpearmanR.Format(3),
		snap.FlagCount, snap.FlagPercent.Format(1))

	for i, q := range snap.Questions {
		if i >= maxPromptQuestions {
			fmt.Fprintf(&b, "... and %d more questions\n", len(snap.Questions)-maxPromptQuestions)
			break
		}
		fmt.Fprintf(&b, "- %s: n=%d, MAE %s, max %s, flagged %d\n", q.QuestionID, q.Count, q.MAE.Format(2), q.MaxAbsError.Format(2), q.FlagCount)
	}

	if len(snap.Signals) > 0 {
		b.WriteString("\nKey signals:\n")
		for _, sig := range snap.Signals {
			fmt.Fprintf(&b, "- %s: %s\n", sig.Type, sig.Description)
		}
	}

	b.WriteString("\nProvide a 4-6 sentence summary for the course staff, then up to three concrete next steps as a bullet list.")
	return b.String()
}

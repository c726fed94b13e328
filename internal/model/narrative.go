package model

// LLMSummary is an optional narrative of a snapshot written by a language
// model. It is rendered separately and never feeds back into metrics or
// flags.
type LLMSummary struct {
	Enabled   bool     `json:"enabled"`
	Provider  string   `json:"provider,omitempty"`
	Model     string   `json:"model,omitempty"`
	SummaryMD string   `json:"summary_md,omitempty"`
	Warnings  []string `json:"warnings,omitempty"` // provider errors, token usage
}

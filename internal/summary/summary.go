// Package summary condenses long digest bodies with a language model.
package summary

import (
	"context"
	"fmt"
	"time"
)

type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// New picks a backend by kind. An empty kind disables summarizing and returns
// a nil Summarizer.
func New(kind, baseURL, apiKey, prompt, model string, timeout time.Duration) (Summarizer, error) {
	switch kind {
	case "":
		return nil, nil
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("ai_key is required when ai_type is %q", kind)
		}
		return NewOpenAISummarizer(baseURL, apiKey, prompt, model, timeout), nil
	case "ollama":
		if baseURL == "" {
			return nil, fmt.Errorf("ai_base_url is required when ai_type is %q", kind)
		}
		return NewOllamaSummarizer(baseURL, prompt, model, timeout), nil
	default:
		return nil, fmt.Errorf("unknown ai_type %q", kind)
	}
}

package classify

import (
	"context"
	"fmt"

	"github.com/TobiSchelling/hltvscan/internal/llm"
)

const classifyPrompt = `You are a content moderation classifier for gaming forum posts.

Rate the following post for three mutually exclusive classes and give a
confidence between 0.0 and 1.0 for each. The three confidences must sum to 1.0.

- hate_speech: attacks or demeans a group based on protected attributes
- offensive_language: insults, slurs or profanity that is not hate speech
- neither: everything else

Post:
%s

Respond with ONLY this JSON:
{"hate_speech": 0.0, "offensive_language": 0.0, "neither": 0.0}`

// LLMClassifier asks a chat model for class confidences.
type LLMClassifier struct {
	provider  llm.Provider
	maxTokens int
}

// NewLLMClassifier creates a classifier backed by provider.
func NewLLMClassifier(provider llm.Provider) *LLMClassifier {
	return &LLMClassifier{provider: provider, maxTokens: 64}
}

// Classify prompts the model and parses its JSON answer.
func (c *LLMClassifier) Classify(ctx context.Context, text string) ([]ClassScore, error) {
	if c.provider == nil {
		return nil, fmt.Errorf("no LLM provider available")
	}

	resp, err := c.provider.Generate(ctx, fmt.Sprintf(classifyPrompt, text), c.maxTokens)
	if err != nil {
		return nil, err
	}

	var parsed map[string]float64
	if err := llm.DecodeJSON(resp, &parsed); err != nil {
		return nil, err
	}

	classes := make([]ClassScore, 0, len(parsed))
	for _, name := range []string{ClassHateSpeech, ClassOffensive, ClassNeither} {
		if v, ok := parsed[name]; ok {
			classes = append(classes, ClassScore{ClassName: name, Confidence: v})
		}
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("model response has no known classes: %q", resp)
	}
	return classes, nil
}

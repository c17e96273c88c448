package classify

import (
	"fmt"
	"strings"
	"time"

	"github.com/TobiSchelling/hltvscan/internal/config"
	"github.com/TobiSchelling/hltvscan/internal/llm"
)

// New builds the Scorer selected by cfg.Provider.
func New(cfg config.Classifier, timeout time.Duration) (*Scorer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "sonar":
		if cfg.SonarURL == "" {
			return nil, fmt.Errorf("classifier: sonar_url is not set")
		}
		return NewScorer(NewSonarClient(cfg.SonarURL, timeout)), nil
	case "ollama", "openai":
		p := llm.CreateProvider(cfg.Provider, cfg.Model, cfg.OllamaURL, cfg.OpenAIModel, cfg.APIKeyEnv, timeout)
		if p == nil {
			return nil, fmt.Errorf("classifier: no LLM provider available for %q", cfg.Provider)
		}
		return NewScorer(NewLLMClassifier(p)), nil
	default:
		return nil, fmt.Errorf("classifier: unknown provider %q", cfg.Provider)
	}
}

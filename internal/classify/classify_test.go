package classify

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TobiSchelling/hltvscan/internal/config"
)

// mockClassifier implements Classifier for testing.
type mockClassifier struct {
	classes []ClassScore
	err     error
	got     string
}

func (m *mockClassifier) Classify(_ context.Context, text string) ([]ClassScore, error) {
	m.got = text
	return m.classes, m.err
}

// mockProvider implements llm.Provider for testing.
type mockProvider struct {
	response string
	err      error
}

func (m *mockProvider) Generate(_ context.Context, _ string, _ int) (string, error) {
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

func TestExtractUnordered(t *testing.T) {
	s := Extract([]ClassScore{
		{ClassName: ClassNeither, Confidence: 0.2},
		{ClassName: ClassOffensive, Confidence: 0.7},
		{ClassName: ClassHateSpeech, Confidence: 0.1},
	})
	if s.Hate != 0.1 || s.Offensive != 0.7 {
		t.Errorf("unexpected scores: %+v", s)
	}
}

func TestExtractMissingClasses(t *testing.T) {
	s := Extract([]ClassScore{{ClassName: ClassNeither, Confidence: 1}})
	if s.Hate != 0 || s.Offensive != 0 {
		t.Errorf("expected zero scores for absent classes, got %+v", s)
	}
	if s := Extract(nil); s != (Scores{}) {
		t.Errorf("expected zero scores for empty result, got %+v", s)
	}
}

func TestExtractClamps(t *testing.T) {
	s := Extract([]ClassScore{
		{ClassName: ClassHateSpeech, Confidence: 1.7},
		{ClassName: ClassOffensive, Confidence: -0.3},
	})
	if s.Hate != 1 || s.Offensive != 0 {
		t.Errorf("expected clamped scores, got %+v", s)
	}
	if s := Extract([]ClassScore{{ClassName: ClassHateSpeech, Confidence: math.NaN()}}); s.Hate != 0 {
		t.Errorf("expected NaN to score 0, got %v", s.Hate)
	}
}

func TestScorerWrapsErrors(t *testing.T) {
	scorer := NewScorer(&mockClassifier{err: errors.New("service down")})
	s, err := scorer.Score(context.Background(), "text")
	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if s != (Scores{}) {
		t.Errorf("expected zero scores on error, got %+v", s)
	}
}

func TestScorerPassesText(t *testing.T) {
	m := &mockClassifier{classes: []ClassScore{{ClassName: ClassHateSpeech, Confidence: 0.4}}}
	s, err := NewScorer(m).Score(context.Background(), "nabaski: gg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.got != "nabaski: gg" {
		t.Errorf("expected text to be passed through, got %q", m.got)
	}
	if s.Hate != 0.4 {
		t.Errorf("expected hate 0.4, got %v", s.Hate)
	}
}

func TestSonarClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "x", "top_class": "offensive_language", "classes": [
			{"class_name": "hate_speech", "confidence": 0.05},
			{"class_name": "offensive_language", "confidence": 0.9},
			{"class_name": "neither", "confidence": 0.05}]}`))
	}))
	defer srv.Close()

	s, err := NewScorer(NewSonarClient(srv.URL, time.Second)).Score(context.Background(), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Hate != 0.05 || s.Offensive != 0.9 {
		t.Errorf("unexpected scores: %+v", s)
	}
}

func TestSonarClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/down":
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		case "/garbage":
			w.Write([]byte("<html>"))
		default:
			w.Write([]byte(`{"classes": []}`))
		}
	}))
	defer srv.Close()

	for _, path := range []string{"/down", "/garbage", "/empty"} {
		c := NewSonarClient(srv.URL+path, time.Second)
		if _, err := c.Classify(context.Background(), "x"); err == nil {
			t.Errorf("%s: expected error", path)
		}
	}
}

func TestLLMClassifier(t *testing.T) {
	c := NewLLMClassifier(&mockProvider{
		response: "```json\n{\"hate_speech\": 0.6, \"offensive_language\": 0.3, \"neither\": 0.1}\n```",
	})
	s, err := NewScorer(c).Score(context.Background(), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Hate != 0.6 || s.Offensive != 0.3 {
		t.Errorf("unexpected scores: %+v", s)
	}
}

func TestLLMClassifierMalformed(t *testing.T) {
	for _, resp := range []string{"I cannot help with that.", `{"toxicity": 0.9}`} {
		c := NewLLMClassifier(&mockProvider{response: resp})
		if _, err := c.Classify(context.Background(), "x"); err == nil {
			t.Errorf("expected error for response %q", resp)
		}
	}

	if _, err := NewLLMClassifier(nil).Classify(context.Background(), "x"); err == nil {
		t.Error("expected error without provider")
	}
}

func TestNewFromConfig(t *testing.T) {
	if _, err := New(config.Classifier{Provider: "sonar", SonarURL: "http://localhost:5000/ping"}, time.Second); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := New(config.Classifier{Provider: "sonar"}, time.Second); err == nil {
		t.Error("expected error without sonar_url")
	}
	if _, err := New(config.Classifier{Provider: "magic"}, time.Second); err == nil {
		t.Error("expected error for unknown provider")
	}
}

package safety_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/require"

	"github.com/davidbz/governor/internal/domain"
	"github.com/davidbz/governor/internal/safety"
)

func TestPatternClassifier_Classify(t *testing.T) {
	ctx := context.Background()
	classifier := safety.NewPatternClassifier()
	categories := safety.DefaultCategories()

	tests := []struct {
		name     string
		text     string
		expected map[string]float64
	}{
		{name: "clean text", text: "Summarize this quarterly report.", expected: map[string]float64{}},
		{name: "violence", text: "He threatened to shoot", expected: map[string]float64{safety.CategoryViolence: 0.8}},
		{name: "killer", text: "the killer is here", expected: map[string]float64{safety.CategoryViolence: 0.8}},
		{name: "serial killer", text: "he is a serial killer", expected: map[string]float64{safety.CategoryViolence: 0.8}},
		{name: "killing", text: "killing time", expected: map[string]float64{safety.CategoryViolence: 0.8}},
		{name: "stabbed", text: "he was stabbed twice", expected: map[string]float64{safety.CategoryViolence: 0.8}},
		{name: "words containing verbs stay clean", text: "a stable build needs skill", expected: map[string]float64{}},
		{name: "self harm", text: "thinking about suicide", expected: map[string]float64{safety.CategorySelfHarm: 0.9}},
		{
			name: "several categories",
			text: "buy now! call 555-123-4567",
			expected: map[string]float64{
				safety.CategorySpam:             0.5,
				safety.CategoryPrivacyViolation: 0.7,
			},
		},
		{name: "misinformation", text: "the earth is flat", expected: map[string]float64{safety.CategoryMisinformation: 0.6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := classifier.Classify(ctx, tt.text, categories)

			require.NoError(t, err)
			require.Equal(t, tt.expected, result.Scores)
			require.InDelta(t, 0.6, result.Confidence, 1e-9)

			var highest float64
			for _, s := range tt.expected {
				highest = max(highest, s)
			}
			require.InDelta(t, highest, result.OverallRisk, 1e-9)
		})
	}

	t.Run("only the given categories are scored", func(t *testing.T) {
		only := []domain.SafetyCategory{{Name: safety.CategorySpam, Severity: domain.RiskLow, Enabled: true}}

		result, err := classifier.Classify(ctx, "kill it, click here", only)

		require.NoError(t, err)
		require.Equal(t, map[string]float64{safety.CategorySpam: 0.5}, result.Scores)
	})

	t.Run("custom patterns use the category score", func(t *testing.T) {
		custom := []domain.SafetyCategory{{
			Name:     "secrets",
			Severity: domain.RiskHigh,
			Enabled:  true,
			Patterns: []string{`(?i)api[_-]?key`},
		}}

		result, err := classifier.Classify(ctx, "here is my API_KEY", custom)

		require.NoError(t, err)
		require.InDelta(t, 0.7, result.Scores["secrets"], 1e-9)
	})
}

const moderationResponse = `{
  "id": "modr-123",
  "model": "omni-moderation-latest",
  "results": [{
    "flagged": true,
    "categories": {"violence": true},
    "category_scores": {
      "harassment": 0.01,
      "harassment/threatening": 0.02,
      "hate": 0.001,
      "hate/threatening": 0.0,
      "illicit": 0.0,
      "illicit/violent": 0.0,
      "self-harm": 0.0,
      "self-harm/instructions": 0.0,
      "self-harm/intent": 0.0,
      "sexual": 0.0,
      "sexual/minors": 0.0,
      "violence": 0.93,
      "violence/graphic": 0.4
    }
  }]
}`

func newModerationServer(t *testing.T, status int, body string) (*httptest.Server, *[]map[string]interface{}) {
	t.Helper()

	var requests []map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/moderations"), r.URL.Path)

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &payload))
		requests = append(requests, payload)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return server, &requests
}

func TestModerationClassifier_Classify(t *testing.T) {
	ctx := context.Background()

	t.Run("requires an api key", func(t *testing.T) {
		_, err := safety.NewModerationClassifier(safety.ModerationConfig{})
		require.Error(t, err)
	})

	t.Run("maps moderation scores and falls back to patterns", func(t *testing.T) {
		server, requests := newModerationServer(t, http.StatusOK, moderationResponse)

		classifier, err := safety.NewModerationClassifier(safety.ModerationConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
			Model:   "omni-moderation-latest",
		}, option.WithMaxRetries(0))
		require.NoError(t, err)
		require.Equal(t, safety.ClassifierOpenAI, classifier.Name())

		result, err := classifier.Classify(ctx, "I will hurt them, mail me at a@b.com", safety.DefaultCategories())

		require.NoError(t, err)
		require.InDelta(t, 0.93, result.Scores[safety.CategoryViolence], 1e-9)
		require.InDelta(t, 0.02, result.Scores[safety.CategoryHarassment], 1e-9)
		require.InDelta(t, 0.7, result.Scores[safety.CategoryPrivacyViolation], 1e-9)
		require.NotContains(t, result.Scores, safety.CategorySelfHarm)
		require.InDelta(t, 0.93, result.OverallRisk, 1e-9)
		require.InDelta(t, 0.9, result.Confidence, 1e-9)

		require.Len(t, *requests, 1)
		require.Equal(t, "omni-moderation-latest", (*requests)[0]["model"])
		require.Equal(t, "I will hurt them, mail me at a@b.com", (*requests)[0]["input"])
	})

	t.Run("evaluator uses the moderation verdict", func(t *testing.T) {
		server, _ := newModerationServer(t, http.StatusOK, moderationResponse)

		classifier, err := safety.NewModerationClassifier(safety.ModerationConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		}, option.WithMaxRetries(0))
		require.NoError(t, err)

		evaluator, err := safety.NewEvaluator(nil, classifier, nil)
		require.NoError(t, err)

		result := evaluator.EvaluatePrompt(ctx, "req", "I will hurt them")

		require.False(t, result.IsSafe)
		require.Equal(t, safety.ClassifierOpenAI, result.Evaluator)
		require.Equal(t, []domain.SafetyAction{domain.ActionBlock}, actionsOf(result))
		require.Equal(t, "high risk detected", result.Actions[0].Reason)
	})

	t.Run("api errors become a conservative verdict", func(t *testing.T) {
		server, _ := newModerationServer(t, http.StatusBadRequest, `{"error":{"message":"bad input","type":"invalid_request_error"}}`)

		classifier, err := safety.NewModerationClassifier(safety.ModerationConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		}, option.WithMaxRetries(0))
		require.NoError(t, err)

		_, err = classifier.Classify(ctx, "text", safety.DefaultCategories())
		require.Error(t, err)

		evaluator, err := safety.NewEvaluator(nil, classifier, nil)
		require.NoError(t, err)

		result := evaluator.EvaluateGeneration(ctx, "req", "text")
		require.Equal(t, []string{safety.CategoryEvaluationError}, result.TriggeredCategories)
		require.Equal(t, []domain.SafetyAction{domain.ActionBlock}, actionsOf(result))
	})
}

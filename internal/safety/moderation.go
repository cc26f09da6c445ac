package safety

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/davidbz/governor/internal/domain"
	"github.com/davidbz/governor/internal/observability"
)

const moderationConfidence = 0.9

// ModerationClassifier scores text with the OpenAI moderation endpoint.
// Categories the endpoint does not cover are delegated to a pattern classifier.
type ModerationClassifier struct {
	client   openai.Client
	model    string
	fallback *PatternClassifier
}

// NewModerationClassifier creates a moderation-backed classifier. Extra request
// options are applied after the configured ones.
func NewModerationClassifier(cfg ModerationConfig, opts ...option.RequestOption) (*ModerationClassifier, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required for the moderation classifier")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(time.Duration(cfg.Timeout)*time.Second))
	}
	reqOpts = append(reqOpts, opts...)

	model := cfg.Model
	if model == "" {
		model = string(openai.ModerationModelOmniModerationLatest)
	}

	return &ModerationClassifier{
		client:   openai.NewClient(reqOpts...),
		model:    model,
		fallback: NewPatternClassifier(),
	}, nil
}

// Name returns the classifier identifier.
func (c *ModerationClassifier) Name() string {
	return ClassifierOpenAI
}

// Classify calls the moderation endpoint and merges its scores with pattern
// hits for the remaining categories.
func (c *ModerationClassifier) Classify(
	ctx context.Context,
	text string,
	categories []domain.SafetyCategory,
) (*Classification, error) {
	resp, err := c.client.Moderations.New(ctx, openai.ModerationNewParams{
		Input: openai.ModerationNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.ModerationModel(c.model),
	})
	if err != nil {
		return nil, fmt.Errorf("moderation request failed: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, errors.New("moderation response has no results")
	}

	moderated := moderationScores(resp.Results[0].CategoryScores)

	var rest []domain.SafetyCategory
	result := &Classification{
		Scores:     make(map[string]float64),
		Confidence: moderationConfidence,
	}
	for _, category := range categories {
		if !category.Enabled {
			continue
		}
		score, covered := moderated[category.Name]
		if !covered {
			rest = append(rest, category)
			continue
		}
		if score > 0 {
			result.Scores[category.Name] = score
			result.OverallRisk = max(result.OverallRisk, score)
		}
	}

	if len(rest) > 0 {
		patterned, err := c.fallback.Classify(ctx, text, rest)
		if err != nil {
			return nil, err
		}
		for name, score := range patterned.Scores {
			result.Scores[name] = score
			result.OverallRisk = max(result.OverallRisk, score)
		}
	}

	observability.FromContext(ctx).Debug("moderation classified content",
		observability.Bool("flagged", resp.Results[0].Flagged),
		observability.Float64("overall_risk", result.OverallRisk))

	return result, nil
}

// moderationScores maps the endpoint's categories onto the default category names.
func moderationScores(s openai.ModerationCategoryScores) map[string]float64 {
	return map[string]float64{
		CategoryHateSpeech:      max(s.Hate, s.HateThreatening),
		CategoryHarassment:      max(s.Harassment, s.HarassmentThreatening),
		CategoryViolence:        max(s.Violence, s.ViolenceGraphic),
		CategorySexualContent:   max(s.Sexual, s.SexualMinors),
		CategorySelfHarm:        max(s.SelfHarm, s.SelfHarmInstructions, s.SelfHarmIntent),
		CategoryIllegalActivity: max(s.Illicit, s.IllicitViolent),
	}
}

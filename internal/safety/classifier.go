package safety

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/davidbz/governor/internal/domain"
)

const (
	patternConfidence   = 0.6
	defaultPatternScore = 0.7
)

// Classification is a classifier's raw verdict.
type Classification struct {
	// Scores maps category names to a score in [0,1]; absent means zero.
	Scores      map[string]float64
	OverallRisk float64
	Confidence  float64
}

// Classifier scores text against a set of categories.
type Classifier interface {
	// Name identifies the classifier in results.
	Name() string

	// Classify scores text against the given categories only.
	Classify(ctx context.Context, text string, categories []domain.SafetyCategory) (*Classification, error)
}

// PatternClassifier flags categories by regular-expression hits.
type PatternClassifier struct {
	mu       sync.RWMutex
	compiled map[string]*regexp.Regexp
}

// NewPatternClassifier creates a pattern classifier.
func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{
		compiled: make(map[string]*regexp.Regexp),
	}
}

// Name returns the classifier identifier.
func (c *PatternClassifier) Name() string {
	return ClassifierPattern
}

// Classify scores every enabled category whose patterns match text.
func (c *PatternClassifier) Classify(
	_ context.Context,
	text string,
	categories []domain.SafetyCategory,
) (*Classification, error) {
	result := &Classification{
		Scores:     make(map[string]float64),
		Confidence: patternConfidence,
	}

	for _, category := range categories {
		if !category.Enabled {
			continue
		}

		matched, score, err := c.match(text, category)
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}

		result.Scores[category.Name] = score
		result.OverallRisk = max(result.OverallRisk, score)
	}

	return result, nil
}

// Compile validates a category's custom patterns.
func (c *PatternClassifier) Compile(category domain.SafetyCategory) error {
	for _, expr := range category.Patterns {
		if _, err := c.pattern(expr); err != nil {
			return err
		}
	}
	return nil
}

func (c *PatternClassifier) match(text string, category domain.SafetyCategory) (bool, float64, error) {
	rule, builtin := builtinRules[category.Name]

	score := category.MatchScore
	if score == 0 {
		score = defaultPatternScore
		if builtin {
			score = rule.score
		}
	}

	for _, re := range rule.patterns {
		if re.MatchString(text) {
			return true, score, nil
		}
	}

	for _, expr := range category.Patterns {
		re, err := c.pattern(expr)
		if err != nil {
			return false, 0, err
		}
		if re.MatchString(text) {
			return true, score, nil
		}
	}

	return false, 0, nil
}

func (c *PatternClassifier) pattern(expr string) (*regexp.Regexp, error) {
	c.mu.RLock()
	re, ok := c.compiled[expr]
	c.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}

	c.mu.Lock()
	c.compiled[expr] = re
	c.mu.Unlock()

	return re, nil
}

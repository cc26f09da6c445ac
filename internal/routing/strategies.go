package routing

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/davidbz/governor/internal/domain"
)

// Built-in strategy names.
const (
	StrategyQualityFirst   = "quality_first"
	StrategyCostOptimized  = "cost_optimized"
	StrategyBalanced       = "balanced"
	StrategySpeedFirst     = "speed_first"
	StrategySafetyCritical = "safety_critical"
)

const weightSumTolerance = 1e-9

//go:embed strategies.yaml
var defaultStrategiesYAML []byte

//nolint:gochecknoglobals // names every strategy table must define
var requiredStrategies = []string{
	StrategyQualityFirst,
	StrategyCostOptimized,
	StrategyBalanced,
	StrategySpeedFirst,
	StrategySafetyCritical,
}

// Weights is a strategy's weight vector over the five score axes.
type Weights struct {
	Quality      float64 `yaml:"quality"`
	Cost         float64 `yaml:"cost"`
	Latency      float64 `yaml:"latency"`
	Safety       float64 `yaml:"safety"`
	Availability float64 `yaml:"availability"`
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.Quality + w.Cost + w.Latency + w.Safety + w.Availability
}

// Dot returns the weighted sum of the axis scores.
func (w Weights) Dot(s domain.AxisScores) float64 {
	return w.Quality*s.Quality +
		w.Cost*s.Cost +
		w.Latency*s.Latency +
		w.Safety*s.Safety +
		w.Availability*s.Availability
}

func (w Weights) nonNegative() bool {
	return w.Quality >= 0 && w.Cost >= 0 && w.Latency >= 0 && w.Safety >= 0 && w.Availability >= 0
}

// Strategy is a named, immutable weighting policy.
type Strategy struct {
	Name          string  `yaml:"name"`
	Weights       Weights `yaml:"weights"`
	AllowFallback bool    `yaml:"allow_fallback"`
	BudgetAware   bool    `yaml:"budget_aware"`
}

type strategyFile struct {
	Strategies []Strategy `yaml:"strategies"`
}

// StrategySet is a validated table of strategies.
type StrategySet struct {
	byName map[string]Strategy
}

// DefaultStrategies returns the built-in strategy table.
func DefaultStrategies() *StrategySet {
	set, err := ParseStrategies(defaultStrategiesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded strategies are invalid: %v", err))
	}
	return set
}

// LoadStrategies reads a strategy table from path, or the built-in table when path is empty.
func LoadStrategies(path string) (*StrategySet, error) {
	if path == "" {
		return DefaultStrategies(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategies file: %w", err)
	}

	return ParseStrategies(data)
}

// ParseStrategies decodes and validates a YAML strategy table.
func ParseStrategies(data []byte) (*StrategySet, error) {
	var file strategyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, domain.NewError(domain.KindInvalidConfig, "failed to parse strategies", err)
	}

	if len(file.Strategies) == 0 {
		return nil, domain.NewError(domain.KindInvalidConfig, "no strategies defined", nil)
	}

	set := &StrategySet{byName: make(map[string]Strategy, len(file.Strategies))}
	expectedSum := file.Strategies[0].Weights.Sum()

	for _, s := range file.Strategies {
		if s.Name == "" {
			return nil, domain.NewError(domain.KindInvalidConfig, "strategy name cannot be empty", nil)
		}
		if _, dup := set.byName[s.Name]; dup {
			return nil, domain.NewError(domain.KindInvalidConfig, fmt.Sprintf("duplicate strategy %q", s.Name), nil)
		}
		if !s.Weights.nonNegative() {
			return nil, domain.NewError(domain.KindInvalidConfig, fmt.Sprintf("strategy %q has negative weights", s.Name), nil)
		}
		if math.Abs(s.Weights.Sum()-expectedSum) > weightSumTolerance {
			return nil, domain.NewError(domain.KindInvalidConfig,
				fmt.Sprintf("strategy %q weights sum to %v, expected %v", s.Name, s.Weights.Sum(), expectedSum), nil)
		}
		set.byName[s.Name] = s
	}

	var missing []string
	for _, name := range requiredStrategies {
		if _, ok := set.byName[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, domain.NewError(domain.KindInvalidConfig,
			fmt.Sprintf("missing required strategies %v", missing), errors.New("incomplete strategy table"))
	}

	return set, nil
}

// Resolve returns the named strategy. Unknown names resolve to balanced.
func (s *StrategySet) Resolve(name string) Strategy {
	if strategy, ok := s.byName[name]; ok {
		return strategy
	}
	return s.byName[StrategyBalanced]
}

// Names returns every strategy name in lexical order.
func (s *StrategySet) Names() []string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package ranking

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// FollowingWeights defines the component weights for the following feed
// section.
type FollowingWeights struct {
	Base            float64 `json:"base"`            // engagement base (default: 0.3)
	Recency         float64 `json:"recency"`         // tiered recency (default: 0.4)
	Interaction     float64 `json:"interaction"`     // trending interaction (default: 0.2)
	Personalization float64 `json:"personalization"` // preference match (default: 0.1)
}

// RecommendedWeights defines the component weights for the recommended feed
// section.
type RecommendedWeights struct {
	Base     float64 `json:"base"`     // engagement base (default: 0.2)
	Recency  float64 `json:"recency"`  // tiered recency (default: 0.2)
	Interest float64 `json:"interest"` // interest-graph author score (default: 0.5)
	Trending float64 `json:"trending"` // raw trending score (default: 0.1)
}

// DiscoverWeights defines the component weights for the discover feed
// section.
type DiscoverWeights struct {
	Random  float64 `json:"random"`  // random component (default: 0.7)
	Recency float64 `json:"recency"` // tiered recency (default: 0.3)
}

// Weights holds all ranking weight configurations.
type Weights struct {
	Following   FollowingWeights   `json:"following"`
	Recommended RecommendedWeights `json:"recommended"`
	Discover    DiscoverWeights    `json:"discover"`
}

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string  `json:"version"`
	Weights Weights `json:"weights"`
}

// DefaultWeights returns the default ranking weight configuration.
//
// Following formula: 0.3*base + 0.4*recency + 0.2*interaction + 0.1*personalization
// Recommended formula: 0.2*base + 0.2*recency + 0.5*interest + 0.1*trending
// Discover formula: 0.7*random + 0.3*recency
func DefaultWeights() *Weights {
	return &Weights{
		Following: FollowingWeights{
			Base:            0.3,
			Recency:         0.4,
			Interaction:     0.2,
			Personalization: 0.1,
		},
		Recommended: RecommendedWeights{
			Base:     0.2,
			Recency:  0.2,
			Interest: 0.5,
			Trending: 0.1,
		},
		Discover: DiscoverWeights{
			Random:  0.7,
			Recency: 0.3,
		},
	}
}

// LoadCalibration loads ranking weights from a JSON calibration file.
// Partial configurations are merged with defaults. On any error the defaults
// are returned alongside the error so callers degrade gracefully.
func LoadCalibration(filePath string) (*Weights, error) {
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultWeights()
	merged := MergeCalibration(defaults, &config.Weights)
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration merges override weights onto base weights. Only non-zero
// override values are applied, so a calibration file may override a subset.
func MergeCalibration(base *Weights, override *Weights) *Weights {
	if base == nil {
		return DefaultWeights()
	}
	if override == nil {
		result := *base
		return &result
	}

	result := *base

	if override.Following.Base != 0 {
		result.Following.Base = override.Following.Base
	}
	if override.Following.Recency != 0 {
		result.Following.Recency = override.Following.Recency
	}
	if override.Following.Interaction != 0 {
		result.Following.Interaction = override.Following.Interaction
	}
	if override.Following.Personalization != 0 {
		result.Following.Personalization = override.Following.Personalization
	}

	if override.Recommended.Base != 0 {
		result.Recommended.Base = override.Recommended.Base
	}
	if override.Recommended.Recency != 0 {
		result.Recommended.Recency = override.Recommended.Recency
	}
	if override.Recommended.Interest != 0 {
		result.Recommended.Interest = override.Recommended.Interest
	}
	if override.Recommended.Trending != 0 {
		result.Recommended.Trending = override.Recommended.Trending
	}

	if override.Discover.Random != 0 {
		result.Discover.Random = override.Discover.Random
	}
	if override.Discover.Recency != 0 {
		result.Discover.Recency = override.Discover.Recency
	}

	return &result
}

// logCalibrationOverrides logs which weights were overridden from defaults.
func logCalibrationOverrides(defaults *Weights, loaded *Weights) {
	var overrides []string

	add := func(name string, def, got float64) {
		if got != def {
			overrides = append(overrides, fmt.Sprintf("%s: %.2f -> %.2f", name, def, got))
		}
	}

	add("following.base", defaults.Following.Base, loaded.Following.Base)
	add("following.recency", defaults.Following.Recency, loaded.Following.Recency)
	add("following.interaction", defaults.Following.Interaction, loaded.Following.Interaction)
	add("following.personalization", defaults.Following.Personalization, loaded.Following.Personalization)
	add("recommended.base", defaults.Recommended.Base, loaded.Recommended.Base)
	add("recommended.recency", defaults.Recommended.Recency, loaded.Recommended.Recency)
	add("recommended.interest", defaults.Recommended.Interest, loaded.Recommended.Interest)
	add("recommended.trending", defaults.Recommended.Trending, loaded.Recommended.Trending)
	add("discover.random", defaults.Discover.Random, loaded.Discover.Random)
	add("discover.recency", defaults.Discover.Recency, loaded.Discover.Recency)

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)")
	}
}

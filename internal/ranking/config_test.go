package ranking

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultWeights(t *testing.T) {
	w := DefaultWeights()

	if w.Following.Base != 0.3 || w.Following.Recency != 0.4 ||
		w.Following.Interaction != 0.2 || w.Following.Personalization != 0.1 {
		t.Errorf("Unexpected following defaults: %+v", w.Following)
	}
	if w.Recommended.Interest != 0.5 {
		t.Errorf("Expected recommended.interest 0.5, got %v", w.Recommended.Interest)
	}
	if w.Discover.Random != 0.7 || w.Discover.Recency != 0.3 {
		t.Errorf("Unexpected discover defaults: %+v", w.Discover)
	}
}

func TestMergeCalibration(t *testing.T) {
	tests := []struct {
		name     string
		base     *Weights
		override *Weights
		check    func(t *testing.T, w *Weights)
	}{
		{
			name:     "nil base returns defaults",
			base:     nil,
			override: &Weights{},
			check: func(t *testing.T, w *Weights) {
				if w.Following.Base != 0.3 {
					t.Errorf("Expected default base, got %v", w.Following.Base)
				}
			},
		},
		{
			name:     "nil override copies base",
			base:     DefaultWeights(),
			override: nil,
			check: func(t *testing.T, w *Weights) {
				if w.Recommended.Interest != 0.5 {
					t.Errorf("Expected base value kept, got %v", w.Recommended.Interest)
				}
			},
		},
		{
			name: "partial override keeps other fields",
			base: DefaultWeights(),
			override: &Weights{
				Following: FollowingWeights{Recency: 0.6},
			},
			check: func(t *testing.T, w *Weights) {
				if w.Following.Recency != 0.6 {
					t.Errorf("Expected overridden recency 0.6, got %v", w.Following.Recency)
				}
				if w.Following.Base != 0.3 {
					t.Errorf("Expected default base kept, got %v", w.Following.Base)
				}
				if w.Discover.Random != 0.7 {
					t.Errorf("Expected default discover kept, got %v", w.Discover.Random)
				}
			},
		},
		{
			name: "zero values in override are ignored",
			base: DefaultWeights(),
			override: &Weights{
				Recommended: RecommendedWeights{Trending: 0},
			},
			check: func(t *testing.T, w *Weights) {
				if w.Recommended.Trending != 0.1 {
					t.Errorf("Zero override should not apply, got %v", w.Recommended.Trending)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, MergeCalibration(tt.base, tt.override))
		})
	}
}

func TestLoadCalibration_EmptyPath(t *testing.T) {
	w, err := LoadCalibration("")
	if err != nil {
		t.Fatalf("Expected no error for empty path, got %v", err)
	}
	if w.Following.Base != 0.3 {
		t.Errorf("Expected defaults, got %+v", w.Following)
	}
}

func TestLoadCalibration_MissingFile(t *testing.T) {
	w, err := LoadCalibration("/nonexistent/calibration.json")
	if err == nil {
		t.Error("Expected error for missing file")
	}
	if w == nil || w.Following.Base != 0.3 {
		t.Error("Expected default weights on error")
	}
}

func TestLoadCalibration_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calibration.json")
	content := `{
		"version": "1",
		"weights": {
			"following": {"recency": 0.5},
			"discover": {"random": 0.9}
		}
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write calibration file: %v", err)
	}

	w, err := LoadCalibration(path)
	if err != nil {
		t.Fatalf("LoadCalibration failed: %v", err)
	}
	if w.Following.Recency != 0.5 {
		t.Errorf("Expected overridden recency 0.5, got %v", w.Following.Recency)
	}
	if w.Following.Base != 0.3 {
		t.Errorf("Expected default base kept, got %v", w.Following.Base)
	}
	if w.Discover.Random != 0.9 {
		t.Errorf("Expected overridden random 0.9, got %v", w.Discover.Random)
	}
}

func TestLoadCalibration_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	w, err := LoadCalibration(path)
	if err == nil {
		t.Error("Expected parse error")
	}
	if w == nil || w.Recommended.Interest != 0.5 {
		t.Error("Expected default weights on parse error")
	}
}

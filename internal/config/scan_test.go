package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/scanconvert/internal/scanconv"
	"github.com/banshee-data/scanconvert/internal/scanconv/interp"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestEmptyScanConfigDefaults(t *testing.T) {
	cfg := EmptyScanConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty config should validate, got %v", err)
	}
	if cfg.GetPipeline() != string(PipelineInterpolate) {
		t.Errorf("GetPipeline() = %q, want %q", cfg.GetPipeline(), PipelineInterpolate)
	}
	if cfg.GetYSeg() != 17 || cfg.GetXSeg() != 5 {
		t.Errorf("segmentation = %dx%d, want 17x5", cfg.GetYSeg(), cfg.GetXSeg())
	}
	if cfg.GetWeighting() != string(interp.WeightDistance) {
		t.Errorf("GetWeighting() = %q, want distance", cfg.GetWeighting())
	}
	if cfg.GetStrictDegenerate() {
		t.Error("GetStrictDegenerate() = true, want false")
	}
	if cfg.GetWorkers() != 0 {
		t.Errorf("GetWorkers() = %d, want 0", cfg.GetWorkers())
	}
	if cfg.GetLUTCachePath() != "" {
		t.Errorf("GetLUTCachePath() = %q, want empty", cfg.GetLUTCachePath())
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	empty := EmptyScanConfig()

	// The defaults file and the Get* fallbacks must agree.
	if cfg.GetInitialRadius() != empty.GetInitialRadius() {
		t.Errorf("initial_radius: file %v, fallback %v", cfg.GetInitialRadius(), empty.GetInitialRadius())
	}
	if cfg.GetFinalRadius() != empty.GetFinalRadius() {
		t.Errorf("final_radius: file %v, fallback %v", cfg.GetFinalRadius(), empty.GetFinalRadius())
	}
	if cfg.GetInitialAngle() != empty.GetInitialAngle() || cfg.GetFinalAngle() != empty.GetFinalAngle() {
		t.Errorf("angles: file [%v, %v], fallback [%v, %v]",
			cfg.GetInitialAngle(), cfg.GetFinalAngle(), empty.GetInitialAngle(), empty.GetFinalAngle())
	}
	if cfg.Segmentation() != empty.Segmentation() {
		t.Errorf("segmentation: file %+v, fallback %+v", cfg.Segmentation(), empty.Segmentation())
	}
	if cfg.GetPipeline() != empty.GetPipeline() {
		t.Errorf("pipeline: file %q, fallback %q", cfg.GetPipeline(), empty.GetPipeline())
	}
	if cfg.InterpOptions() != empty.InterpOptions() {
		t.Errorf("interp options: file %+v, fallback %+v", cfg.InterpOptions(), empty.InterpOptions())
	}
}

func TestLoadScanConfig(t *testing.T) {
	path := writeConfig(t, "scan.json", `{
  "pipeline": "sparse_warp",
  "initial_radius": 8,
  "final_radius": 72,
  "final_angle": 0.5,
  "y_seg": 9,
  "weighting": "inverse_distance",
  "strict_degenerate": true,
  "workers": 3,
  "spline_regularization": 0.01,
  "lut_cache_path": "/tmp/luts.db"
}`)

	cfg, err := LoadScanConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetPipeline() != string(PipelineSparseWarp) {
		t.Errorf("GetPipeline() = %q", cfg.GetPipeline())
	}
	fan, err := cfg.FanGeometry()
	if err != nil {
		t.Fatalf("FanGeometry: %v", err)
	}
	want := scanconv.FanGeometry{InitialRadius: 8, FinalRadius: 72, InitialAngle: -0.6, FinalAngle: 0.5}
	if fan != want {
		t.Errorf("FanGeometry() = %+v, want %+v", fan, want)
	}
	if seg := cfg.Segmentation(); seg.YSeg != 9 || seg.XSeg != 5 {
		t.Errorf("Segmentation() = %+v, want 9x5", seg)
	}
	opts := cfg.InterpOptions()
	if opts.Weighting != interp.WeightInverseDistance || !opts.StrictDegenerate || opts.Workers != 3 {
		t.Errorf("InterpOptions() = %+v", opts)
	}
	if cfg.GetSplineRegularization() != 0.01 {
		t.Errorf("GetSplineRegularization() = %v", cfg.GetSplineRegularization())
	}
	if cfg.GetLUTCachePath() != "/tmp/luts.db" {
		t.Errorf("GetLUTCachePath() = %q", cfg.GetLUTCachePath())
	}
}

func TestLoadScanConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "scan.yaml", `{}`, ".json extension"},
		{"bad json", "scan.json", `{"initial_radius": "far"`, "parse config JSON"},
		{"unknown pipeline", "scan.json", `{"pipeline": "nearest"}`, "pipeline must be"},
		{"inverted radii", "scan.json", `{"initial_radius": 300}`, "initial_radius"},
		{"sector not straddling", "scan.json", `{"initial_angle": 0.1}`, "straddle"},
		{"small grid", "scan.json", `{"x_seg": 1}`, "at least 2x2"},
		{"bad weighting", "scan.json", `{"weighting": "nearest"}`, "unknown weighting"},
		{"negative workers", "scan.json", `{"workers": -1}`, "workers"},
		{"negative regularization", "scan.json", `{"spline_regularization": -1}`, "spline_regularization"},
		{"cache extension", "scan.json", `{"lut_cache_path": "luts.sqlite"}`, ".db extension"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScanConfig(writeConfig(t, tt.file, tt.body))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadScanConfigGeometryError(t *testing.T) {
	_, err := LoadScanConfig(writeConfig(t, "scan.json", `{"initial_radius": 300}`))
	if !errors.Is(err, scanconv.ErrInvalidGeometry) {
		t.Errorf("expected ErrInvalidGeometry, got %v", err)
	}
}

func TestLoadScanConfigMissing(t *testing.T) {
	if _, err := LoadScanConfig("/nonexistent/path/to/scan.json"); err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadScanConfigTooLarge(t *testing.T) {
	body := `{"pipeline": "interpolate"` + strings.Repeat(" ", 1024*1024) + `}`
	_, err := LoadScanConfig(writeConfig(t, "big.json", body))
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestWithOverrides(t *testing.T) {
	base := EmptyScanConfig()

	geo := base.WithGeometry(10, 70, -0.5, 0.5)
	if base.InitialRadius != nil {
		t.Error("WithGeometry modified the receiver")
	}
	sector, err := geo.SectorGeometry()
	if err != nil {
		t.Fatalf("SectorGeometry: %v", err)
	}
	if sector.InitialRadius != 10 || sector.FinalRadius != 70 || sector.InitialAngle != -0.5 || sector.FinalAngle != 0.5 {
		t.Errorf("SectorGeometry() = %+v", sector)
	}

	if got := geo.WithPipeline(PipelineSparseWarp).GetPipeline(); got != string(PipelineSparseWarp) {
		t.Errorf("WithPipeline: got %q", got)
	}
	if seg := geo.WithSegmentation(4, 3).Segmentation(); seg.YSeg != 4 || seg.XSeg != 3 {
		t.Errorf("WithSegmentation: got %+v", seg)
	}
}

package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/banshee-data/scanconvert/internal/scanconv"
	"github.com/banshee-data/scanconvert/internal/scanconv/interp"
)

// DefaultConfigPath is the path to the canonical scan conversion defaults file.
const DefaultConfigPath = "config/scanconvert.defaults.json"

// Pipeline names a scan conversion strategy.
type Pipeline string

const (
	PipelineSparseWarp  Pipeline = "sparse_warp"
	PipelineInterpolate Pipeline = "interpolate"
)

// ScanConfig is the root configuration for scan conversion. Fields left out
// of the JSON fall back to the Get* defaults, so partial configs are safe.
type ScanConfig struct {
	Pipeline *string `json:"pipeline,omitempty"` // "sparse_warp" or "interpolate"

	// Geometry, in pixels and radians.
	InitialRadius *float64 `json:"initial_radius,omitempty"`
	FinalRadius   *float64 `json:"final_radius,omitempty"`
	InitialAngle  *float64 `json:"initial_angle,omitempty"`
	FinalAngle    *float64 `json:"final_angle,omitempty"`

	// Control grid
	YSeg *int `json:"y_seg,omitempty"`
	XSeg *int `json:"x_seg,omitempty"`

	// Precompute/apply params
	Weighting        *string `json:"weighting,omitempty"`
	StrictDegenerate *bool   `json:"strict_degenerate,omitempty"`
	Workers          *int    `json:"workers,omitempty"` // 0 = GOMAXPROCS

	// Sparse warp params
	SplineRegularization *float64 `json:"spline_regularization,omitempty"`

	// Optional sqlite file caching precomputed correspondences
	LUTCachePath *string `json:"lut_cache_path,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// EmptyScanConfig returns a ScanConfig with all fields set to nil.
func EmptyScanConfig() *ScanConfig {
	return &ScanConfig{}
}

// LoadScanConfig loads a ScanConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadScanConfig(path string) (*ScanConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyScanConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded, intended for
// test setup.
func MustLoadDefaultConfig() *ScanConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/scanconv/interp/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadScanConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the fields that are set. Geometry is checked as a whole,
// with defaults filling the gaps, so a partial override cannot produce an
// inverted range.
func (c *ScanConfig) Validate() error {
	switch p := Pipeline(c.GetPipeline()); p {
	case PipelineSparseWarp, PipelineInterpolate:
	default:
		return fmt.Errorf("pipeline must be %q or %q, got %q", PipelineSparseWarp, PipelineInterpolate, p)
	}

	if _, err := c.SectorGeometry(); err != nil {
		return err
	}
	if err := c.Segmentation().Validate(); err != nil {
		return err
	}

	if err := interp.Weighting(c.GetWeighting()).Validate(); err != nil {
		return err
	}

	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}

	if c.SplineRegularization != nil {
		if r := *c.SplineRegularization; r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			return fmt.Errorf("spline_regularization must be a non-negative number, got %f", r)
		}
	}

	if p := c.GetLUTCachePath(); p != "" && filepath.Ext(p) != ".db" {
		return fmt.Errorf("lut_cache_path must have .db extension, got %q", p)
	}

	return nil
}

// GetPipeline returns the pipeline value or the default.
func (c *ScanConfig) GetPipeline() string {
	if c.Pipeline == nil || *c.Pipeline == "" {
		return string(PipelineInterpolate)
	}
	return *c.Pipeline
}

// GetInitialRadius returns the initial_radius value or the default.
func (c *ScanConfig) GetInitialRadius() float64 {
	if c.InitialRadius == nil {
		return 20
	}
	return *c.InitialRadius
}

// GetFinalRadius returns the final_radius value or the default.
func (c *ScanConfig) GetFinalRadius() float64 {
	if c.FinalRadius == nil {
		return 276
	}
	return *c.FinalRadius
}

// GetInitialAngle returns the initial_angle value or the default.
func (c *ScanConfig) GetInitialAngle() float64 {
	if c.InitialAngle == nil {
		return -0.6
	}
	return *c.InitialAngle
}

// GetFinalAngle returns the final_angle value or the default.
func (c *ScanConfig) GetFinalAngle() float64 {
	if c.FinalAngle == nil {
		return 0.6
	}
	return *c.FinalAngle
}

// GetYSeg returns the y_seg value or the default.
func (c *ScanConfig) GetYSeg() int {
	if c.YSeg == nil {
		return 17
	}
	return *c.YSeg
}

// GetXSeg returns the x_seg value or the default.
func (c *ScanConfig) GetXSeg() int {
	if c.XSeg == nil {
		return 5
	}
	return *c.XSeg
}

// GetWeighting returns the weighting value or the default.
func (c *ScanConfig) GetWeighting() string {
	if c.Weighting == nil || *c.Weighting == "" {
		return string(interp.WeightDistance)
	}
	return *c.Weighting
}

// GetStrictDegenerate returns the strict_degenerate value or the default.
func (c *ScanConfig) GetStrictDegenerate() bool {
	if c.StrictDegenerate == nil {
		return false
	}
	return *c.StrictDegenerate
}

// GetWorkers returns the workers value or the default (0, meaning GOMAXPROCS).
func (c *ScanConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetSplineRegularization returns the spline_regularization value or the default.
func (c *ScanConfig) GetSplineRegularization() float64 {
	if c.SplineRegularization == nil {
		return 0
	}
	return *c.SplineRegularization
}

// GetLUTCachePath returns the lut_cache_path value or the default (disabled).
func (c *ScanConfig) GetLUTCachePath() string {
	if c.LUTCachePath == nil {
		return ""
	}
	return *c.LUTCachePath
}

// FanGeometry builds the sparse-warp geometry.
func (c *ScanConfig) FanGeometry() (scanconv.FanGeometry, error) {
	return scanconv.NewFanGeometry(c.GetInitialRadius(), c.GetFinalRadius(), c.GetInitialAngle(), c.GetFinalAngle())
}

// SectorGeometry builds the precompute/apply geometry.
func (c *ScanConfig) SectorGeometry() (scanconv.SectorGeometry, error) {
	return scanconv.NewSectorGeometry(c.GetInitialRadius(), c.GetFinalRadius(), c.GetInitialAngle(), c.GetFinalAngle())
}

// Segmentation returns the control grid.
func (c *ScanConfig) Segmentation() scanconv.GridSegmentation {
	return scanconv.GridSegmentation{YSeg: c.GetYSeg(), XSeg: c.GetXSeg()}
}

// InterpOptions returns the precompute/apply options.
func (c *ScanConfig) InterpOptions() interp.Options {
	return interp.Options{
		Weighting:        interp.Weighting(c.GetWeighting()),
		StrictDegenerate: c.GetStrictDegenerate(),
		Workers:          c.GetWorkers(),
	}
}

// WithGeometry returns a copy of c with the geometry fields replaced.
func (c *ScanConfig) WithGeometry(irad, frad, iang, fang float64) *ScanConfig {
	out := *c
	out.InitialRadius = ptrFloat64(irad)
	out.FinalRadius = ptrFloat64(frad)
	out.InitialAngle = ptrFloat64(iang)
	out.FinalAngle = ptrFloat64(fang)
	return &out
}

// WithPipeline returns a copy of c using pipeline p.
func (c *ScanConfig) WithPipeline(p Pipeline) *ScanConfig {
	out := *c
	out.Pipeline = ptrString(string(p))
	return &out
}

// WithSegmentation returns a copy of c with the control grid replaced.
func (c *ScanConfig) WithSegmentation(ySeg, xSeg int) *ScanConfig {
	out := *c
	out.YSeg = ptrInt(ySeg)
	out.XSeg = ptrInt(xSeg)
	return &out
}

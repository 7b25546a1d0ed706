package scanconv

import (
	"fmt"
	"math"
)

// Point is a position in image space, ordered (y, x).
type Point struct {
	Y float64
	X float64
}

// FanGeometry describes the acquisition geometry used by the sparse warp
// pipeline. FinalAngle is a half aperture: control columns are swept over
// linspace(-1, 1, x_seg) * FinalAngle. InitialAngle is carried for callers
// but does not shape the sweep.
type FanGeometry struct {
	InitialRadius float64 // near-field dead zone, in source pixels
	FinalRadius   float64 // far edge of the fan, in source pixels
	InitialAngle  float64 // radians
	FinalAngle    float64 // radians, half aperture
}

// NewFanGeometry builds a FanGeometry and validates it eagerly.
func NewFanGeometry(initialRadius, finalRadius, initialAngle, finalAngle float64) (FanGeometry, error) {
	g := FanGeometry{
		InitialRadius: initialRadius,
		FinalRadius:   finalRadius,
		InitialAngle:  initialAngle,
		FinalAngle:    finalAngle,
	}
	if err := g.Validate(); err != nil {
		return FanGeometry{}, err
	}
	return g, nil
}

// Validate reports whether the geometry can drive a sparse warp conversion.
func (g FanGeometry) Validate() error {
	if err := validateRadii(g.InitialRadius, g.FinalRadius); err != nil {
		return err
	}
	if err := validateAngles(g.InitialAngle, g.FinalAngle); err != nil {
		return err
	}
	if g.FinalAngle <= 0 {
		return fmt.Errorf("%w: final_angle must be positive (half aperture), got %g", ErrInvalidGeometry, g.FinalAngle)
	}
	return nil
}

// SectorGeometry describes the acquisition geometry used by the precompute
// pipeline. InitialAngle and FinalAngle bound the angular mask independently,
// so InitialAngle must be negative and FinalAngle positive.
type SectorGeometry struct {
	InitialRadius float64
	FinalRadius   float64
	InitialAngle  float64
	FinalAngle    float64
}

// NewSectorGeometry builds a SectorGeometry and validates it eagerly.
func NewSectorGeometry(initialRadius, finalRadius, initialAngle, finalAngle float64) (SectorGeometry, error) {
	g := SectorGeometry{
		InitialRadius: initialRadius,
		FinalRadius:   finalRadius,
		InitialAngle:  initialAngle,
		FinalAngle:    finalAngle,
	}
	if err := g.Validate(); err != nil {
		return SectorGeometry{}, err
	}
	return g, nil
}

// Validate reports whether the geometry can drive a precompute conversion.
func (g SectorGeometry) Validate() error {
	if err := validateRadii(g.InitialRadius, g.FinalRadius); err != nil {
		return err
	}
	if err := validateAngles(g.InitialAngle, g.FinalAngle); err != nil {
		return err
	}
	// The angular mask divides by both bounds.
	if g.InitialAngle >= 0 || g.FinalAngle <= 0 {
		return fmt.Errorf("%w: sector angles must straddle boresight (initial < 0 < final), got [%g, %g]",
			ErrInvalidGeometry, g.InitialAngle, g.FinalAngle)
	}
	return nil
}

func validateRadii(irad, frad float64) error {
	if !isFinite(irad) || !isFinite(frad) {
		return fmt.Errorf("%w: radii must be finite, got [%g, %g]", ErrInvalidGeometry, irad, frad)
	}
	if irad < 0 {
		return fmt.Errorf("%w: initial_radius must be non-negative, got %g", ErrInvalidGeometry, irad)
	}
	if irad >= frad {
		return fmt.Errorf("%w: initial_radius (%g) must be less than final_radius (%g)", ErrInvalidGeometry, irad, frad)
	}
	return nil
}

func validateAngles(iang, fang float64) error {
	if !isFinite(iang) || !isFinite(fang) {
		return fmt.Errorf("%w: angles must be finite, got [%g, %g]", ErrInvalidGeometry, iang, fang)
	}
	if iang >= fang {
		return fmt.Errorf("%w: zero-width angle range [%g, %g]", ErrInvalidGeometry, iang, fang)
	}
	if math.Abs(iang) > math.Pi/2 || math.Abs(fang) > math.Pi/2 {
		return fmt.Errorf("%w: angles must lie within ±π/2, got [%g, %g]", ErrInvalidGeometry, iang, fang)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// GridSegmentation sets how many control rows (YSeg) and columns (XSeg) are
// sampled from the source image.
type GridSegmentation struct {
	YSeg int
	XSeg int
}

// Validate requires at least two control rows and columns.
func (s GridSegmentation) Validate() error {
	if s.YSeg < 2 || s.XSeg < 2 {
		return fmt.Errorf("%w: grid segmentation must be at least 2x2, got %dx%d", ErrInvalidGeometry, s.YSeg, s.XSeg)
	}
	return nil
}

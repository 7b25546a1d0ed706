// Package sparsewarp converts r-theta ultrasound frames to fan images by
// warping a coarse control-point grid.
//
// BuildCorrespondence pads the frame so the fan fits, lays a y_seg x x_seg
// grid of start points over it and fans each column out by a fixed sweep
// angle. ApplyWarp hands the pairs to a warp.Warper, zeroes everything past
// the final radius and drops the near-field rows.
//
// The end points use a small-angle fan-out around the vertical axis rather
// than an exact polar transform: every point in a column shares one sweep
// angle regardless of its true polar angle.
package sparsewarp

import (
	"fmt"
	"math"

	"github.com/banshee-data/scanconvert/internal/monitoring"
	"github.com/banshee-data/scanconvert/internal/scanconv"
	"github.com/banshee-data/scanconvert/internal/scanconv/warp"
	"gonum.org/v1/gonum/mat"
)

// DefaultSegmentation is the control grid used by Convert when the caller has
// no better choice.
var DefaultSegmentation = scanconv.GridSegmentation{YSeg: 17, XSeg: 5}

// Correspondence is the padded frame together with its control points.
type Correspondence struct {
	Padded *mat.Dense

	// Start holds the control points on the padded r-theta frame and End
	// their fanned-out positions, both row-major over the control grid and
	// rounded to whole pixels.
	Start []scanconv.Point
	End   []scanconv.Point

	// Radii is each start point's distance from the transducer apex and
	// Angles the sweep applied to it.
	Radii  []float64
	Angles []float64

	HorizontalPad int
	VerticalPad   int
}

// BuildCorrespondence pads img and derives the control point pairs for g.
func BuildCorrespondence(img *mat.Dense, g scanconv.FanGeometry, seg scanconv.GridSegmentation) (*Correspondence, error) {
	if img == nil || img.IsEmpty() {
		return nil, fmt.Errorf("%w: empty frame", scanconv.ErrShapeMismatch)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if err := seg.Validate(); err != nil {
		return nil, err
	}

	height, width := img.Dims()
	h, w := float64(height), float64(width)

	// A fan narrower than the frame needs no lateral padding.
	hpad := int(math.Floor(g.FinalRadius*math.Sin(g.FinalAngle) - w/2))
	if hpad < 0 {
		monitoring.Diagf("sparse warp: fan half-width %.1f inside frame half-width %.1f, no lateral pad",
			g.FinalRadius*math.Sin(g.FinalAngle), w/2)
		hpad = 0
	}
	vpad := int(math.Floor(g.InitialRadius))
	padded := scanconv.Pad(img, vpad, 0, hpad, hpad)

	ys := scanconv.Linspace(0, h, seg.YSeg)
	xs := scanconv.Linspace(0, w, seg.XSeg)
	sweep := scanconv.Linspace(-1, 1, seg.XSeg)
	centerX := float64(hpad) + w/2

	n := seg.YSeg * seg.XSeg
	c := &Correspondence{
		Padded:        padded,
		Start:         make([]scanconv.Point, 0, n),
		End:           make([]scanconv.Point, 0, n),
		Radii:         make([]float64, 0, n),
		Angles:        make([]float64, 0, n),
		HorizontalPad: hpad,
		VerticalPad:   vpad,
	}
	for _, yv := range ys {
		y := yv + float64(vpad)
		for j, xv := range xs {
			x := xv + float64(hpad)
			theta := sweep[j] * g.FinalAngle

			c.Start = append(c.Start, scanconv.Point{Y: math.RoundToEven(y), X: math.RoundToEven(x)})
			c.End = append(c.End, scanconv.Point{
				Y: math.RoundToEven(y - y*(1-math.Cos(theta))),
				X: math.RoundToEven(x + y*math.Sin(theta)),
			})
			c.Radii = append(c.Radii, math.Hypot(x-centerX, y-g.InitialRadius))
			c.Angles = append(c.Angles, theta)
		}
	}

	pr, pc := padded.Dims()
	monitoring.Diagf("sparse warp: padded %dx%d -> %dx%d (hpad=%d vpad=%d), %d control points",
		height, width, pr, pc, hpad, vpad, n)
	return c, nil
}

// ApplyWarp resamples the padded frame through w, masks the result to the
// final radius and crops the near-field rows.
func ApplyWarp(c *Correspondence, g scanconv.FanGeometry, w warp.Warper) (*mat.Dense, error) {
	if c == nil || c.Padded == nil {
		return nil, fmt.Errorf("%w: nil correspondence", scanconv.ErrShapeMismatch)
	}
	if len(c.Start) != len(c.End) {
		return nil, fmt.Errorf("%w: %d start points, %d end points", scanconv.ErrShapeMismatch, len(c.Start), len(c.End))
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	res, err := w.Warp(c.Padded, c.Start, c.End)
	if err != nil {
		return nil, fmt.Errorf("sparse warp: %w", err)
	}
	rows, cols := c.Padded.Dims()
	if rr, rc := res.Dims(); rr != rows || rc != cols {
		return nil, fmt.Errorf("%w: warp returned %dx%d for a %dx%d frame", scanconv.ErrShapeMismatch, rr, rc, rows, cols)
	}

	out := mat.NewDense(rows, cols, nil)
	out.Copy(res)
	MaskRadius(out, g.FinalRadius)

	return scanconv.CropTop(out, int(g.InitialRadius))
}

// MaskRadius zeroes every pixel of img farther than radius from the centre of
// its top edge.
func MaskRadius(img *mat.Dense, radius float64) {
	rows, cols := img.Dims()
	cx := float64(cols) / 2
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if math.Hypot(float64(x)-cx, float64(y)) > radius {
				img.Set(y, x, 0)
			}
		}
	}
}

// Convert runs BuildCorrespondence and ApplyWarp in one call.
func Convert(img *mat.Dense, g scanconv.FanGeometry, seg scanconv.GridSegmentation, w warp.Warper) (*mat.Dense, error) {
	c, err := BuildCorrespondence(img, g, seg)
	if err != nil {
		return nil, err
	}
	return ApplyWarp(c, g, w)
}

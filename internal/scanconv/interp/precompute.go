package interp

import (
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/scanconvert/internal/monitoring"
	"github.com/banshee-data/scanconvert/internal/scanconv"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Precompute derives the Correspondence for frames shaped like img under
// geometry g with control grid seg. Only img's dimensions are used.
func Precompute(img *mat.Dense, seg scanconv.GridSegmentation, g scanconv.SectorGeometry, opts Options) (*Correspondence, error) {
	start := time.Now()

	if img == nil || img.IsEmpty() {
		return nil, fmt.Errorf("%w: empty frame", scanconv.ErrShapeMismatch)
	}
	if err := seg.Validate(); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Weighting.Validate(); err != nil {
		return nil, err
	}

	height, width := img.Dims()
	h, w := float64(height), float64(width)

	// Canvas sizing. Rounding is half-to-even throughout.
	hshift := math.RoundToEven(-w / 2)
	vshift := math.RoundToEven(g.InitialRadius)
	hpad := int(math.RoundToEven(g.FinalRadius*math.Sin(g.FinalAngle) - w/2))
	vpad := int(vshift)
	resHeight := height + vpad
	resWidth := width + 2*hpad
	if resWidth < 0 {
		return nil, fmt.Errorf("%w: canvas width %d for a %d-wide frame", scanconv.ErrInvalidGeometry, resWidth, width)
	}
	canvas := mat.NewDense(resHeight+1, resWidth+1, nil)

	// Control grid in r-theta, unshifted; the shifts are added where the
	// grid is read in polar terms.
	gridY := scanconv.Linspace(0, h, seg.YSeg+1)
	gridX := scanconv.Linspace(0, w, seg.XSeg+1)

	minY, maxY, minX, maxX := gridBounds(gridY, gridX, vshift, hshift, g.FinalAngle)

	ys, xs, pointsXY, err := sectorPoints(g, minY, maxY, minX, maxX, resHeight, resWidth)
	if err != nil {
		return nil, err
	}
	n := len(ys)

	// Back to r-theta. Columns are recovered by min-max normalising the
	// angles of the kept points, not the nominal angle bounds.
	angles := make([]float64, n)
	radius := make([]float64, n)
	for i := range ys {
		angles[i] = math.Atan(xs[i] / ys[i])
		radius[i] = math.Hypot(xs[i], ys[i])
	}
	xScale := make([]float64, n)
	amin, amax := floats.Min(angles), floats.Max(angles)
	for i, a := range angles {
		xScale[i] = 2*scanconv.Normalize(a, amin, amax) - 1
	}
	scale := w / 2
	xsMin, xsMax := floats.Min(xScale), floats.Max(xScale)
	pxR := make([]float64, n)
	for i, v := range xScale {
		pxR[i] = 2*scale*scanconv.Normalize(v, xsMin, xsMax) - scale
	}
	pyR := radius

	// Control-grid index space.
	pxMin, pxMax := floats.Min(pxR), floats.Max(pxR)
	pyMin, pyMax := floats.Min(pyR), floats.Max(pyR)

	corr := &Correspondence{
		Canvas:        canvas,
		PointsXY:      pointsXY,
		ValRTheta:     make([][4]scanconv.Point, n),
		Weights:       make([][4]float64, n),
		InitialRadius: g.InitialRadius,
		SourceRows:    height,
		SourceCols:    width,
		Geometry:      g,
		Segmentation:  seg,
		Weighting:     opts.weighting(),
	}
	for i := 0; i < n; i++ {
		xMem := float64(seg.XSeg-1) * scanconv.Normalize(pxR[i], pxMin, pxMax)
		yMem := float64(seg.YSeg-1) * scanconv.Normalize(pyR[i], pyMin, pyMax)
		xf, xc := int(math.Floor(xMem)), int(math.Ceil(xMem))
		yf, yc := int(math.Floor(yMem)), int(math.Ceil(yMem))

		idx := [4][2]int{{yf, xf}, {yf, xc}, {yc, xc}, {yc, xf}}
		var dist [4]float64
		for k, c := range idx {
			dist[k] = math.Hypot(gridY[c[0]]+vshift-pyR[i], gridX[c[1]]+hshift-pxR[i])
			corr.ValRTheta[i][k] = scanconv.Point{Y: gridY[c[0]], X: gridX[c[1]]}
		}

		wts, degenerate := cornerWeights(dist, corr.Weighting)
		if degenerate {
			if opts.StrictDegenerate {
				return nil, fmt.Errorf("%w: output pixel (%d, %d) coincides with its corners",
					scanconv.ErrDegenerateInterpolationPoint, pointsXY[i][0], pointsXY[i][1])
			}
			corr.Degenerate++
		}
		corr.Weights[i] = wts
	}

	if corr.Degenerate > 0 {
		monitoring.Diagf("precompute: %d of %d points degenerate, full weight on first corner", corr.Degenerate, n)
	}
	monitoring.Diagf("precompute: %dx%d frame -> %dx%d canvas, grid %dx%d, %d sector points, %s weighting in %s",
		height, width, resHeight+1, resWidth+1, seg.YSeg, seg.XSeg, n, corr.Weighting, time.Since(start))
	return corr, nil
}

// gridBounds maps the control grid to x-y and returns its integer bounding
// box.
func gridBounds(gridY, gridX []float64, vshift, hshift, fang float64) (minY, maxY, minX, maxX float64) {
	xlo, xhi := gridX[0]+hshift, gridX[len(gridX)-1]+hshift
	minY, minX = math.Inf(1), math.Inf(1)
	maxY, maxX = math.Inf(-1), math.Inf(-1)
	for _, gy := range gridY {
		r := gy + vshift
		for _, gx := range gridX {
			theta := (2*scanconv.Normalize(gx+hshift, xlo, xhi) - 1) * fang
			y, x := r*math.Cos(theta), r*math.Sin(theta)
			minY, maxY = math.Min(minY, y), math.Max(maxY, y)
			minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		}
	}
	return math.Floor(minY), math.Ceil(maxY), math.Floor(minX), math.Ceil(maxX)
}

// sectorPoints enumerates the integer x-y positions in [minY, maxY) x
// [minX, maxX) that fall inside the sector and returns them together with
// their canvas indices.
func sectorPoints(g scanconv.SectorGeometry, minY, maxY, minX, maxX float64, resHeight, resWidth int) (ys, xs []float64, pointsXY [][2]int, err error) {
	invI, invF := 1/g.InitialAngle, 1/g.FinalAngle
	half := float64(resWidth) / 2
	for y := minY; y < maxY; y++ {
		for x := minX; x < maxX; x++ {
			if !InSector(g, y, x, invI, invF) {
				continue
			}
			py, px := int(y), int(x+half)
			if py < 0 || py > resHeight || px < 0 || px > resWidth {
				return nil, nil, nil, fmt.Errorf("%w: sector pixel (%g, %g) lands outside the %dx%d canvas",
					scanconv.ErrInvalidGeometry, y, x, resHeight+1, resWidth+1)
			}
			ys = append(ys, y)
			xs = append(xs, x)
			pointsXY = append(pointsXY, [2]int{py, px})
		}
	}
	if len(ys) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: no output pixels fall inside the sector", scanconv.ErrInvalidGeometry)
	}
	return ys, xs, pointsXY, nil
}

// InSector reports whether the x-y position (y, x) lies strictly between the
// radii and above both angular bound lines. invI and invF are the reciprocals
// of the initial and final angles.
func InSector(g scanconv.SectorGeometry, y, x, invI, invF float64) bool {
	d := math.Hypot(y, x)
	if d <= g.InitialRadius || d >= g.FinalRadius {
		return false
	}
	return x*invI < y && x*invF < y
}

// cornerWeights turns corner distances into weights summing to 1. A zero
// total is degenerate and gives the first corner the full weight.
func cornerWeights(dist [4]float64, mode Weighting) (w [4]float64, degenerate bool) {
	total := dist[0] + dist[1] + dist[2] + dist[3]
	if total == 0 {
		return [4]float64{1, 0, 0, 0}, true
	}

	switch mode {
	case WeightInverseDistance:
		for k, d := range dist {
			if d == 0 {
				w[k] = 1
				return w, false
			}
		}
		var inv float64
		for _, d := range dist {
			inv += 1 / d
		}
		for k, d := range dist {
			w[k] = (1 / d) / inv
		}
	default:
		for k, d := range dist {
			w[k] = d / total
		}
	}
	return w, false
}

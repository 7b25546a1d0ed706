// Package diagplot renders scan conversion diagnostics: PNG heatmaps and
// profiles with gonum/plot and interactive HTML charts with go-echarts.
package diagplot

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/scanconvert/internal/scanconv/interp"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// imageGrid adapts a matrix to plotter.GridXYZ with row 0 drawn at the top.
type imageGrid struct {
	m mat.Matrix
}

func (g imageGrid) Dims() (c, r int) {
	rows, cols := g.m.Dims()
	return cols, rows
}

func (g imageGrid) Z(c, r int) float64 {
	rows, _ := g.m.Dims()
	return g.m.At(rows-1-r, c)
}

func (g imageGrid) X(c int) float64 { return float64(c) }
func (g imageGrid) Y(r int) float64 { return float64(r) }

// SaveHeatmapPNG writes img as a heatmap to path. Depth runs down the page.
func SaveHeatmapPNG(img mat.Matrix, title, path string) error {
	rows, cols := img.Dims()
	if rows < 2 || cols < 2 {
		return fmt.Errorf("heatmap needs at least 2x2 pixels, got %dx%d", rows, cols)
	}

	hm := plotter.NewHeatMap(imageGrid{m: img}, palette.Heat(64, 1))
	if hm.Max == hm.Min {
		hm.Max = hm.Min + 1
	}
	hm.NaN = color.Transparent

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Lateral (px)"
	p.Y.Label.Text = "Depth (px, inverted)"
	p.Add(hm)

	return save(p, float64(cols)/float64(rows), path)
}

// SaveCoveragePNG writes how many kept sector points land on each canvas
// pixel. Every sector pixel should read exactly 1.
func SaveCoveragePNG(c *interp.Correspondence, path string) error {
	if c == nil || c.Canvas == nil {
		return fmt.Errorf("coverage plot needs a correspondence")
	}
	rows, cols := c.Canvas.Dims()
	hits := mat.NewDense(rows, cols, nil)
	for _, p := range c.PointsXY {
		hits.Set(p[0], p[1], hits.At(p[0], p[1])+1)
	}
	title := fmt.Sprintf("Sector coverage (%d points, %dx%d grid, %s)",
		c.Len(), c.Segmentation.YSeg, c.Segmentation.XSeg, c.Weighting)
	return SaveHeatmapPNG(hits, title, path)
}

// SaveProfilePNG plots the given rows of img as lateral intensity profiles.
func SaveProfilePNG(img mat.Matrix, rowIdx []int, title, path string) error {
	rows, cols := img.Dims()
	if len(rowIdx) == 0 {
		return fmt.Errorf("profile plot needs at least one row")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Lateral (px)"
	p.Y.Label.Text = "Intensity"

	colors := generateColors(len(rowIdx))
	for i, r := range rowIdx {
		if r < 0 || r >= rows {
			return fmt.Errorf("profile row %d outside %d-row image", r, rows)
		}
		pts := make(plotter.XYs, cols)
		for x := 0; x < cols; x++ {
			pts[x] = plotter.XY{X: float64(x), Y: img.At(r, x)}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("create line for row %d: %w", r, err)
		}
		line.Width = vg.Points(1)
		line.Color = colors[i]
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("row %d", r), line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return save(p, 14.0/6.0, path)
}

// save writes p at a fixed 8in height, clamping the aspect ratio so very
// wide or tall images stay readable.
func save(p *plot.Plot, aspect float64, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	aspect = math.Max(0.5, math.Min(aspect, 3))
	h := 8 * vg.Inch
	if err := p.Save(vg.Length(aspect)*h, h, path); err != nil {
		return fmt.Errorf("save %s: %w", filepath.Base(path), err)
	}
	return nil
}

// generateColors creates n evenly spaced hues.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

// FormatTimestamp generates a timestamp string for directory naming.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// MakeOutputDir returns baseDir/<run>/<timestamp>.
func MakeOutputDir(baseDir, run string) string {
	return filepath.Join(baseDir, run, FormatTimestamp(time.Now()))
}

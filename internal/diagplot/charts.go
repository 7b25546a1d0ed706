package diagplot

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/scanconvert/internal/scanconv/interp"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/mat"
)

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// Timing is one labelled duration for the timing chart.
type Timing struct {
	Label    string
	Duration time.Duration
}

// SectorScatter builds a scatter chart of the kept sector points in x-y,
// coloured by the converted pixel value. out is an image returned by
// c.Apply; maxPoints bounds the number of markers (0 = all).
func SectorScatter(c *interp.Correspondence, out *mat.Dense, maxPoints int) (*charts.Scatter, error) {
	if c == nil || out == nil {
		return nil, fmt.Errorf("sector scatter needs a correspondence and its output")
	}
	rows, cols := c.OutputDims()
	if r, cc := out.Dims(); r != rows || cc != cols {
		return nil, fmt.Errorf("output is %dx%d, correspondence produces %dx%d", r, cc, rows, cols)
	}

	n := c.Len()
	stride := 1
	if maxPoints > 0 && n > maxPoints {
		stride = (n + maxPoints - 1) / maxPoints
	}

	crop := int(c.InitialRadius)
	half := float64(cols-1) / 2
	data := make([]opts.ScatterData, 0, n/stride+1)
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < n; i += stride {
		p := c.PointsXY[i]
		if p[0] < crop {
			continue
		}
		v := out.At(p[0]-crop, p[1])
		lo, hi = math.Min(lo, v), math.Max(hi, v)
		// Depth is plotted downwards.
		data = append(data, opts.ScatterData{Value: []interface{}{float64(p[1]) - half, -float64(p[0]), v}})
	}
	if len(data) == 0 {
		lo, hi = 0, 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Scan conversion sector", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Kept sector points",
			Subtitle: fmt.Sprintf("points=%d stride=%d grid=%dx%d weighting=%s", n, stride, c.Segmentation.YSeg, c.Segmentation.XSeg, c.Weighting),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "-Depth (px)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries("sector", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	return scatter, nil
}

// TimingBar builds a bar chart of durations in milliseconds.
func TimingBar(title string, timings []Timing) *charts.Bar {
	x := make([]string, len(timings))
	y := make([]opts.BarData, len(timings))
	for i, t := range timings {
		x[i] = t.Label
		y[i] = opts.BarData{Value: float64(t.Duration.Microseconds()) / 1000}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "milliseconds"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("duration", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

// RenderPage renders the charts onto one HTML page.
func RenderPage(w io.Writer, cs ...components.Charter) error {
	page := components.NewPage()
	page.AddCharts(cs...)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// SavePageHTML renders the charts to path.
func SavePageHTML(path string, cs ...components.Charter) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := RenderPage(f, cs...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

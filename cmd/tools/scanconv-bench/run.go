package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/scanconvert/internal/config"
	"github.com/banshee-data/scanconvert/internal/diagplot"
	"github.com/banshee-data/scanconvert/internal/lutstore"
	"github.com/banshee-data/scanconvert/internal/monitoring"
	"github.com/banshee-data/scanconvert/internal/phantom"
	"github.com/banshee-data/scanconvert/internal/scanconv/interp"
	"github.com/banshee-data/scanconvert/internal/scanconv/sparsewarp"
	"github.com/banshee-data/scanconvert/internal/scanconv/warp"
	"github.com/banshee-data/scanconvert/internal/version"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// Result summarises one benchmark run.
type Result struct {
	RunID     string           `json:"run_id"`
	Version   string           `json:"version"`
	Phantom   string           `json:"phantom"`
	Rows      int              `json:"rows"`
	Cols      int              `json:"cols"`
	Frames    int              `json:"frames"`
	Pipelines []PipelineResult `json:"pipelines"`
	PlotDir   string           `json:"plot_dir,omitempty"`
}

// PipelineResult holds timings for one pipeline.
type PipelineResult struct {
	Name       string  `json:"name"`
	SetupMs    float64 `json:"setup_ms"`
	TotalMs    float64 `json:"total_ms"`
	PerFrameMs float64 `json:"per_frame_ms"`
	OutRows    int     `json:"out_rows"`
	OutCols    int     `json:"out_cols"`
	Points     int     `json:"points,omitempty"`
	Degenerate int     `json:"degenerate,omitempty"`
	CacheHit   bool    `json:"cache_hit,omitempty"`

	first *mat.Dense
	corr  *interp.Correspondence
	setup time.Duration
	conv  time.Duration
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

func run(ctx context.Context, cfg Config, scanCfg *config.ScanConfig) (*Result, error) {
	if cfg.Rows < 2 || cfg.Cols < 2 || cfg.Frames < 1 {
		return nil, fmt.Errorf("need at least a 2x2 frame and one frame, got %dx%d x %d", cfg.Rows, cfg.Cols, cfg.Frames)
	}

	pipelines, err := selectPipelines(cfg.Pipeline, scanCfg)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:   uuid.New().String(),
		Version: version.String(),
		Phantom: cfg.Phantom,
		Rows:    cfg.Rows,
		Cols:    cfg.Cols,
		Frames:  cfg.Frames,
	}
	monitoring.Opsf("run %s: %d %s frames of %dx%d through %v", res.RunID, cfg.Frames, cfg.Phantom, cfg.Rows, cfg.Cols, pipelines)

	frames := make([]*mat.Dense, cfg.Frames)
	for i := range frames {
		f, err := phantom.Generate(phantom.Kind(cfg.Phantom), cfg.Rows, cfg.Cols, cfg.Seed+uint64(i))
		if err != nil {
			return nil, err
		}
		frames[i] = f
	}

	for _, p := range pipelines {
		var pr *PipelineResult
		switch p {
		case config.PipelineSparseWarp:
			pr, err = runSparseWarp(frames, scanCfg)
		case config.PipelineInterpolate:
			pr, err = runInterpolate(ctx, frames, scanCfg)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		pr.SetupMs = ms(pr.setup)
		pr.TotalMs = ms(pr.setup + pr.conv)
		pr.PerFrameMs = ms(pr.conv) / float64(len(frames))
		pr.OutRows, pr.OutCols = pr.first.Dims()
		res.Pipelines = append(res.Pipelines, *pr)
	}

	if cfg.PlotDir != "" {
		dir := diagplot.MakeOutputDir(cfg.PlotDir, cfg.Phantom)
		if err := writePlots(dir, frames[0], res.Pipelines); err != nil {
			return nil, fmt.Errorf("plots: %w", err)
		}
		res.PlotDir = dir
	}

	return res, nil
}

func selectPipelines(flagValue string, scanCfg *config.ScanConfig) ([]config.Pipeline, error) {
	switch flagValue {
	case "":
		return []config.Pipeline{config.Pipeline(scanCfg.GetPipeline())}, nil
	case "both":
		return []config.Pipeline{config.PipelineSparseWarp, config.PipelineInterpolate}, nil
	case string(config.PipelineSparseWarp), string(config.PipelineInterpolate):
		return []config.Pipeline{config.Pipeline(flagValue)}, nil
	}
	return nil, fmt.Errorf("unknown pipeline %q", flagValue)
}

func runSparseWarp(frames []*mat.Dense, scanCfg *config.ScanConfig) (*PipelineResult, error) {
	g, err := scanCfg.FanGeometry()
	if err != nil {
		return nil, err
	}
	seg := scanCfg.Segmentation()
	w := warp.ThinPlateSpline{
		Regularization: scanCfg.GetSplineRegularization(),
		Workers:        scanCfg.GetWorkers(),
	}

	pr := &PipelineResult{Name: string(config.PipelineSparseWarp)}
	start := time.Now()
	for i, f := range frames {
		out, err := sparsewarp.Convert(f, g, seg, w)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		if i == 0 {
			pr.first = out
		}
	}
	pr.conv = time.Since(start)
	return pr, nil
}

func runInterpolate(ctx context.Context, frames []*mat.Dense, scanCfg *config.ScanConfig) (*PipelineResult, error) {
	g, err := scanCfg.SectorGeometry()
	if err != nil {
		return nil, err
	}
	seg := scanCfg.Segmentation()
	opts := scanCfg.InterpOptions()

	pr := &PipelineResult{Name: string(config.PipelineInterpolate)}
	start := time.Now()
	var corr *interp.Correspondence
	if path := scanCfg.GetLUTCachePath(); path != "" {
		store, err := lutstore.Open(path)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		corr, pr.CacheHit, err = store.GetOrPrecompute(ctx, frames[0], seg, g, opts)
		if err != nil {
			return nil, err
		}
	} else {
		corr, err = interp.Precompute(frames[0], seg, g, opts)
		if err != nil {
			return nil, err
		}
	}
	pr.setup = time.Since(start)

	cv, err := interp.NewConverter(corr, opts.Workers)
	if err != nil {
		return nil, err
	}
	start = time.Now()
	outs, err := cv.ConvertBatch(ctx, frames)
	if err != nil {
		return nil, err
	}
	pr.conv = time.Since(start)

	pr.first = outs[0]
	pr.corr = corr
	pr.Points = corr.Len()
	pr.Degenerate = corr.Degenerate
	return pr, nil
}

func writePlots(dir string, source *mat.Dense, results []PipelineResult) error {
	if err := diagplot.SaveHeatmapPNG(source, "Source frame (r-theta)", filepath.Join(dir, "source.png")); err != nil {
		return err
	}

	var timings []diagplot.Timing
	var charts []components.Charter
	for _, pr := range results {
		if err := diagplot.SaveHeatmapPNG(pr.first, "Converted: "+pr.Name, filepath.Join(dir, pr.Name+".png")); err != nil {
			return err
		}
		rows, _ := pr.first.Dims()
		if err := diagplot.SaveProfilePNG(pr.first, []int{rows / 4, rows / 2, 3 * rows / 4}, "Lateral profiles: "+pr.Name, filepath.Join(dir, pr.Name+"_profiles.png")); err != nil {
			return err
		}
		timings = append(timings,
			diagplot.Timing{Label: pr.Name + " setup", Duration: pr.setup},
			diagplot.Timing{Label: pr.Name + " convert", Duration: pr.conv},
		)

		if pr.corr != nil {
			if err := diagplot.SaveCoveragePNG(pr.corr, filepath.Join(dir, "coverage.png")); err != nil {
				return err
			}
			scatter, err := diagplot.SectorScatter(pr.corr, pr.first, 20000)
			if err != nil {
				return err
			}
			charts = append(charts, scatter)
		}
	}
	charts = append(charts, diagplot.TimingBar("Pipeline timings", timings))
	return diagplot.SavePageHTML(filepath.Join(dir, "report.html"), charts...)
}

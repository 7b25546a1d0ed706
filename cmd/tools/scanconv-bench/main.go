// Package main provides a benchmarking tool for ultrasound scan conversion.
// It converts synthetic r-theta frames with the sparse-warp and/or
// precompute/apply pipelines and reports timings, optional diagnostics plots
// and a JSON summary.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/banshee-data/scanconvert/internal/config"
	"github.com/banshee-data/scanconvert/internal/monitoring"
	"github.com/banshee-data/scanconvert/internal/version"
)

// Config holds the command-line options.
type Config struct {
	ConfigPath string
	Pipeline   string // overrides the config file when set; "both" runs both
	Phantom    string
	Rows       int
	Cols       int
	Frames     int
	Seed       uint64
	LUTCache   string
	PlotDir    string
	OutputJSON string
	Verbose    bool
	Version    bool
}

func main() {
	cfg := parseFlags()

	if cfg.Version {
		fmt.Println("scanconv-bench", version.String())
		return
	}

	if cfg.Verbose {
		monitoring.SetLogWriters(monitoring.LogWriters{Ops: os.Stderr, Diag: os.Stderr, Trace: os.Stderr})
	} else {
		monitoring.SetLogWriters(monitoring.LogWriters{Ops: os.Stderr})
	}

	scanCfg := config.EmptyScanConfig()
	if cfg.ConfigPath != "" {
		loaded, err := config.LoadScanConfig(cfg.ConfigPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		scanCfg = loaded
	}
	if cfg.LUTCache != "" {
		scanCfg.LUTCachePath = &cfg.LUTCache
		if err := scanCfg.Validate(); err != nil {
			log.Fatalf("Invalid -lut-cache: %v", err)
		}
	}

	result, err := run(context.Background(), cfg, scanCfg)
	if err != nil {
		log.Fatalf("Benchmark failed: %v", err)
	}

	printResults(result)

	if cfg.OutputJSON != "" {
		if err := exportJSON(result, cfg.OutputJSON); err != nil {
			monitoring.Logf("Warning: failed to export JSON: %v", err)
		} else {
			monitoring.Logf("Results exported to: %s", cfg.OutputJSON)
		}
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.ConfigPath, "config", "", "Path to a scan conversion JSON config (defaults apply when empty)")
	flag.StringVar(&cfg.Pipeline, "pipeline", "", "Pipeline: sparse_warp, interpolate or both (default from config)")
	flag.StringVar(&cfg.Phantom, "phantom", "speckle", "Synthetic frame: constant, depth_gradient, lateral_gradient, targets, speckle")
	flag.IntVar(&cfg.Rows, "rows", 256, "Frame depth samples")
	flag.IntVar(&cfg.Cols, "cols", 128, "Frame scan lines")
	flag.IntVar(&cfg.Frames, "frames", 16, "Number of frames to convert")
	flag.Uint64Var(&cfg.Seed, "seed", 1, "Seed for speckle frames")
	flag.StringVar(&cfg.LUTCache, "lut-cache", "", "SQLite file caching precomputed lookup tables (.db)")
	flag.StringVar(&cfg.PlotDir, "plots", "", "Directory for PNG/HTML diagnostics (disabled when empty)")
	flag.StringVar(&cfg.OutputJSON, "json", "", "Write a JSON summary to this path")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Enable diag and trace logging")
	flag.BoolVar(&cfg.Version, "version", false, "Print version and exit")

	flag.Parse()

	return cfg
}

func printResults(r *Result) {
	fmt.Printf("run %s (%s): %s phantom %dx%d, %d frames\n", r.RunID, r.Version, r.Phantom, r.Rows, r.Cols, r.Frames)
	for _, p := range r.Pipelines {
		fmt.Printf("  %-12s setup %8.2fms  total %8.2fms  per-frame %8.3fms  out %dx%d",
			p.Name, p.SetupMs, p.TotalMs, p.PerFrameMs, p.OutRows, p.OutCols)
		if p.Name == string(config.PipelineInterpolate) {
			fmt.Printf("  points %d  degenerate %d  cache-hit %v", p.Points, p.Degenerate, p.CacheHit)
		}
		fmt.Println()
	}
	if r.PlotDir != "" {
		fmt.Printf("  plots in %s\n", r.PlotDir)
	}
}

func exportJSON(r *Result, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

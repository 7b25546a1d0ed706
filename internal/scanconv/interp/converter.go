package interp

import (
	"context"
	"fmt"
	"runtime"

	"github.com/banshee-data/scanconvert/internal/monitoring"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Converter applies one Correspondence to a stream of frames.
type Converter struct {
	corr    *Correspondence
	workers int
}

// NewConverter wraps corr. workers bounds parallelism for both single frames
// and batches; zero uses GOMAXPROCS.
func NewConverter(corr *Correspondence, workers int) (*Converter, error) {
	if corr == nil || corr.Canvas == nil {
		return nil, fmt.Errorf("converter needs a precomputed correspondence")
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Converter{corr: corr, workers: workers}, nil
}

// Correspondence returns the lookup tables the converter applies.
func (cv *Converter) Correspondence() *Correspondence {
	return cv.corr
}

// Convert converts a single frame.
func (cv *Converter) Convert(ctx context.Context, frame *mat.Dense) (*mat.Dense, error) {
	return cv.corr.ApplyContext(ctx, frame, cv.workers)
}

// ConvertBatch converts frames concurrently, one goroutine per frame up to the
// worker bound. Output order matches input order. The first failure cancels
// the remaining frames.
func (cv *Converter) ConvertBatch(ctx context.Context, frames []*mat.Dense) ([]*mat.Dense, error) {
	out := make([]*mat.Dense, len(frames))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cv.workers)
	for i, f := range frames {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := cv.corr.ApplyContext(gctx, f, 1)
			if err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		monitoring.Opsf("batch conversion failed: %v", err)
		return nil, err
	}
	return out, nil
}

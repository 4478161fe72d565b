package sim

import (
	"context"
	"runtime"

	"github.com/san-kum/sdesim/internal/dynamo"
	"golang.org/x/sync/errgroup"
)

// Build constructs the simulator for one entry of a sweep.
type Build func(dt float64) (*Simulator, error)

// Sweep integrates y0 over ts once per step size, concurrently. Results
// are returned in the order of dts. The first failure cancels the rest.
// onDone, when not nil, is called from the worker after each success.
func Sweep(ctx context.Context, dts []float64, y0 dynamo.State, ts []float64, build Build, onDone func(dt float64)) ([]*Result, error) {
	results := make([]*Result, len(dts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, dt := range dts {
		g.Go(func() error {
			s, err := build(dt)
			if err != nil {
				return err
			}
			res, err := s.Run(ctx, y0, ts)
			if err != nil {
				return err
			}
			results[i] = res
			if onDone != nil {
				onDone(dt)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

package harness

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Outcome is the result of one scenario in a batch. Err is set when the
// run aborted; Result is then nil.
type Outcome struct {
	Scenario *Scenario
	Result   *Result
	Err      error
}

// RunEach runs scenarios concurrently, at most jobs at a time (unlimited if
// jobs <= 0). Each scenario gets its own system, so one aborting does not
// affect the others. Scenarios not yet started when ctx is cancelled report
// ctx.Err(). Outcomes are returned in input order.
func RunEach(ctx context.Context, scenarios []*Scenario, jobs int, opts ...Option) []Outcome {
	out := make([]Outcome, len(scenarios))

	var g errgroup.Group
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, sc := range scenarios {
		out[i].Scenario = sc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i].Err = err
				return nil
			}
			out[i].Result, out[i].Err = Run(sc, opts...)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// RunAll is RunEach for callers that treat any aborted scenario as fatal.
// It returns the first error in input order.
func RunAll(ctx context.Context, scenarios []*Scenario, jobs int, opts ...Option) ([]*Result, error) {
	results := make([]*Result, len(scenarios))
	for i, o := range RunEach(ctx, scenarios, jobs, opts...) {
		if o.Err != nil {
			return nil, fmt.Errorf("scenario %s: %w", o.Scenario.Name, o.Err)
		}
		results[i] = o.Result
	}
	return results, nil
}

package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/slotgraph/internal/value"
)

// TraceValue converts a trace to a value.Object so it can be written as
// canonical JSON. Commit events carry id and changes; apply events carry
// applied and skipped.
func TraceValue(name string, trace []TraceEvent) value.Object {
	events := make(value.Array, len(trace))
	for i, ev := range trace {
		obj := value.Object{
			"step":    value.Int(ev.Step),
			"op":      value.String(ev.Type),
			"context": value.String(ev.Context),
			"commit":  value.String(ev.Commit),
		}
		switch ev.Type {
		case EventCommit:
			obj["id"] = value.String(ev.ID)
			changes := make(value.Array, len(ev.Changes))
			for j, r := range ev.Changes {
				changes[j] = r.Object()
			}
			obj["changes"] = changes
		case EventApply:
			obj["applied"] = value.Int(ev.Applied)
			obj["skipped"] = value.Int(ev.Skipped)
		}
		events[i] = obj
	}

	return value.Object{
		"scenario": value.String(name),
		"trace":    events,
	}
}

// TraceJSON renders a trace as canonical JSON.
func TraceJSON(name string, trace []TraceEvent) ([]byte, error) {
	return value.MarshalCanonical(TraceValue(name, trace))
}

// RunWithGolden runs scenario and compares its trace against
// testdata/golden/<name>.golden. It also fails t if the scenario's
// expectations or assertions do not hold.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) error {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return err
	}
	if !result.Pass {
		t.Errorf("scenario %s failed: %v", scenario.Name, result.Errors)
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result's trace against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	traceJSON, err := TraceJSON(name, result.Trace)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, traceJSON)
	return nil
}

package graph

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/slotgraph/internal/testutil"
)

func newTestSystem(t *testing.T, opts ...Option) *System {
	t.Helper()
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithIDGenerator(testutil.NewSequenceGenerator("commit")),
	}
	return NewSystem(append(base, opts...)...)
}

// closeAll discards whatever is pending, closes secondary contexts and then
// the system, and checks that no snapshot slot leaked.
func closeAll(t *testing.T, sys *System, ctxs ...*Context) {
	t.Helper()
	for _, c := range ctxs {
		c.Commit().Discard()
		c.Close()
	}
	sys.Main().Commit().Discard()
	require.Equal(t, 1, sys.Slots(), "slots still allocated before closing main")
	sys.Close()
}

// requireSymmetric checks parent/child symmetry for every pair in ctx.
func requireSymmetric(t *testing.T, ctx *Context, nodes []*Node) {
	t.Helper()
	for _, p := range nodes {
		if !p.IsMapped(ctx) {
			continue
		}
		for _, c := range p.Children(ctx) {
			require.Contains(t, c.Parents(ctx), p, "%s lists %s as child but not vice versa", p, c)
		}
		for _, q := range p.Parents(ctx) {
			require.True(t, q.HasChild(ctx, p), "%s lists %s as parent but not vice versa", p, q)
		}
	}
}

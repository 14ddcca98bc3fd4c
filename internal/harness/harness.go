package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"

	"github.com/roach88/slotgraph/internal/graph"
	"github.com/roach88/slotgraph/internal/journal"
	"github.com/roach88/slotgraph/internal/testutil"
	"github.com/roach88/slotgraph/internal/value"
)

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	journal  *journal.Store
	observer graph.Observer
	logger   *slog.Logger
}

// WithJournal writes every commit taken by the scenario to store, using
// the scenario name as the stream.
func WithJournal(store *journal.Store) Option {
	return func(c *runConfig) { c.journal = store }
}

// WithObserver installs an observer on the scenario's system.
func WithObserver(o graph.Observer) Option {
	return func(c *runConfig) { c.observer = o }
}

// WithLogger sets the system logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// Harness holds one scenario's system and the names it binds.
type Harness struct {
	scenario *Scenario
	sys      *graph.System
	journal  *journal.Store
	result   *Result

	contexts map[string]*graph.Context
	nodes    map[string]*graph.Node
	attrs    map[string]*graph.Attribute
	commits  map[string]*graph.Commit
	names    map[*graph.Node]string
}

// Run executes a scenario against a fresh system and returns the result.
//
// Commit IDs are "<scenario name>-001", "-002", ... so traces are
// reproducible. A step that names an unknown entity, or that breaks a graph
// invariant, aborts the run with an error. Failed expectations and
// assertions are reported in the Result instead.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	sysOpts := []graph.Option{
		graph.WithLogger(cfg.logger),
		graph.WithIDGenerator(testutil.NewSequenceGenerator(scenario.Name)),
	}
	if cfg.observer != nil {
		sysOpts = append(sysOpts, graph.WithObserver(cfg.observer))
	}

	h := &Harness{
		scenario: scenario,
		sys:      graph.NewSystem(sysOpts...),
		journal:  cfg.journal,
		result:   NewResult(scenario.Name),
		contexts: make(map[string]*graph.Context),
		nodes:    make(map[string]*graph.Node),
		attrs:    make(map[string]*graph.Attribute),
		commits:  make(map[string]*graph.Commit),
		names:    make(map[*graph.Node]string),
	}
	h.contexts[mainContext] = h.sys.Main()

	ctx := context.Background()
	for i, step := range scenario.Steps {
		if err := h.runStep(ctx, i, step); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
	}

	for i, a := range scenario.Assertions {
		if err := h.evaluate(a); err != nil {
			h.result.AddError(fmt.Sprintf("assertions[%d] (%s): %v", i, a.Type, err))
		}
	}

	if err := h.teardown(); err != nil {
		return nil, err
	}
	return h.result, nil
}

// runStep executes one step, converting invariant panics into errors.
func (h *Harness) runStep(ctx context.Context, i int, st Step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()

	c, err := h.context(st.Context)
	if err != nil {
		return err
	}

	switch st.Op {
	case OpContext:
		if _, dup := h.contexts[st.Name]; dup {
			return fmt.Errorf("context %q already exists", st.Name)
		}
		h.contexts[st.Name] = h.sys.NewContext()

	case OpNode:
		if _, dup := h.nodes[st.Name]; dup {
			return fmt.Errorf("node %q already exists", st.Name)
		}
		label := st.Label
		if label == "" {
			label = st.Name
		}
		n := graph.NewNode(c, label)
		h.nodes[st.Name] = n
		h.names[n] = st.Name

	case OpAttribute:
		if _, dup := h.attrs[st.Name]; dup {
			return fmt.Errorf("attribute %q already exists", st.Name)
		}
		v, err := value.From(st.Value)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", st.Name, err)
		}
		h.attrs[st.Name] = graph.NewAttribute(c, st.Name, v)

	case OpInsert, OpErase:
		return h.link(c, i, st)

	case OpSet:
		a, err := h.attribute(st.Attribute)
		if err != nil {
			return err
		}
		v, err := value.From(st.Value)
		if err != nil {
			return fmt.Errorf("set %q: %w", st.Attribute, err)
		}
		a.Set(c, v)

	case OpMap:
		return h.mapStep(c, i, st)

	case OpUnmap:
		n, err := h.node(st.Node)
		if err != nil {
			return err
		}
		c.Unmap(n)

	case OpCommit:
		return h.commit(ctx, c, i, st)

	case OpApply:
		cm, ok := h.commits[st.Commit]
		if !ok {
			return fmt.Errorf("unknown commit %q", st.Commit)
		}
		res := c.Apply(cm)
		h.result.AddApplyTrace(i, contextName(st.Context), st.Commit, res)
		if e := st.Expect; e != nil {
			h.expectInt(i, "applied", e.Applied, res.Applied)
			h.expectInt(i, "skipped", e.Skipped, res.Skipped)
		}

	case OpDiscard:
		if st.Commit != "" {
			cm, ok := h.commits[st.Commit]
			if !ok {
				return fmt.Errorf("unknown commit %q", st.Commit)
			}
			cm.Discard()
			return nil
		}
		c.Commit().Discard()

	case OpClose:
		c.Close()
		delete(h.contexts, st.Context)

	case OpRelease:
		if st.Node != "" {
			n, err := h.node(st.Node)
			if err != nil {
				return err
			}
			n.Release()
			return nil
		}
		a, err := h.attribute(st.Attribute)
		if err != nil {
			return err
		}
		a.Release()

	default:
		return fmt.Errorf("unknown op %q", st.Op)
	}
	return nil
}

func (h *Harness) link(c *graph.Context, i int, st Step) error {
	n, err := h.node(st.Node)
	if err != nil {
		return err
	}

	var changed bool
	if st.Child != "" {
		child, err := h.node(st.Child)
		if err != nil {
			return err
		}
		if st.Op == OpInsert {
			changed = n.Insert(c, child)
		} else {
			changed = n.Erase(c, child)
		}
	} else {
		a, err := h.attribute(st.Attribute)
		if err != nil {
			return err
		}
		if st.Op == OpInsert {
			changed = n.InsertAttribute(c, a)
		} else {
			changed = n.EraseAttribute(c, a)
		}
	}

	if st.Expect != nil && st.Expect.Changed != nil && *st.Expect.Changed != changed {
		h.result.AddError(fmt.Sprintf("steps[%d] (%s): changed = %t, expected %t", i, st.Op, changed, *st.Expect.Changed))
	}
	return nil
}

func (h *Harness) mapStep(c *graph.Context, i int, st Step) error {
	target, err := h.context(st.Target)
	if err != nil {
		return err
	}

	if st.Node != "" {
		n, nerr := h.node(st.Node)
		if nerr != nil {
			return nerr
		}
		err = c.Map(n, target)
	} else {
		a, aerr := h.attribute(st.Attribute)
		if aerr != nil {
			return aerr
		}
		err = c.MapAttribute(a, target)
	}

	want := ""
	if st.Expect != nil {
		want = st.Expect.Error
	}
	var ce *graph.ContextError
	switch {
	case err == nil && want == "":
		return nil
	case err == nil:
		h.result.AddError(fmt.Sprintf("steps[%d] (map): succeeded, expected error %s", i, want))
		return nil
	case want == "":
		return err
	case errors.As(err, &ce) && string(ce.Code) == want:
		return nil
	default:
		h.result.AddError(fmt.Sprintf("steps[%d] (map): error %v, expected %s", i, err, want))
		return nil
	}
}

func (h *Harness) commit(ctx context.Context, c *graph.Context, i int, st Step) error {
	if _, dup := h.commits[st.Name]; dup {
		return fmt.Errorf("commit %q already exists", st.Name)
	}
	cm := c.Commit()
	h.commits[st.Name] = cm
	h.result.AddCommitTrace(i, contextName(st.Context), st.Name, cm)

	if st.Expect != nil {
		h.expectInt(i, "changes", st.Expect.Changes, cm.Len())
	}

	if h.journal != nil {
		jc, err := journal.FromCommit(h.scenario.Name, cm)
		if err != nil {
			return err
		}
		if _, _, err := h.journal.WriteCommit(ctx, jc); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harness) expectInt(i int, field string, want *int, got int) {
	if want != nil && *want != got {
		h.result.AddError(fmt.Sprintf("steps[%d] (%s): %s = %d, expected %d", i, h.scenario.Steps[i].Op, field, got, *want))
	}
}

// teardown releases every commit and context so the system closes cleanly.
func (h *Harness) teardown() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("teardown: %w", recovered(r))
		}
	}()

	for _, name := range sortedKeys(h.commits) {
		h.commits[name].Discard()
	}
	for _, name := range sortedKeys(h.contexts) {
		if name == mainContext {
			continue
		}
		c := h.contexts[name]
		c.Commit().Discard()
		c.Close()
	}
	h.sys.Main().Commit().Discard()
	h.sys.Close()
	return nil
}

func (h *Harness) context(name string) (*graph.Context, error) {
	c, ok := h.contexts[contextName(name)]
	if !ok {
		return nil, fmt.Errorf("unknown context %q", name)
	}
	return c, nil
}

func (h *Harness) node(name string) (*graph.Node, error) {
	n, ok := h.nodes[name]
	if !ok {
		return nil, fmt.Errorf("unknown node %q", name)
	}
	return n, nil
}

func (h *Harness) attribute(name string) (*graph.Attribute, error) {
	a, ok := h.attrs[name]
	if !ok {
		return nil, fmt.Errorf("unknown attribute %q", name)
	}
	return a, nil
}

func contextName(name string) string {
	if name == "" {
		return mainContext
	}
	return name
}

// recovered turns a recovered panic value into an error.
func recovered(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// nodeNames maps nodes back to their scenario names.
func (h *Harness) nodeNames(nodes []*graph.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		name, ok := h.names[n]
		if !ok {
			name = n.Key()
		}
		out = append(out, name)
	}
	return slices.Clip(out)
}

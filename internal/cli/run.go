package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/roach88/slotgraph/internal/harness"
	"github.com/roach88/slotgraph/internal/journal"
	"github.com/roach88/slotgraph/internal/metrics"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string // journal path; empty disables journaling
	Jobs     int    // concurrent scenarios
	Metrics  string // metrics output path; "-" for stderr
	Update   bool   // regenerate golden files
	Filter   string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario.
type ScenarioResult struct {
	Name    string   `json:"name"`
	File    string   `json:"file"`
	Pass    bool     `json:"pass"`
	Commits int      `json:"commits"`
	Errors  []string `json:"errors,omitempty"`
}

// RunResult holds the overall run result.
type RunResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <path>...",
		Short: "Run scenario files",
		Long: `Run YAML or CUE scenario files against fresh graph systems.

Each path is a scenario file or a directory searched recursively. Every
scenario runs in its own system; --jobs bounds how many run at once.
When <dir>/golden/<file>.golden exists next to a scenario, its commit
trace must match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, journal errors, etc.)

Examples:
  slotgraph run ./scenarios
  slotgraph run ./scenarios --filter "relay_*" --jobs 4
  slotgraph run ./scenarios --db ./journal.db
  slotgraph run ./scenarios --update
  slotgraph run ./scenarios --metrics - --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal commits to this SQLite database")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 4, "scenarios to run concurrently (0 = unlimited)")
	cmd.Flags().StringVar(&opts.Metrics, "metrics", "", "write Prometheus metrics to this file (- for stderr)")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runScenarios(ctx context.Context, opts *RunOptions, paths []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	log := opts.logger()

	files, err := FindScenarioFiles(paths, opts.Filter)
	if err != nil {
		return loadFailure(formatter, err)
	}
	if len(files) == 0 {
		if formatter.JSON() {
			return formatter.Success(RunResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}
	formatter.VerboseLog("Found %d scenario file(s)", len(files))

	loaded, loadErrs := LoadScenarios(files)

	runOpts := []harness.Option{harness.WithLogger(log)}
	if opts.Database != "" {
		store, err := journal.Open(opts.Database)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer store.Close()
		runOpts = append(runOpts, harness.WithJournal(store))
	}

	var reg *prometheus.Registry
	if opts.Metrics != "" {
		reg = prometheus.NewRegistry()
		collector, err := metrics.NewCollector(reg)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to register metrics", err)
		}
		runOpts = append(runOpts, harness.WithObserver(collector))
	}

	scenarios := make([]*harness.Scenario, len(loaded))
	for i, l := range loaded {
		scenarios[i] = l.Scenario
	}
	outcomes := harness.RunEach(ctx, scenarios, opts.Jobs, runOpts...)

	result := RunResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, err := range loadErrs {
		var le *LoadError
		path := ""
		if errors.As(err, &le) {
			path = le.Path
		}
		result.Scenarios = append(result.Scenarios, ScenarioResult{
			Name:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			File:   path,
			Errors: []string{err.Error()},
		})
	}
	for i, o := range outcomes {
		sr := checkOutcome(loaded[i].Path, o, opts.Update)
		log.Debug("scenario finished", "scenario", sr.Name, "pass", sr.Pass, "commits", sr.Commits)
		result.Scenarios = append(result.Scenarios, sr)
	}
	for _, sr := range result.Scenarios {
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if reg != nil {
		if err := writeMetrics(reg, opts.Metrics, cmd.ErrOrStderr()); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}

	if formatter.JSON() {
		return outputRunJSON(formatter, result)
	}
	return outputRunText(formatter, result)
}

// checkOutcome turns a harness outcome into a ScenarioResult, comparing or
// updating the golden trace when one applies.
func checkOutcome(path string, o harness.Outcome, update bool) ScenarioResult {
	sr := ScenarioResult{Name: o.Scenario.Name, File: path}
	if o.Err != nil {
		sr.Errors = []string{fmt.Sprintf("execution failed: %v", o.Err)}
		return sr
	}

	res := o.Result
	for _, ev := range res.Trace {
		if ev.Type == harness.EventCommit {
			sr.Commits++
		}
	}
	sr.Errors = append(sr.Errors, res.Errors...)
	sr.Pass = res.Pass

	trace, err := harness.TraceJSON(res.Name, res.Trace)
	if err != nil {
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("failed to marshal trace: %v", err))
		return sr
	}

	goldenPath := goldenFilePath(path)
	if update {
		if err := writeGolden(goldenPath, trace); err != nil {
			sr.Pass = false
			sr.Errors = append(sr.Errors, err.Error())
		}
		return sr
	}

	golden, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		return sr
	}
	if err != nil {
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("failed to read golden file: %v", err))
		return sr
	}
	if !bytes.Equal(golden, trace) {
		sr.Pass = false
		sr.Errors = append(sr.Errors, "trace does not match golden file (run with --update to regenerate)")
	}
	return sr
}

// goldenFilePath returns <dir>/golden/<base>.golden for a scenario file.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// writeMetrics writes reg in the Prometheus text format to path, or to
// stderr when path is "-".
func writeMetrics(reg *prometheus.Registry, path string, stderr io.Writer) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return err
		}
	}

	if path == "-" {
		_, err = stderr.Write(buf.Bytes())
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func loadFailure(f *OutputFormatter, err error) error {
	code := ErrCodeGeneric
	var le *LoadError
	if errors.As(err, &le) {
		code = le.Code
	}
	_ = f.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, "failed to find scenarios", err)
}

func outputRunJSON(f *OutputFormatter, result RunResult) error {
	if result.Failed == 0 {
		return f.Success(result)
	}
	msg := fmt.Sprintf("%d scenario(s) failed", result.Failed)
	if err := f.Failure("E_RUN_FAILED", msg, result); err != nil {
		return err
	}
	return NewExitError(ExitFailure, msg)
}

func outputRunText(f *OutputFormatter, result RunResult) error {
	w := f.Writer
	for _, sr := range result.Scenarios {
		if sr.Pass {
			fmt.Fprintf(w, "✓ %s (%d commits)\n", sr.Name, sr.Commits)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Run Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}

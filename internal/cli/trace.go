package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/slotgraph/internal/graph"
	"github.com/roach88/slotgraph/internal/journal"
	"github.com/roach88/slotgraph/internal/value"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Stream   string // list commits of this stream; empty lists all
	Commit   string // show one commit
	Verify   bool   // recompute digests
}

// CommitSummary is one row of a commit listing.
type CommitSummary struct {
	Seq      int64  `json:"seq"`
	ID       string `json:"id"`
	Stream   string `json:"stream"`
	Source   int    `json:"source"`
	Changes  int    `json:"changes"`
	Digest   string `json:"digest"`
	Verified *bool  `json:"verified,omitempty"`
}

// CommitDetail is a commit with its changes.
type CommitDetail struct {
	CommitSummary
	Records []any `json:"records"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect journaled commits",
		Long: `List or show commits written to a journal by "run --db".

Without --commit, lists commit headers in journal order, optionally
restricted to one stream (scenario name). With --commit, shows that
commit's changes. --verify recomputes each commit's digest from its
stored changes and fails on a mismatch.

Examples:
  slotgraph trace --db ./journal.db
  slotgraph trace --db ./journal.db --stream replay_insert --verify
  slotgraph trace --db ./journal.db --commit replay_insert-001 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to journal database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Stream, "stream", "", "only list commits of this stream")
	cmd.Flags().StringVar(&opts.Commit, "commit", "", "show a single commit by ID")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "recompute and check commit digests")

	return cmd
}

func runTrace(ctx context.Context, opts *TraceOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := journal.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Commit != "" {
		return showCommit(ctx, st, opts, formatter)
	}
	return listCommits(ctx, st, opts, formatter)
}

func listCommits(ctx context.Context, st *journal.Store, opts *TraceOptions, f *OutputFormatter) error {
	commits, err := st.ListCommits(ctx, opts.Stream)
	if err != nil {
		_ = f.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list commits", err)
	}

	rows := make([]CommitSummary, 0, len(commits))
	mismatches := 0
	for _, c := range commits {
		row := summarize(c)
		if opts.Verify {
			ok, err := verify(ctx, st, c.ID)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to verify commit", err)
			}
			row.Verified = &ok
			if !ok {
				mismatches++
			}
		}
		rows = append(rows, row)
	}

	if f.JSON() {
		if mismatches > 0 {
			msg := fmt.Sprintf("%d commit(s) failed verification", mismatches)
			if err := f.Failure(ErrCodeDigest, msg, rows); err != nil {
				return err
			}
			return NewExitError(ExitFailure, msg)
		}
		return f.Success(rows)
	}

	w := f.Writer
	if len(rows) == 0 {
		fmt.Fprintln(w, "No commits found.")
		return nil
	}
	for _, r := range rows {
		fmt.Fprintf(w, "[%d] %s stream=%s source=%d changes=%d%s\n",
			r.Seq, r.ID, r.Stream, r.Source, r.Changes, verifiedSuffix(r.Verified))
		if f.Verbose {
			fmt.Fprintf(w, "     digest: %s\n", r.Digest)
		}
	}
	if mismatches > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d commit(s) failed verification", mismatches))
	}
	return nil
}

func showCommit(ctx context.Context, st *journal.Store, opts *TraceOptions, f *OutputFormatter) error {
	c, err := st.ReadCommit(ctx, opts.Commit)
	if errors.Is(err, journal.ErrNotFound) {
		_ = f.Error(ErrCodeNotFound, fmt.Sprintf("commit %s not found", opts.Commit), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("commit %s not found", opts.Commit))
	}
	if err != nil {
		_ = f.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read commit", err)
	}

	detail := CommitDetail{CommitSummary: summarize(c), Records: make([]any, len(c.Records))}
	for i, r := range c.Records {
		detail.Records[i] = value.ToAny(r.Object())
	}
	if opts.Verify {
		ok, err := verify(ctx, st, c.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to verify commit", err)
		}
		detail.Verified = &ok
	}
	failed := detail.Verified != nil && !*detail.Verified

	if f.JSON() {
		if failed {
			if err := f.Failure(ErrCodeDigest, "digest mismatch", detail); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "digest mismatch")
		}
		return f.Success(detail)
	}

	w := f.Writer
	fmt.Fprintf(w, "Commit: %s\n", c.ID)
	fmt.Fprintf(w, "Stream: %s  Source: %d  Seq: %d%s\n", c.Stream, c.Source, c.Seq, verifiedSuffix(detail.Verified))
	fmt.Fprintf(w, "Digest: %s\n", c.Digest)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Changes ===")
	if len(c.Records) == 0 {
		fmt.Fprintln(w, "  (no changes)")
	}
	for _, r := range c.Records {
		formatRecord(w, r)
	}
	if failed {
		return NewExitError(ExitFailure, "digest mismatch")
	}
	return nil
}

// verify reports false for a digest mismatch and returns other errors.
func verify(ctx context.Context, st *journal.Store, id string) (bool, error) {
	err := st.Verify(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, journal.ErrDigestMismatch) {
		return false, nil
	}
	return false, err
}

func summarize(c journal.Commit) CommitSummary {
	return CommitSummary{
		Seq:     c.Seq,
		ID:      c.ID,
		Stream:  c.Stream,
		Source:  c.Source,
		Changes: c.ChangeCount,
		Digest:  c.Digest,
	}
}

func formatRecord(w io.Writer, r graph.Record) {
	switch r.Type {
	case graph.NodeInsert, graph.NodeErase:
		fmt.Fprintf(w, "  [%d] %s %s -> %s\n", r.Seq, r.Type, r.Node, r.Child)
	case graph.AttributeInsert, graph.AttributeErase:
		fmt.Fprintf(w, "  [%d] %s %s @%s\n", r.Seq, r.Type, r.Node, r.Attribute)
	case graph.AttributeChanged:
		v, err := value.MarshalCanonical(r.Value)
		if err != nil {
			v = []byte("?")
		}
		fmt.Fprintf(w, "  [%d] %s @%s = %s\n", r.Seq, r.Type, r.Attribute, v)
	default:
		fmt.Fprintf(w, "  [%d] %s\n", r.Seq, r.Type)
	}
}

func verifiedSuffix(v *bool) string {
	switch {
	case v == nil:
		return ""
	case *v:
		return " verified"
	default:
		return " DIGEST MISMATCH"
	}
}

package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/slotgraph/internal/graph"
)

// ErrNotFound is returned when a commit ID is not journaled.
var ErrNotFound = errors.New("commit not found")

// ErrDigestMismatch is returned by Verify when stored changes no longer
// hash to the stored digest.
var ErrDigestMismatch = errors.New("digest mismatch")

// ReadCommit returns the commit with id and its change rows.
// Returns an error wrapping ErrNotFound if id is unknown.
func (s *Store) ReadCommit(ctx context.Context, id string) (Commit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, stream, source, digest, change_count
		FROM commits
		WHERE id = ?
	`, id)

	c, err := scanCommit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Commit{}, fmt.Errorf("read commit %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Commit{}, fmt.Errorf("read commit %s: %w", id, err)
	}

	c.Records, err = s.readChanges(ctx, id)
	if err != nil {
		return Commit{}, fmt.Errorf("read commit %s: %w", id, err)
	}
	return c, nil
}

// ListCommits returns commit headers ordered by seq. An empty stream lists
// every stream. Records are not loaded; use ReadCommit.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListCommits(ctx context.Context, stream string) ([]Commit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, stream, source, digest, change_count
		FROM commits
		WHERE ? = '' OR stream = ?
		ORDER BY seq ASC
	`, stream, stream)
	if err != nil {
		return nil, fmt.Errorf("query commits: %w", err)
	}
	defer rows.Close()

	commits := []Commit{}
	for rows.Next() {
		c, err := scanCommit(rows)
		if err != nil {
			return nil, err
		}
		commits = append(commits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commits: %w", err)
	}
	return commits, nil
}

// LastSeq returns the highest journal seq, or 0 for an empty journal.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM commits`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

// Verify recomputes the digest of a stored commit from its change rows and
// compares it with the digest recorded at write time.
func (s *Store) Verify(ctx context.Context, id string) error {
	c, err := s.ReadCommit(ctx, id)
	if err != nil {
		return err
	}
	got, err := graph.DigestRecords(c.Records)
	if err != nil {
		return fmt.Errorf("verify commit %s: %w", id, err)
	}
	if got != c.Digest {
		return fmt.Errorf("verify commit %s: %w: stored %s, computed %s", id, ErrDigestMismatch, c.Digest, got)
	}
	return nil
}

func (s *Store) readChanges(ctx context.Context, commitID string) ([]graph.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, type, node, child, attribute, value
		FROM changes
		WHERE commit_id = ?
		ORDER BY idx ASC
	`, commitID)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	records := []graph.Record{}
	for rows.Next() {
		var r graph.Record
		var typ string
		var val sql.NullString
		if err := rows.Scan(&r.Seq, &typ, &r.Node, &r.Child, &r.Attribute, &val); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		if r.Type, err = graph.ParseChangeType(typ); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		if r.Value, err = unmarshalValue(val); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}
	return records, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCommit(row scanner) (Commit, error) {
	var c Commit
	err := row.Scan(&c.Seq, &c.ID, &c.Stream, &c.Source, &c.Digest, &c.ChangeCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Commit{}, err
		}
		return Commit{}, fmt.Errorf("scan commit: %w", err)
	}
	return c, nil
}

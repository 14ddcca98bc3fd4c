package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/slotgraph/internal/graph"
)

// WriteCommit stores c and its change rows in one transaction.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing a commit ID that
// is already journaled returns the existing seq with inserted=false and
// leaves the stored rows untouched.
func (s *Store) WriteCommit(ctx context.Context, c Commit) (seq int64, inserted bool, err error) {
	if c.ID == "" {
		return 0, false, fmt.Errorf("write commit: empty commit ID")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("write commit: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO commits (id, stream, source, digest, change_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, c.ID, c.Stream, c.Source, c.Digest, len(c.Records))
	if err != nil {
		return 0, false, fmt.Errorf("write commit %s: %w", c.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("write commit %s: rows affected: %w", c.ID, err)
	}
	if affected == 0 {
		err := tx.QueryRowContext(ctx, `SELECT seq FROM commits WHERE id = ?`, c.ID).Scan(&seq)
		if err != nil {
			return 0, false, fmt.Errorf("write commit %s: lookup existing: %w", c.ID, err)
		}
		return seq, false, nil
	}

	seq, err = result.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("write commit %s: last insert id: %w", c.ID, err)
	}

	for i, r := range c.Records {
		if err := writeChange(ctx, tx, c.ID, i, r); err != nil {
			return 0, false, fmt.Errorf("write commit %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("write commit %s: commit tx: %w", c.ID, err)
	}
	return seq, true, nil
}

func writeChange(ctx context.Context, tx *sql.Tx, commitID string, idx int, r graph.Record) error {
	val, err := marshalValue(r.Value)
	if err != nil {
		return fmt.Errorf("change %d: %w", idx, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO changes (commit_id, idx, seq, type, node, child, attribute, value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, commitID, idx, r.Seq, r.Type.String(), r.Node, r.Child, r.Attribute, val)
	if err != nil {
		return fmt.Errorf("change %d: %w", idx, err)
	}
	return nil
}

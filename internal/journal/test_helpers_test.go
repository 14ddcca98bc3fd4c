package journal

import (
	"path/filepath"
	"testing"

	"github.com/roach88/slotgraph/internal/graph"
	"github.com/roach88/slotgraph/internal/testutil"
	"github.com/roach88/slotgraph/internal/value"
)

// createTestStore opens a journal in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestCommit builds a journal commit with n node inserts, using clock
// for change sequence numbers.
func createTestCommit(t *testing.T, id, stream string, clock *testutil.DeterministicClock, n int) Commit {
	t.Helper()
	records := make([]graph.Record, 0, n+1)
	for i := 0; i < n; i++ {
		records = append(records, graph.Record{
			Seq:   clock.Next(),
			Type:  graph.NodeInsert,
			Node:  "root#1",
			Child: "leaf#" + string(rune('2'+i)),
		})
	}
	records = append(records, graph.Record{
		Seq:       clock.Next(),
		Type:      graph.AttributeChanged,
		Attribute: "color",
		Value:     value.Object{"rgb": value.Array{value.Int(1), value.Int(2), value.Int(3)}},
	})

	digest, err := graph.DigestRecords(records)
	if err != nil {
		t.Fatalf("DigestRecords() failed: %v", err)
	}
	return Commit{
		ID:          id,
		Stream:      stream,
		Source:      0,
		Digest:      digest,
		ChangeCount: len(records),
		Records:     records,
	}
}

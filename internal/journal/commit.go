package journal

import (
	"fmt"

	"github.com/roach88/slotgraph/internal/graph"
)

// Commit is one journaled commit.
type Commit struct {
	// Seq is assigned by the journal on first write; zero before that.
	Seq int64

	// ID is the commit ID assigned at export.
	ID string

	// Stream groups commits, e.g. by scenario or producer.
	Stream string

	// Source is the slot of the context that recorded the commit.
	Source int

	// Digest is graph.DigestRecords over Records.
	Digest string

	// ChangeCount is len(Records); ListCommits fills it without loading rows.
	ChangeCount int

	// Records holds the change descriptions in recording order.
	Records []graph.Record
}

// FromCommit describes an exported commit for writing to stream.
// Call it before the commit is applied or discarded.
func FromCommit(stream string, cm *graph.Commit) (Commit, error) {
	digest, err := cm.Digest()
	if err != nil {
		return Commit{}, fmt.Errorf("journal commit %s: %w", cm.ID(), err)
	}
	records := cm.Records()
	return Commit{
		ID:          cm.ID(),
		Stream:      stream,
		Source:      cm.Source(),
		Digest:      digest,
		ChangeCount: len(records),
		Records:     records,
	}, nil
}

package graph

import (
	"github.com/roach88/slotgraph/internal/value"
)

// commitDigestDomain separates commit digests from other hashed content.
const commitDigestDomain = "slotgraph/commit/v1"

// Commit is the ordered log of changes one context recorded between two
// Commit calls. A commit is consumed exactly once, by Apply or Discard.
type Commit struct {
	id       string
	source   int
	changes  []*Change
	consumed bool
}

func newCommit(source int) *Commit {
	return &Commit{source: source}
}

// ID returns the identifier assigned when the commit was exported.
// Empty for a context's live pending log.
func (cm *Commit) ID() string {
	return cm.id
}

// Source returns the slot of the context that recorded the changes.
func (cm *Commit) Source() int {
	return cm.source
}

// Len returns the number of changes.
func (cm *Commit) Len() int {
	return len(cm.changes)
}

// Empty reports whether the commit holds no changes.
func (cm *Commit) Empty() bool {
	return len(cm.changes) == 0
}

// Changes returns the changes in recording order. The slice is a copy; the
// changes themselves are shared and must not outlive the commit.
func (cm *Commit) Changes() []*Change {
	out := make([]*Change, len(cm.changes))
	copy(out, cm.changes)
	return out
}

// Records describes every change in order.
func (cm *Commit) Records() []Record {
	out := make([]Record, 0, len(cm.changes))
	for _, ch := range cm.changes {
		out = append(out, ch.Record())
	}
	return out
}

// Digest returns a content hash over the canonical form of Records.
// Two commits describing the same edits to the same entities share a digest.
func (cm *Commit) Digest() (string, error) {
	return DigestRecords(cm.Records())
}

// DigestRecords hashes change descriptions the way Commit.Digest does, so a
// journaled commit can be checked against its stored rows.
func DigestRecords(records []Record) (string, error) {
	arr := make(value.Array, 0, len(records))
	for _, r := range records {
		arr = append(arr, r.Object())
	}
	return value.DigestValue(commitDigestDomain, arr)
}

// Discard releases the commit's changes without applying them.
// Discarding a consumed commit is a no-op.
func (cm *Commit) Discard() {
	if cm.consumed {
		return
	}
	cm.consumed = true
	for _, ch := range cm.changes {
		ch.release()
	}
	cm.changes = nil
}

// apply replays the changes against c in recording order, then releases
// them. Inserts and erases whose node is not mapped in c are skipped.
func (cm *Commit) apply(c *Context) ApplyResult {
	if cm.consumed {
		invariantf("commit %s applied twice", cm.id)
	}
	cm.consumed = true

	var res ApplyResult
	for _, ch := range cm.changes {
		if cm.replay(c, ch) {
			res.Applied++
			c.sys.observer.ChangeApplied(c.slot, ch.typ)
			continue
		}
		res.Skipped++
		c.sys.observer.ChangeSkipped(c.slot, ch.typ)
		c.sys.logger.Debug("change skipped",
			"slot", c.slot,
			"commit", cm.id,
			"seq", ch.seq,
			"change", ch.typ.String(),
			"node", ch.node.String(),
		)
	}

	for _, ch := range cm.changes {
		ch.release()
	}
	cm.changes = nil

	if res.Skipped > 0 {
		c.sys.logger.Info("commit applied with skips",
			"slot", c.slot,
			"commit", cm.id,
			"applied", res.Applied,
			"skipped", res.Skipped,
		)
	}
	return res
}

// replay performs one change against c. Returns false if it was skipped.
func (cm *Commit) replay(c *Context, ch *Change) bool {
	s := c.slot
	switch ch.typ {
	case NodeInsert:
		if !ch.node.cells.IsMapped(s) {
			return false
		}
		if ch.snapshot != nil && ch.child.cells.IsMapped(ch.snapshot.slot) {
			walk(ch.snapshot.slot, ch.child, &mapper{from: ch.snapshot.slot, to: c, adopt: true})
		}
		if !ch.child.cells.IsMapped(s) {
			return false
		}
		ch.node.Insert(c, ch.child)
		return true

	case NodeErase:
		if !ch.node.cells.IsMapped(s) {
			return false
		}
		ch.node.Erase(c, ch.child)
		return true

	case AttributeInsert:
		if !ch.node.cells.IsMapped(s) {
			return false
		}
		if ch.snapshot != nil && ch.attribute.cells.IsMapped(ch.snapshot.slot) {
			ch.attribute.mapSlot(ch.snapshot.slot, c)
		}
		if !ch.attribute.cells.IsMapped(s) {
			return false
		}
		ch.node.InsertAttribute(c, ch.attribute)
		return true

	case AttributeErase:
		if !ch.node.cells.IsMapped(s) {
			return false
		}
		ch.node.EraseAttribute(c, ch.attribute)
		return true

	case AttributeChanged:
		ch.attribute.Apply(c, ch)
		return true

	default:
		invariantf("unreachable: apply of %s change", ch.typ)
		return false
	}
}

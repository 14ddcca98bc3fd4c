package graph

import "sync/atomic"

// Clock is the monotonic logical clock stamping recorded changes.
// Each context owns one; seq values are strictly increasing per context
// and never reset by Commit.
type Clock struct {
	seq atomic.Int64
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

package journal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slotgraph/internal/graph"
	"github.com/roach88/slotgraph/internal/testutil"
	"github.com/roach88/slotgraph/internal/value"
)

func TestWriteCommit_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	clock := testutil.NewDeterministicClock()

	c := createTestCommit(t, "commit-001", "demo", clock, 2)
	seq, inserted, err := s.WriteCommit(ctx, c)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, int64(1), seq)

	got, err := s.ReadCommit(ctx, "commit-001")
	require.NoError(t, err)
	c.Seq = seq
	assert.Equal(t, c, got)
}

func TestWriteCommit_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	clock := testutil.NewDeterministicClock()

	first := createTestCommit(t, "commit-001", "demo", clock, 1)
	seq1, inserted, err := s.WriteCommit(ctx, first)
	require.NoError(t, err)
	require.True(t, inserted)

	// Same ID, different content: the first write wins.
	second := createTestCommit(t, "commit-001", "other", clock, 3)
	seq2, inserted, err := s.WriteCommit(ctx, second)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, seq1, seq2)

	got, err := s.ReadCommit(ctx, "commit-001")
	require.NoError(t, err)
	assert.Equal(t, "demo", got.Stream)
	assert.Len(t, got.Records, 2)

	var rows int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM changes").Scan(&rows))
	assert.Equal(t, 2, rows)
}

func TestWriteCommit_EmptyID(t *testing.T) {
	s := createTestStore(t)
	_, _, err := s.WriteCommit(context.Background(), Commit{})
	assert.Error(t, err)
}

func TestWriteCommit_EmptyCommit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	digest, err := graph.DigestRecords(nil)
	require.NoError(t, err)
	_, inserted, err := s.WriteCommit(ctx, Commit{ID: "empty", Stream: "s", Digest: digest})
	require.NoError(t, err)
	assert.True(t, inserted)

	got, err := s.ReadCommit(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, got.Records)
	assert.NoError(t, s.Verify(ctx, "empty"))
}

func TestFromCommit_JournalsExportedCommit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sys := graph.NewSystem(
		graph.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		graph.WithIDGenerator(testutil.NewSequenceGenerator("run")),
	)
	main := sys.Main()
	c1 := sys.NewContext()
	a := graph.NewNode(main, "A")
	b := graph.NewNode(main, "B")
	x := graph.NewAttribute(main, "x", value.String("v0"))
	require.NoError(t, main.MapAttribute(x, c1))
	a.Insert(main, b)
	x.Set(main, value.String("v1"))

	cm := main.Commit()
	jc, err := FromCommit("scenario", cm)
	require.NoError(t, err)
	cm.Discard()

	_, inserted, err := s.WriteCommit(ctx, jc)
	require.NoError(t, err)
	require.True(t, inserted)
	require.NoError(t, s.Verify(ctx, "run-001"))

	got, err := s.ReadCommit(ctx, "run-001")
	require.NoError(t, err)
	assert.Equal(t, 2, got.ChangeCount)
	assert.Equal(t, graph.Record{Seq: 1, Type: graph.NodeInsert, Node: "A#1", Child: "B#2"}, got.Records[0])
	assert.Equal(t, value.String("v1"), got.Records[1].Value)

	c1.Commit().Discard()
	c1.Close()
	sys.Close()
}

func TestVerify_DetectsTampering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	clock := testutil.NewDeterministicClock()

	_, _, err := s.WriteCommit(ctx, createTestCommit(t, "c1", "demo", clock, 1))
	require.NoError(t, err)
	require.NoError(t, s.Verify(ctx, "c1"))

	_, err = s.db.Exec(`UPDATE changes SET child = 'intruder#9' WHERE commit_id = 'c1' AND idx = 0`)
	require.NoError(t, err)

	err = s.Verify(ctx, "c1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDigestMismatch)
	assert.Contains(t, err.Error(), "digest mismatch")

	err = s.Verify(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestWriteCommit_RejectsInvalidUTF8(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sys := graph.NewSystem(
		graph.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		graph.WithIDGenerator(testutil.NewSequenceGenerator("utf8")),
	)
	main := sys.Main()
	c1 := sys.NewContext()
	x := graph.NewAttribute(main, "x", value.String("ok"))
	require.NoError(t, main.MapAttribute(x, c1))
	x.Set(main, value.String("a\xffb"))

	cm := main.Commit()
	_, err := FromCommit("scenario", cm)
	assert.ErrorIs(t, err, value.ErrInvalidUTF8)
	cm.Discard()

	bad := Commit{
		ID:     "utf8-raw",
		Stream: "scenario",
		Digest: "0000",
		Records: []graph.Record{{
			Seq:       1,
			Type:      graph.AttributeChanged,
			Attribute: "x",
			Value:     value.String("a\xffb"),
		}},
	}
	_, _, err = s.WriteCommit(ctx, bad)
	assert.ErrorIs(t, err, value.ErrInvalidUTF8)

	// Nothing is journaled, so no row can fail verification later.
	err = s.Verify(ctx, "utf8-raw")
	assert.ErrorIs(t, err, ErrNotFound)

	c1.Commit().Discard()
	c1.Close()
	sys.Close()
}

func TestVerify_NonASCIIValue(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	records := []graph.Record{{
		Seq:       1,
		Type:      graph.AttributeChanged,
		Attribute: "x",
		Value:     value.Object{"label": value.String("caf\u00e9 \u2603 \U0001F600")},
	}}
	digest, err := graph.DigestRecords(records)
	require.NoError(t, err)

	_, _, err = s.WriteCommit(ctx, Commit{
		ID:          "unicode",
		Stream:      "scenario",
		Digest:      digest,
		ChangeCount: len(records),
		Records:     records,
	})
	require.NoError(t, err)
	assert.NoError(t, s.Verify(ctx, "unicode"))
}

func TestFromCommit_CollidingIDsKeepFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sys := graph.NewSystem(
		graph.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		graph.WithIDGenerator(testutil.NewFixedGenerator("")),
	)
	main := sys.Main()
	c1 := sys.NewContext()
	a := graph.NewNode(main, "A")
	b := graph.NewNode(main, "B")

	a.Insert(main, b)
	first := main.Commit()
	a.Erase(main, b)
	second := main.Commit()
	require.Equal(t, first.ID(), second.ID())

	jc1, err := FromCommit("s", first)
	require.NoError(t, err)
	jc2, err := FromCommit("s", second)
	require.NoError(t, err)
	first.Discard()
	second.Discard()

	seq1, inserted, err := s.WriteCommit(ctx, jc1)
	require.NoError(t, err)
	require.True(t, inserted)
	seq2, inserted, err := s.WriteCommit(ctx, jc2)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, seq1, seq2)

	got, err := s.ReadCommit(ctx, "commit-fixed")
	require.NoError(t, err)
	require.Len(t, got.Records, 1)
	assert.Equal(t, graph.NodeInsert, got.Records[0].Type)

	c1.Close()
	sys.Close()
}

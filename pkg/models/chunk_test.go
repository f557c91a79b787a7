package models

import (
	"strings"
	"testing"
)

func TestTruncatedDiff(t *testing.T) {
	chunk := Chunk{DiffText: strings.Repeat("x", DiffTruncationLimit+500)}
	got := chunk.TruncatedDiff()
	if !strings.HasSuffix(got, TruncationSentinel) {
		t.Error("expected truncation sentinel suffix")
	}
	if len(got) != DiffTruncationLimit+len(TruncationSentinel) {
		t.Errorf("truncated length = %d", len(got))
	}

	short := Chunk{DiffText: "small"}
	if short.TruncatedDiff() != "small" {
		t.Error("short diff should pass through unchanged")
	}
}

func TestChunkIDStable(t *testing.T) {
	a := Chunk{SHA: "abc", ChunkIndex: 0, TotalChunks: 2}
	b := Chunk{SHA: "abc", ChunkIndex: 0, TotalChunks: 2}
	if a.ID() != b.ID() {
		t.Error("identical chunk identities should hash equal")
	}
	c := Chunk{SHA: "abc", ChunkIndex: 1, TotalChunks: 2}
	if a.ID() == c.ID() {
		t.Error("distinct chunk indices should hash differently")
	}
}

func TestTotalLinesChanged(t *testing.T) {
	chunk := Chunk{LinesAdded: 7, LinesDeleted: 3}
	if chunk.TotalLinesChanged() != 10 {
		t.Errorf("TotalLinesChanged = %d, want 10", chunk.TotalLinesChanged())
	}
}

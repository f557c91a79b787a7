package models

import "github.com/RoaringBitmap/roaring/v2"

// ProcessedSet tracks participation IDs already analyzed in a run, so a
// resumed run never re-does or double-counts a team.
type ProcessedSet struct {
	bitmap *roaring.Bitmap
}

// NewProcessedSet creates an empty set.
func NewProcessedSet() *ProcessedSet {
	return &ProcessedSet{bitmap: roaring.New()}
}

// Mark records a participation as processed. Returns false if it was
// already present.
func (s *ProcessedSet) Mark(participationID int64) bool {
	return s.bitmap.CheckedAdd(uint32(participationID))
}

// Contains reports whether a participation was already processed.
func (s *ProcessedSet) Contains(participationID int64) bool {
	return s.bitmap.Contains(uint32(participationID))
}

// Count returns the number of processed participations.
func (s *ProcessedSet) Count() int {
	return int(s.bitmap.GetCardinality())
}

// Serialize returns the portable bitmap encoding for persistence.
func (s *ProcessedSet) Serialize() ([]byte, error) {
	return s.bitmap.ToBytes()
}

// DeserializeProcessedSet restores a set from its portable encoding.
func DeserializeProcessedSet(data []byte) (*ProcessedSet, error) {
	bm := roaring.New()
	if len(data) > 0 {
		if err := bm.UnmarshalBinary(data); err != nil {
			return nil, err
		}
	}
	return &ProcessedSet{bitmap: bm}, nil
}

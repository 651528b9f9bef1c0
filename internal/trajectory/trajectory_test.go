package trajectory

import (
	"math"
	"testing"
)

func TestStore_RecordAndGet(t *testing.T) {
	s := NewStore(Config{})
	s.Record(1, 0, 0, 0, nil)
	s.Record(1, 10, 0, 1, nil)

	got := s.Get(1)
	if len(got) != 2 {
		t.Fatalf("expected 2 points, got %d", len(got))
	}
	if got[1].X != 10 {
		t.Errorf("second point X = %v, want 10", got[1].X)
	}
}

func TestStore_GetUnknownIDReturnsEmpty(t *testing.T) {
	s := NewStore(Config{})
	if got := s.Get(999); len(got) != 0 {
		t.Errorf("expected empty slice for unknown id, got %d points", len(got))
	}
}

func TestStore_BoundedHistoryDropsOldest(t *testing.T) {
	s := NewStore(Config{MaxTrajectoryLength: 3})
	for i := 0; i < 5; i++ {
		s.Record(1, float64(i), 0, uint64(i), nil)
	}
	got := s.Get(1)
	if len(got) != 3 {
		t.Fatalf("expected bounded history of 3, got %d", len(got))
	}
	if got[0].X != 2 || got[2].X != 4 {
		t.Errorf("expected oldest points dropped, got X values %v, %v, %v", got[0].X, got[1].X, got[2].X)
	}
}

func TestStore_GetIsSnapshotCopy(t *testing.T) {
	s := NewStore(Config{})
	s.Record(1, 0, 0, 0, nil)
	got := s.Get(1)
	got[0].X = 999

	got2 := s.Get(1)
	if got2[0].X == 999 {
		t.Error("Get should return a copy, not a view into internal state")
	}
}

func TestStore_PruneInactive(t *testing.T) {
	s := NewStore(Config{})
	s.Record(1, 0, 0, 0, nil)
	s.Record(2, 0, 0, 0, nil)

	pruned := s.PruneInactive(map[int]bool{1: true})
	if _, ok := pruned[2]; !ok {
		t.Error("expected object 2 to be pruned")
	}
	if _, ok := pruned[1]; ok {
		t.Error("expected active object 1 not to be pruned")
	}
	if got := s.Get(2); len(got) != 0 {
		t.Error("pruned object's history should be gone from the store")
	}
	if got := s.Get(1); len(got) != 1 {
		t.Error("active object's history should remain")
	}
}

func TestStore_SummaryUnknownID(t *testing.T) {
	s := NewStore(Config{})
	_, ok := s.Summary(42)
	if ok {
		t.Error("expected ok=false for unknown object id")
	}
}

func TestStore_SummaryMeanStep(t *testing.T) {
	s := NewStore(Config{})
	s.Record(1, 0, 0, 0, nil)
	s.Record(1, 3, 4, 1, nil)
	s.Record(1, 6, 8, 2, nil)

	summary, ok := s.Summary(1)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if summary.Points != 3 {
		t.Errorf("Points = %d, want 3", summary.Points)
	}
	if math.Abs(summary.MeanStepMM-5) > 1e-9 {
		t.Errorf("MeanStepMM = %v, want 5", summary.MeanStepMM)
	}
}

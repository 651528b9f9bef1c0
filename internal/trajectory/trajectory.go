// Package trajectory holds a bounded per-object history of positions,
// independent of the tracker's own track lifecycle.
package trajectory

import (
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// TrajectoryPoint is one recorded position for an object at a given
// frame. Timestamp is optional.
type TrajectoryPoint struct {
	X           float64
	Y           float64
	FrameNumber uint64
	Timestamp   *time.Time
}

// Config configures a Store.
type Config struct {
	// MaxTrajectoryLength bounds the number of points kept per object
	// id. Zero means unbounded.
	MaxTrajectoryLength int
}

// Store is a bounded, per-object-id history of positions. A Store owns
// its histories; their lifetimes are independent of any tracker's track
// lifecycle — a trajectory survives track retirement until explicitly
// pruned.
type Store struct {
	mu      sync.Mutex
	config  Config
	history map[int][]TrajectoryPoint
}

// NewStore creates a Store with the given bound (0 = unbounded).
func NewStore(cfg Config) *Store {
	return &Store{config: cfg, history: make(map[int][]TrajectoryPoint)}
}

// Record appends one point to the given object's history, dropping the
// oldest point first if the store is bounded and already full.
func (s *Store) Record(objectID int, x, y float64, frameNumber uint64, timestamp *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pt := TrajectoryPoint{X: x, Y: y, FrameNumber: frameNumber, Timestamp: timestamp}
	h := s.history[objectID]

	if b := s.config.MaxTrajectoryLength; b > 0 && len(h) >= b {
		h = append(h[1:], pt)
	} else {
		h = append(h, pt)
	}
	s.history[objectID] = h
}

// Get returns a snapshot copy of one object's history, in insertion
// order. Unknown ids return an empty slice, never an error.
func (s *Store) Get(objectID int) []TrajectoryPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TrajectoryPoint(nil), s.history[objectID]...)
}

// GetAll returns a snapshot copy of every tracked history.
func (s *Store) GetAll() map[int][]TrajectoryPoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int][]TrajectoryPoint, len(s.history))
	for id, h := range s.history {
		out[id] = append([]TrajectoryPoint(nil), h...)
	}
	return out
}

// PruneInactive removes and returns every history whose object id is
// not present in activeIDs. Pruned histories are returned for optional
// downstream archival; nothing calls this automatically, callers invoke
// it when they care about bounding long-run memory.
func (s *Store) PruneInactive(activeIDs map[int]bool) map[int][]TrajectoryPoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := make(map[int][]TrajectoryPoint)
	for id, h := range s.history {
		if activeIDs[id] {
			continue
		}
		pruned[id] = h
		delete(s.history, id)
	}
	return pruned
}

// Summary is an aggregate view over one object's recorded history. It
// is reporting sugar, not part of the tracking contract: no invariant
// depends on it.
type Summary struct {
	Points     int
	MeanX      float64
	MeanY      float64
	MeanStepMM float64
}

// Summary computes mean position and mean inter-point step distance for
// one object's recorded history. The second return value is false for
// an unknown or empty id.
func (s *Store) Summary(objectID int) (Summary, bool) {
	s.mu.Lock()
	h := append([]TrajectoryPoint(nil), s.history[objectID]...)
	s.mu.Unlock()

	if len(h) == 0 {
		return Summary{}, false
	}

	xs := make([]float64, len(h))
	ys := make([]float64, len(h))
	for i, p := range h {
		xs[i], ys[i] = p.X, p.Y
	}

	steps := make([]float64, 0, len(h)-1)
	for i := 1; i < len(h); i++ {
		dx := h[i].X - h[i-1].X
		dy := h[i].Y - h[i-1].Y
		steps = append(steps, math.Hypot(dx, dy))
	}

	summary := Summary{
		Points: len(h),
		MeanX:  stat.Mean(xs, nil),
		MeanY:  stat.Mean(ys, nil),
	}
	if len(steps) > 0 {
		summary.MeanStepMM = stat.Mean(steps, nil)
	}
	return summary, true
}

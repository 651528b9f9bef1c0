// Package tracking maintains persistent object identities across frames
// by greedily matching gated, constant-velocity predictions to incoming
// clusters, with a tentative/confirmed/missing/retired lifecycle.
package tracking

import (
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/gabe-ochoa/lidar-tracking/internal/clustering"
	"github.com/gabe-ochoa/lidar-tracking/internal/geometry"
)

// Config configures an ObjectTracker. Zero-valued fields fall back to
// the documented defaults in NewObjectTracker.
type Config struct {
	// MaxMatchDistanceMM gates how far a predicted track position may
	// be from a cluster centroid and still match it. Default: 800.
	MaxMatchDistanceMM float64

	// MaxMissingFrames is how many consecutive unmatched updates a
	// track tolerates before it is retired. Default: 10.
	MaxMissingFrames int

	// MinConfirmFrames is how many matched updates a track needs before
	// it is published as confirmed. Default: 2.
	MinConfirmFrames int

	// Logger receives Debug-level notes about spawns and retirements.
	Logger *logrus.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxMatchDistanceMM == 0 {
		c.MaxMatchDistanceMM = 800
	}
	if c.MaxMissingFrames == 0 {
		c.MaxMissingFrames = 10
	}
	if c.MinConfirmFrames == 0 {
		c.MinConfirmFrames = 2
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}

// Track is the tracker's internal hypothesis for one object's identity.
// It is never exposed directly; TrackedObject is the published view.
type Track struct {
	ID               int
	Centroid         geometry.CartesianPoint
	Velocity         geometry.CartesianPoint
	BoundingRadiusMM float64
	Points           []geometry.CartesianPoint
	Age              int
	MissingFrames    int
	Confirmed        bool
}

// visible reports whether this track should be published this frame.
func (t *Track) visible() bool {
	return t.Confirmed && t.MissingFrames == 0
}

// TrackedObject is the externally published projection of a confirmed,
// currently-visible track.
type TrackedObject struct {
	ObjectID         int
	Centroid         geometry.CartesianPoint
	Velocity         geometry.CartesianPoint
	BoundingRadiusMM float64
	Age              int
	Points           []geometry.CartesianPoint
}

func project(t *Track) TrackedObject {
	return TrackedObject{
		ObjectID:         t.ID,
		Centroid:         t.Centroid,
		Velocity:         t.Velocity,
		BoundingRadiusMM: t.BoundingRadiusMM,
		Age:              t.Age,
		Points:           t.Points,
	}
}

// ObjectTracker owns the live set of Tracks and assigns fresh ids to
// new ones. It is not safe for concurrent use; callers wanting
// parallelism should use one ObjectTracker per input stream.
type ObjectTracker struct {
	config Config
	tracks []*Track
	nextID int
}

// NewObjectTracker creates an ObjectTracker, substituting documented
// defaults for zero-valued config fields. Track ids start at 1.
func NewObjectTracker(cfg Config) *ObjectTracker {
	return &ObjectTracker{config: cfg.withDefaults(), nextID: 1}
}

type candidate struct {
	cost       float64
	trackIdx   int
	clusterIdx int
}

// Update predicts each track one step, greedily matches predictions to
// the given clusters under the configured distance gate, ages unmatched
// tracks, spawns tentative tracks for unmatched clusters, retires
// over-aged tracks, and returns the projections of all confirmed,
// currently-visible tracks.
func (o *ObjectTracker) Update(clusters []clustering.Cluster) []TrackedObject {
	predicted := make([]geometry.CartesianPoint, len(o.tracks))
	for i, t := range o.tracks {
		predicted[i] = r2.Add(t.Centroid, t.Velocity)
	}

	candidates := make([]candidate, 0, len(o.tracks)*len(clusters))
	for ti, pred := range predicted {
		for ci, cl := range clusters {
			d := geometry.Distance(pred, cl.Centroid)
			if d <= o.config.MaxMatchDistanceMM {
				candidates = append(candidates, candidate{cost: d, trackIdx: ti, clusterIdx: ci})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.cost != b.cost {
			return a.cost < b.cost
		}
		if a.trackIdx != b.trackIdx {
			return a.trackIdx < b.trackIdx
		}
		return a.clusterIdx < b.clusterIdx
	})

	trackMatched := make([]bool, len(o.tracks))
	clusterMatched := make([]bool, len(clusters))
	matchedCluster := make([]int, len(o.tracks))
	for i := range matchedCluster {
		matchedCluster[i] = -1
	}

	for _, cand := range candidates {
		if trackMatched[cand.trackIdx] || clusterMatched[cand.clusterIdx] {
			continue
		}
		trackMatched[cand.trackIdx] = true
		clusterMatched[cand.clusterIdx] = true
		matchedCluster[cand.trackIdx] = cand.clusterIdx
	}

	for ti, t := range o.tracks {
		if ci := matchedCluster[ti]; ci >= 0 {
			cl := clusters[ci]
			t.Velocity = r2.Sub(cl.Centroid, t.Centroid)
			t.Centroid = cl.Centroid
			t.BoundingRadiusMM = cl.BoundingRadiusMM
			t.Points = cl.Points
			t.Age++
			t.MissingFrames = 0
			if t.Age >= o.config.MinConfirmFrames {
				t.Confirmed = true
			}
		} else {
			t.MissingFrames++
			t.Age++
		}
	}

	for ci, cl := range clusters {
		if clusterMatched[ci] {
			continue
		}
		track := &Track{
			ID:               o.nextID,
			Centroid:         cl.Centroid,
			Velocity:         geometry.CartesianPoint{},
			BoundingRadiusMM: cl.BoundingRadiusMM,
			Points:           cl.Points,
			Age:              1,
			MissingFrames:    0,
			Confirmed:        o.config.MinConfirmFrames <= 1,
		}
		o.nextID++
		o.tracks = append(o.tracks, track)
		o.config.Logger.WithField("track_id", track.ID).Debug("spawned tentative track")
	}

	o.retire()

	visible := make([]TrackedObject, 0, len(o.tracks))
	for _, t := range o.tracks {
		if t.visible() {
			visible = append(visible, project(t))
		}
	}
	return visible
}

// retire drops any track whose missing-frame count has exceeded the
// configured maximum, filtering the track slice in place; surviving
// tracks keep their relative order.
func (o *ObjectTracker) retire() {
	kept := o.tracks[:0]
	for _, t := range o.tracks {
		if t.MissingFrames > o.config.MaxMissingFrames {
			o.config.Logger.WithField("track_id", t.ID).Debug("retiring track")
			continue
		}
		kept = append(kept, t)
	}
	o.tracks = kept
}

// Reset discards all tracks and restarts id assignment at 1.
func (o *ObjectTracker) Reset() {
	o.tracks = nil
	o.nextID = 1
}

// Package engine orchestrates the background model, clusterer and
// tracker into one per-scan pipeline, and owns the trajectory store.
package engine

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gabe-ochoa/lidar-tracking/internal/background"
	"github.com/gabe-ochoa/lidar-tracking/internal/clustering"
	"github.com/gabe-ochoa/lidar-tracking/internal/geometry"
	"github.com/gabe-ochoa/lidar-tracking/internal/tracking"
	"github.com/gabe-ochoa/lidar-tracking/internal/trajectory"
)

// Config assembles the configuration for every stage the Engine owns.
type Config struct {
	Background background.Config
	Cluster    clustering.Config
	Tracker    tracking.Config
	Trajectory trajectory.Config

	// Logger is shared by the engine and, where a stage config didn't
	// set its own, by every stage. Defaults to logrus.StandardLogger().
	Logger *logrus.Logger
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	if c.Background.Logger == nil {
		c.Background.Logger = c.Logger
	}
	if c.Cluster.Logger == nil {
		c.Cluster.Logger = c.Logger
	}
	if c.Tracker.Logger == nil {
		c.Tracker.Logger = c.Logger
	}
	return c
}

// validate enforces the construction-time preconditions spec.md leaves
// to implementations ("implementations may fail fast"). Per-scan input
// is never validated this way — bad points are silently filtered.
func (c Config) validate() error {
	switch {
	case c.Background.AngleBins < 0:
		return fmt.Errorf("engine: negative angle_bins %d", c.Background.AngleBins)
	case c.Cluster.EpsMM < 0:
		return fmt.Errorf("engine: negative cluster_eps_mm %g", c.Cluster.EpsMM)
	case c.Cluster.MaxClusterRadiusMM < 0:
		return fmt.Errorf("engine: negative max_cluster_radius_mm %g", c.Cluster.MaxClusterRadiusMM)
	case c.Tracker.MaxMatchDistanceMM < 0:
		return fmt.Errorf("engine: negative max_match_distance_mm %g", c.Tracker.MaxMatchDistanceMM)
	case c.Trajectory.MaxTrajectoryLength < 0:
		return fmt.Errorf("engine: negative max_trajectory_length %d", c.Trajectory.MaxTrajectoryLength)
	}
	return nil
}

// ScanPoint is one sample of a scan, accepted either as a decoded
// PolarPoint or as a raw (angle, distance) pair — the sum type
// spec.md's design notes call for, so callers never have to build a
// PolarPoint by hand just to feed a frame in.
type ScanPoint struct {
	isPolar    bool
	polar      geometry.PolarPoint
	angleDeg   float64
	distanceMM float64
}

// Polar wraps an already-decoded PolarPoint as a ScanPoint.
func Polar(p geometry.PolarPoint) ScanPoint {
	return ScanPoint{isPolar: true, polar: p}
}

// AnglePair builds a ScanPoint from a raw (angle, distance) pair.
func AnglePair(angleDeg, distanceMM float64) ScanPoint {
	return ScanPoint{angleDeg: angleDeg, distanceMM: distanceMM}
}

func (s ScanPoint) toPolar() geometry.PolarPoint {
	if s.isPolar {
		return s.polar
	}
	return geometry.PolarPoint{AngleDeg: s.angleDeg, DistanceMM: s.distanceMM}
}

// TrackingFrame is the per-scan output: the tracked objects visible
// this frame, tagged with a dense frame number and an optional
// timestamp.
type TrackingFrame struct {
	FrameNumber uint64
	Objects     []tracking.TrackedObject
	Timestamp   *time.Time
}

// Engine binds one BackgroundModel, one Clusterer, one ObjectTracker
// and one TrajectoryStore into the per-scan pipeline described in
// spec.md. An Engine is not safe for concurrent mutation; callers
// wanting parallelism should use one Engine per input stream.
type Engine struct {
	config     Config
	background *background.Model
	clusterer  *clustering.Clusterer
	tracker    *tracking.ObjectTracker
	trajectory *trajectory.Store
	frameCount uint64
}

// New constructs an Engine. It returns an error only for a structurally
// invalid configuration: a negative angle-bin count, cluster eps, maximum
// cluster radius, match distance or trajectory length. Other fields are
// not checked. Per-scan input is never validated this strictly — see
// spec.md §7.
func New(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Engine{
		config:     cfg,
		background: background.NewModel(cfg.Background),
		clusterer:  clustering.NewClusterer(cfg.Cluster),
		tracker:    tracking.NewObjectTracker(cfg.Tracker),
		trajectory: trajectory.NewStore(cfg.Trajectory),
	}, nil
}

// ProcessScan runs one scan through the full pipeline: normalize,
// learn/classify background, project to cartesian, cluster, track, and
// record trajectories. It never errors — malformed input degrades
// silently per spec.md §7.
func (e *Engine) ProcessScan(points []ScanPoint, timestamp *time.Time) TrackingFrame {
	polar := make([]geometry.PolarPoint, 0, len(points))
	for _, sp := range points {
		p := sp.toPolar()
		if p.Valid() {
			polar = append(polar, p)
		}
	}

	e.background.Update(polar)
	foreground := e.background.Classify(polar)
	cartesian := geometry.ToCartesianAll(foreground)
	clusters := e.clusterer.Cluster(cartesian)
	tracked := e.tracker.Update(clusters)

	for _, obj := range tracked {
		e.trajectory.Record(obj.ObjectID, obj.Centroid.X, obj.Centroid.Y, e.frameCount, timestamp)
	}

	frame := TrackingFrame{
		FrameNumber: e.frameCount,
		Objects:     tracked,
		Timestamp:   timestamp,
	}
	e.frameCount++
	return frame
}

// BackgroundReady reports whether the background model has observed
// enough frames to produce meaningful foreground classification.
func (e *Engine) BackgroundReady() bool {
	return e.background.IsReady()
}

// FrameCount returns the number of ProcessScan calls made so far.
func (e *Engine) FrameCount() uint64 {
	return e.frameCount
}

// GetTrajectory returns a snapshot of one object's recorded history.
func (e *Engine) GetTrajectory(objectID int) []trajectory.TrajectoryPoint {
	return e.trajectory.Get(objectID)
}

// GetAllTrajectories returns a snapshot of every recorded history.
func (e *Engine) GetAllTrajectories() map[int][]trajectory.TrajectoryPoint {
	return e.trajectory.GetAll()
}

// ResetBackground clears the learned background only; tracks,
// trajectories and the frame count are untouched.
func (e *Engine) ResetBackground() {
	e.background.Reset()
}

// Reset clears the background, replaces the tracker and trajectory
// store with fresh instances (so track ids restart at 1), and resets
// the frame count to zero.
func (e *Engine) Reset() {
	e.background.Reset()
	e.tracker = tracking.NewObjectTracker(e.config.Tracker)
	e.trajectory = trajectory.NewStore(e.config.Trajectory)
	e.frameCount = 0
}

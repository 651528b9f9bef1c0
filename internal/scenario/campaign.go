// Package scenario runs synthetic-scan campaigns against an Engine and
// aggregates pass/fail counts against the quantified invariants in
// spec.md, across many randomized walks. It exists to statistically
// stress the tracking pipeline the way a flight-control Monte Carlo
// campaign stresses a control law, not to validate any particular
// scenario by hand.
package scenario

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/gabe-ochoa/lidar-tracking/internal/engine"
)

// Config configures a Campaign. Zero-valued fields fall back to the
// documented defaults in NewCampaign.
type Config struct {
	// Seed seeds the random walk generator. Default: 1.
	Seed int64

	// Walks is the number of independent synthetic-person walks to run.
	// Default: 20.
	Walks int

	// StepsPerWalk is the number of scans fed per walk after the
	// background has learned the room. Default: 30.
	StepsPerWalk int

	// RoomRadiusMM is the uniform wall distance used to seed the
	// background model. Default: 5000.
	RoomRadiusMM float64

	// PersonStepDegrees is the angular step a synthetic person takes
	// between frames. Default: 1.5.
	PersonStepDegrees float64

	// EngineConfig is passed to engine.New for every walk; leave zero
	// to use the engine's own defaults, with MinConfirmFrames forced to
	// 1 so a walk's first match is immediately visible.
	EngineConfig engine.Config
}

func (c Config) withDefaults() Config {
	if c.Seed == 0 {
		c.Seed = 1
	}
	if c.Walks == 0 {
		c.Walks = 20
	}
	if c.StepsPerWalk == 0 {
		c.StepsPerWalk = 30
	}
	if c.RoomRadiusMM == 0 {
		c.RoomRadiusMM = 5000
	}
	if c.PersonStepDegrees == 0 {
		c.PersonStepDegrees = 1.5
	}
	if c.EngineConfig.Tracker.MinConfirmFrames == 0 {
		c.EngineConfig.Tracker.MinConfirmFrames = 1
	}
	return c
}

// WalkResult captures one walk's invariant checks.
type WalkResult struct {
	FrameCountOK    bool
	TrackIDPositive bool
	TrackIDStable   bool
	VelocitySane    bool
}

// Result aggregates every walk in a Campaign.
type Result struct {
	Walks           int
	FrameCountFails int
	TrackIDFails    int
	StabilityFails  int
	VelocityFails   int
}

// Passed reports whether every walk satisfied every checked invariant.
func (r Result) Passed() bool {
	return r.FrameCountFails == 0 && r.TrackIDFails == 0 &&
		r.StabilityFails == 0 && r.VelocityFails == 0
}

// Campaign runs repeated synthetic-person walks against fresh Engine
// instances and checks spec.md §8's quantified invariants on each.
type Campaign struct {
	config Config
	rng    *rand.Rand
}

// NewCampaign creates a Campaign, substituting documented defaults for
// zero-valued config fields.
func NewCampaign(cfg Config) *Campaign {
	cfg = cfg.withDefaults()
	return &Campaign{config: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// Run executes the configured number of walks and returns the
// aggregated result.
func (c *Campaign) Run() (Result, error) {
	result := Result{Walks: c.config.Walks}

	for w := 0; w < c.config.Walks; w++ {
		wr, err := c.runWalk()
		if err != nil {
			return result, fmt.Errorf("walk %d: %w", w, err)
		}
		if !wr.FrameCountOK {
			result.FrameCountFails++
		}
		if !wr.TrackIDPositive {
			result.TrackIDFails++
		}
		if !wr.TrackIDStable {
			result.StabilityFails++
		}
		if !wr.VelocitySane {
			result.VelocityFails++
		}
	}
	return result, nil
}

func (c *Campaign) runWalk() (WalkResult, error) {
	eng, err := engine.New(c.config.EngineConfig)
	if err != nil {
		return WalkResult{}, err
	}

	wr := WalkResult{FrameCountOK: true, TrackIDPositive: true, TrackIDStable: true, VelocitySane: true}

	const maxWarmupFrames = 256
	var prevFrame uint64
	var warmedUp bool
	for i := 0; i < maxWarmupFrames; i++ {
		frame := eng.ProcessScan(WallScan(c.config.RoomRadiusMM), nil)
		if i > 0 && frame.FrameNumber != prevFrame+1 {
			wr.FrameCountOK = false
		}
		prevFrame = frame.FrameNumber
		if eng.BackgroundReady() {
			warmedUp = true
			break
		}
	}
	if !warmedUp {
		return wr, fmt.Errorf("background did not become ready within %d warmup frames", maxWarmupFrames)
	}

	startAngle := 45 + c.rng.Float64()*270 // keep the walk inside the room, away from the seam
	var firstID int
	var lastCentroid *struct{ X, Y float64 }

	for step := 0; step < c.config.StepsPerWalk; step++ {
		angle := startAngle + float64(step)*c.config.PersonStepDegrees
		frame := eng.ProcessScan(PersonScan(c.config.RoomRadiusMM, angle), nil)
		if frame.FrameNumber != prevFrame+1 {
			wr.FrameCountOK = false
		}
		prevFrame = frame.FrameNumber

		if len(frame.Objects) == 0 {
			continue
		}
		obj := frame.Objects[0]
		if obj.ObjectID <= 0 {
			wr.TrackIDPositive = false
		}
		if firstID == 0 {
			firstID = obj.ObjectID
		} else if obj.ObjectID != firstID {
			wr.TrackIDStable = false
		}
		if lastCentroid != nil {
			dx := obj.Centroid.X - lastCentroid.X
			dy := obj.Centroid.Y - lastCentroid.Y
			expected := math.Hypot(dx, dy)
			got := math.Hypot(obj.Velocity.X, obj.Velocity.Y)
			if math.Abs(expected-got) > 1.0 {
				wr.VelocitySane = false
			}
		}
		lastCentroid = &struct{ X, Y float64 }{obj.Centroid.X, obj.Centroid.Y}
	}

	return wr, nil
}

func WallScan(radiusMM float64) []engine.ScanPoint {
	const bins = 360
	points := make([]engine.ScanPoint, bins)
	for i := 0; i < bins; i++ {
		points[i] = engine.AnglePair(float64(i), radiusMM)
	}
	return points
}

// PersonScan returns a wall scan with a cluster of close-range points
// punched in around personAngleDeg, simulating a person standing
// between the sensor and the wall.
func PersonScan(radiusMM, personAngleDeg float64) []engine.ScanPoint {
	points := WallScan(radiusMM)
	const spanDeg = 4
	const personRangeMM = 1200

	for i := range points {
		angle := float64(i)
		delta := math.Abs(angle - math.Mod(personAngleDeg, 360))
		if delta > 180 {
			delta = 360 - delta
		}
		if delta <= spanDeg {
			points[i] = engine.AnglePair(angle, personRangeMM)
		}
	}
	return points
}

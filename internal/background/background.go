// Package background learns the static structure of a scene from a
// stream of noisy polar samples and classifies incoming points as
// foreground or background.
package background

import (
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/gabe-ochoa/lidar-tracking/internal/geometry"
)

// Config configures a Model. A zero value for any field falls back to
// the documented default the same way the scan/cluster/tracker configs
// do; construct with NewModel rather than the struct literal directly
// if you want that behavior.
type Config struct {
	// AngleBins is the number of angular bins the background is learned
	// over. Default: 720.
	AngleBins int

	// LearningRate is the EMA weight alpha applied to each accepted
	// observation, in (0, 1]. Default: 0.02.
	LearningRate float64

	// ForegroundThresholdMM is the minimum distance a sample must be
	// closer than the learned background to be flagged foreground.
	// Default: 150.
	ForegroundThresholdMM float64

	// MinLearningFrames is the number of Update calls required before
	// IsReady returns true. Default: 30.
	MinLearningFrames int

	// Logger receives Debug-level notes about classification state.
	// Defaults to logrus.StandardLogger() when nil.
	Logger *logrus.Logger
}

func (c Config) withDefaults() Config {
	if c.AngleBins == 0 {
		c.AngleBins = 720
	}
	if c.LearningRate == 0 {
		c.LearningRate = 0.02
	}
	if c.ForegroundThresholdMM == 0 {
		c.ForegroundThresholdMM = 150
	}
	if c.MinLearningFrames == 0 {
		c.MinLearningFrames = 30
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}

// Model learns a per-angular-bin exponential moving average of range
// and classifies scan points as foreground when they fall significantly
// closer than that learned background.
type Model struct {
	mu sync.Mutex

	config Config
	binW   float64

	bg     []float64
	count  []int
	frames int
}

// NewModel creates a Model with the given configuration, substituting
// documented defaults for zero-valued fields.
func NewModel(cfg Config) *Model {
	cfg = cfg.withDefaults()
	m := &Model{
		config: cfg,
		binW:   geometry.FullCircleDeg / float64(cfg.AngleBins),
	}
	m.resetLocked()
	return m
}

func (m *Model) resetLocked() {
	m.bg = make([]float64, m.config.AngleBins)
	m.count = make([]int, m.config.AngleBins)
	for i := range m.bg {
		m.bg[i] = math.Inf(1)
	}
	m.frames = 0
}

// Reset clears all learned state, as if the model were newly created.
func (m *Model) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

func (m *Model) bin(angleDeg float64) int {
	b := int(math.Floor(geometry.NormalizeAngleDeg(angleDeg) / m.binW))
	b %= m.config.AngleBins
	if b < 0 {
		b += m.config.AngleBins
	}
	return b
}

// Update folds one scan into the per-bin background estimate. Points
// that land significantly closer than the current estimate are treated
// as likely foreground intrusions and do not pull the background
// inward — this is the only guard against moving objects being
// absorbed into the background.
func (m *Model) Update(points []geometry.PolarPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range points {
		b := m.bin(p.AngleDeg)
		switch {
		case m.count[b] == 0:
			m.bg[b] = p.DistanceMM
		case p.DistanceMM >= m.bg[b]-m.config.ForegroundThresholdMM:
			m.bg[b] += m.config.LearningRate * (p.DistanceMM - m.bg[b])
		default:
			// Closer than background minus threshold: hold the bin so a
			// person standing in front of the wall doesn't get learned
			// in as the new wall.
		}
		m.count[b]++
	}
	m.frames++
}

// Classify returns the subset of points that are significantly closer
// than the learned background. Before IsReady, this is always empty.
func (m *Model) Classify(points []geometry.PolarPoint) []geometry.PolarPoint {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.frames < m.config.MinLearningFrames {
		m.config.Logger.WithFields(logrus.Fields{
			"frames":     m.frames,
			"min_frames": m.config.MinLearningFrames,
		}).Debug("background not yet ready, classify returning no foreground")
		return nil
	}

	foreground := make([]geometry.PolarPoint, 0, len(points))
	for _, p := range points {
		b := m.bin(p.AngleDeg)
		bg := m.bg[b]
		if math.IsInf(bg, 1) {
			continue
		}
		if bg-p.DistanceMM > m.config.ForegroundThresholdMM {
			foreground = append(foreground, p)
		}
	}
	return foreground
}

// IsReady reports whether enough frames have been observed to trust
// Classify's output.
func (m *Model) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames >= m.config.MinLearningFrames
}

// Frames returns the number of Update calls observed so far.
func (m *Model) Frames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

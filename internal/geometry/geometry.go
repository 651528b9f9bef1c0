// Package geometry provides the polar and cartesian point types shared by
// the background model, clusterer and tracker, and the conversion between
// them.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// FullCircleDeg is the angular span of one scan revolution.
const FullCircleDeg = 360.0

// PolarPoint is a single angular range sample from the sensor.
// DistanceMM of 0 marks an invalid sample.
type PolarPoint struct {
	AngleDeg   float64
	DistanceMM float64
}

// Valid reports whether the sample carries a usable (strictly positive)
// range.
func (p PolarPoint) Valid() bool {
	return p.DistanceMM > 0
}

// CartesianPoint is a sensor-centered (x, y) position in millimeters,
// origin at the sensor.
type CartesianPoint = r2.Vec

// ToCartesian converts a polar sample to sensor-centered cartesian
// coordinates. Callers are expected to have already filtered invalid
// (non-positive range) points.
func ToCartesian(p PolarPoint) CartesianPoint {
	rad := p.AngleDeg * math.Pi / 180.0
	return CartesianPoint{
		X: p.DistanceMM * math.Cos(rad),
		Y: p.DistanceMM * math.Sin(rad),
	}
}

// ToCartesianAll converts a slice of polar samples in order.
func ToCartesianAll(points []PolarPoint) []CartesianPoint {
	out := make([]CartesianPoint, len(points))
	for i, p := range points {
		out[i] = ToCartesian(p)
	}
	return out
}

// Distance returns the euclidean distance between two cartesian points.
func Distance(a, b CartesianPoint) float64 {
	return r2.Norm(r2.Sub(a, b))
}

// NormalizeAngleDeg folds an arbitrary angle into [0, 360).
func NormalizeAngleDeg(deg float64) float64 {
	deg = math.Mod(deg, FullCircleDeg)
	if deg < 0 {
		deg += FullCircleDeg
	}
	return deg
}

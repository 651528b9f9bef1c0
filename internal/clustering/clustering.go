// Package clustering groups foreground cartesian points into
// object-sized clusters using a grid-indexed DBSCAN.
package clustering

import (
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/gabe-ochoa/lidar-tracking/internal/geometry"
)

// Config configures a Clusterer. Zero-valued fields fall back to the
// documented defaults in NewClusterer.
type Config struct {
	// EpsMM is the DBSCAN neighborhood radius, also used as the grid
	// cell size. Default: 200.
	EpsMM float64

	// MinSamples is the minimum neighborhood size (including self) for
	// a point to seed or extend a cluster. Default: 3.
	MinSamples int

	// MaxClusterRadiusMM discards any cluster whose bounding radius
	// exceeds it. Default: 500.
	MaxClusterRadiusMM float64

	// Logger receives Debug-level notes about discarded clusters.
	Logger *logrus.Logger
}

func (c Config) withDefaults() Config {
	if c.EpsMM == 0 {
		c.EpsMM = 200
	}
	if c.MinSamples == 0 {
		c.MinSamples = 3
	}
	if c.MaxClusterRadiusMM == 0 {
		c.MaxClusterRadiusMM = 500
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}

// Cluster is a density-connected group of points with its derived
// centroid and bounding radius.
type Cluster struct {
	Centroid         geometry.CartesianPoint
	Points           []geometry.CartesianPoint
	BoundingRadiusMM float64
}

// Clusterer runs grid-indexed DBSCAN over a frame of cartesian points.
type Clusterer struct {
	config Config
}

// NewClusterer creates a Clusterer, substituting documented defaults
// for zero-valued config fields.
func NewClusterer(cfg Config) *Clusterer {
	return &Clusterer{config: cfg.withDefaults()}
}

type cellKey struct{ x, y int }

func cellOf(p geometry.CartesianPoint, eps float64) cellKey {
	return cellKey{
		x: int(floorDiv(p.X, eps)),
		y: int(floorDiv(p.Y, eps)),
	}
}

func floorDiv(v, by float64) int {
	q := v / by
	f := int(q)
	if q < float64(f) {
		f--
	}
	return f
}

// grid is the sparse hash-map index spec'd for the neighbor query: cell
// coordinates to the indices of points that fall in that cell. The
// coordinate range tracks the sensor's range and is not assumed dense.
type grid struct {
	eps   float64
	cells map[cellKey][]int
}

func buildGrid(points []geometry.CartesianPoint, eps float64) *grid {
	g := &grid{eps: eps, cells: make(map[cellKey][]int, len(points))}
	for i, p := range points {
		k := cellOf(p, eps)
		g.cells[k] = append(g.cells[k], i)
	}
	return g
}

// rangeQuery returns the indices of every point within eps of points[i],
// including i itself, by scanning the 3x3 cell neighborhood around i.
func (g *grid) rangeQuery(points []geometry.CartesianPoint, i int) []int {
	p := points[i]
	center := cellOf(p, g.eps)
	eps2 := g.eps * g.eps

	var neighbors []int
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			k := cellKey{center.x + dx, center.y + dy}
			for _, j := range g.cells[k] {
				d := geometry.Distance(p, points[j])
				if d*d <= eps2 {
					neighbors = append(neighbors, j)
				}
			}
		}
	}
	return neighbors
}

// Cluster groups points into clusters per the configured DBSCAN
// parameters. Clusters whose bounding radius exceeds
// Config.MaxClusterRadiusMM are dropped. Emission order follows
// ascending cluster label, i.e. the order in which each cluster was
// first seeded.
func (c *Clusterer) Cluster(points []geometry.CartesianPoint) []Cluster {
	if len(points) < c.config.MinSamples {
		return nil
	}

	g := buildGrid(points, c.config.EpsMM)

	const unvisited = -1
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = unvisited
	}

	nextClusterID := 0
	for i := range points {
		if labels[i] != unvisited {
			continue
		}

		neighbors := g.rangeQuery(points, i)
		if len(neighbors) < c.config.MinSamples {
			continue // noise for now; may still be absorbed as a border point
		}

		labels[i] = nextClusterID
		seeds := append([]int(nil), neighbors...)

		for si := 0; si < len(seeds); si++ {
			q := seeds[si]
			if labels[q] != unvisited {
				continue
			}
			labels[q] = nextClusterID

			qNeighbors := g.rangeQuery(points, q)
			if len(qNeighbors) >= c.config.MinSamples {
				seeds = append(seeds, qNeighbors...)
			}
		}

		nextClusterID++
	}

	members := make([][]int, nextClusterID)
	for i, label := range labels {
		if label == unvisited {
			continue
		}
		members[label] = append(members[label], i)
	}

	clusters := make([]Cluster, 0, nextClusterID)
	for _, idxs := range members {
		cluster := buildCluster(points, idxs)
		if cluster.BoundingRadiusMM > c.config.MaxClusterRadiusMM {
			c.config.Logger.WithFields(logrus.Fields{
				"radius_mm": cluster.BoundingRadiusMM,
				"max_mm":    c.config.MaxClusterRadiusMM,
				"points":    len(idxs),
			}).Debug("dropping oversized cluster")
			continue
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}

func buildCluster(points []geometry.CartesianPoint, idxs []int) Cluster {
	xs := make([]float64, len(idxs))
	ys := make([]float64, len(idxs))
	members := make([]geometry.CartesianPoint, len(idxs))
	for i, idx := range idxs {
		p := points[idx]
		xs[i], ys[i] = p.X, p.Y
		members[i] = p
	}

	centroid := geometry.CartesianPoint{
		X: floats.Sum(xs) / float64(len(xs)),
		Y: floats.Sum(ys) / float64(len(ys)),
	}

	radius := 0.0
	for _, p := range members {
		if d := geometry.Distance(p, centroid); d > radius {
			radius = d
		}
	}

	return Cluster{Centroid: centroid, Points: members, BoundingRadiusMM: radius}
}

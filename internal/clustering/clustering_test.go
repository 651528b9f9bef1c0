package clustering

import (
	"testing"

	"github.com/gabe-ochoa/lidar-tracking/internal/geometry"
)

func TestCluster_TooFewPointsYieldsNoClusters(t *testing.T) {
	c := NewClusterer(Config{MinSamples: 3})
	points := []geometry.CartesianPoint{{X: 0, Y: 0}, {X: 10, Y: 0}}
	if got := c.Cluster(points); got != nil {
		t.Errorf("expected nil clusters for fewer points than MinSamples, got %v", got)
	}
}

func TestCluster_SingleDenseCluster(t *testing.T) {
	c := NewClusterer(Config{EpsMM: 200, MinSamples: 3, MaxClusterRadiusMM: 500})
	points := []geometry.CartesianPoint{
		{X: 1000, Y: 1000},
		{X: 1050, Y: 1000},
		{X: 1000, Y: 1050},
		{X: 1050, Y: 1050},
	}
	clusters := c.Cluster(points)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if len(clusters[0].Points) != 4 {
		t.Errorf("expected 4 points in cluster, got %d", len(clusters[0].Points))
	}
}

func TestCluster_TwoSeparateClusters(t *testing.T) {
	c := NewClusterer(Config{EpsMM: 200, MinSamples: 3, MaxClusterRadiusMM: 500})
	points := []geometry.CartesianPoint{
		// cluster A
		{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 0, Y: 50},
		// cluster B, far away
		{X: 5000, Y: 5000}, {X: 5050, Y: 5000}, {X: 5000, Y: 5050},
	}
	clusters := c.Cluster(points)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
}

func TestCluster_OversizedClusterDropped(t *testing.T) {
	c := NewClusterer(Config{EpsMM: 300, MinSamples: 3, MaxClusterRadiusMM: 100})
	// A line of closely spaced points whose bounding radius exceeds 100mm
	// even though adjacent points are within eps of each other.
	points := []geometry.CartesianPoint{
		{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 200, Y: 0}, {X: 300, Y: 0}, {X: 400, Y: 0},
	}
	clusters := c.Cluster(points)
	if len(clusters) != 0 {
		t.Errorf("expected oversized cluster to be dropped, got %d clusters", len(clusters))
	}
}

func TestCluster_NoiseNotIncluded(t *testing.T) {
	c := NewClusterer(Config{EpsMM: 100, MinSamples: 3, MaxClusterRadiusMM: 500})
	points := []geometry.CartesianPoint{
		{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 0, Y: 50}, // dense cluster
		{X: 10000, Y: 10000}, // isolated noise point
	}
	clusters := c.Cluster(points)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if len(clusters[0].Points) != 3 {
		t.Errorf("expected noise point excluded, cluster has %d points", len(clusters[0].Points))
	}
}

func TestCluster_CentroidIsMeanOfMembers(t *testing.T) {
	c := NewClusterer(Config{EpsMM: 200, MinSamples: 3, MaxClusterRadiusMM: 500})
	points := []geometry.CartesianPoint{
		{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 0, Y: 100}, {X: 100, Y: 100},
	}
	clusters := c.Cluster(points)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	wantX, wantY := 50.0, 50.0
	got := clusters[0].Centroid
	if got.X != wantX || got.Y != wantY {
		t.Errorf("centroid = (%v, %v), want (%v, %v)", got.X, got.Y, wantX, wantY)
	}
}

package engine

import (
	"testing"

	"github.com/gabe-ochoa/lidar-tracking/internal/background"
)

func wallScan(angleBins int, distanceMM float64) []ScanPoint {
	points := make([]ScanPoint, angleBins)
	step := 360.0 / float64(angleBins)
	for i := range points {
		points[i] = AnglePair(float64(i)*step, distanceMM)
	}
	return points
}

// personScan returns a wall scan with a small span of bins around
// personBin punched in at personRangeMM, close enough together in
// cartesian space to form a single dense cluster.
func personScan(angleBins int, distanceMM float64, personBin int, personRangeMM float64) []ScanPoint {
	points := wallScan(angleBins, distanceMM)
	const span = 4
	for d := -span; d <= span; d++ {
		i := ((personBin+d)%angleBins + angleBins) % angleBins
		points[i] = AnglePair(points[i].angleDeg, personRangeMM)
	}
	return points
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{Background: background.Config{AngleBins: -1}})
	if err == nil {
		t.Fatal("expected an error for a negative angle_bins config")
	}
}

func TestNew_AcceptsZeroConfig(t *testing.T) {
	if _, err := New(Config{}); err != nil {
		t.Fatalf("expected zero-valued config to apply defaults, got error: %v", err)
	}
}

func TestEngine_LearningGateWithholdsObjectsBeforeReady(t *testing.T) {
	eng, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	scan := personScan(360, 3000, 45, 1000)
	frame := eng.ProcessScan(scan, nil)
	if len(frame.Objects) != 0 {
		t.Fatalf("expected no objects before background is ready, got %d", len(frame.Objects))
	}
	if eng.BackgroundReady() {
		t.Fatal("background should not be ready after a single scan")
	}
}

func warmup(t *testing.T, eng *Engine, frames int) {
	t.Helper()
	for i := 0; i < frames; i++ {
		eng.ProcessScan(wallScan(360, 3000), nil)
	}
	if !eng.BackgroundReady() {
		t.Fatalf("background not ready after %d warmup frames", frames)
	}
}

func TestEngine_DetectsSinglePersonAsOneCluster(t *testing.T) {
	eng, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	warmup(t, eng, 40)

	// confirm over two matched frames (default MinConfirmFrames=2)
	eng.ProcessScan(personScan(360, 3000, 45, 1000), nil)
	frame := eng.ProcessScan(personScan(360, 3000, 45, 1000), nil)

	if len(frame.Objects) != 1 {
		t.Fatalf("expected exactly 1 tracked object, got %d", len(frame.Objects))
	}
}

func TestEngine_FrameNumbersIncrementByOne(t *testing.T) {
	eng, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var prev uint64
	for i := 0; i < 5; i++ {
		frame := eng.ProcessScan(wallScan(360, 3000), nil)
		if i > 0 && frame.FrameNumber != prev+1 {
			t.Fatalf("frame %d: FrameNumber = %d, want %d", i, frame.FrameNumber, prev+1)
		}
		prev = frame.FrameNumber
	}
}

func TestEngine_PersistentIDAcrossFrames(t *testing.T) {
	eng, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	warmup(t, eng, 40)

	eng.ProcessScan(personScan(360, 3000, 45, 1000), nil)
	f1 := eng.ProcessScan(personScan(360, 3000, 45, 1000), nil)
	if len(f1.Objects) != 1 {
		t.Fatalf("expected 1 object, got %d", len(f1.Objects))
	}
	id := f1.Objects[0].ObjectID

	f2 := eng.ProcessScan(personScan(360, 3000, 46, 1000), nil)
	if len(f2.Objects) != 1 {
		t.Fatalf("expected 1 object, got %d", len(f2.Objects))
	}
	if f2.Objects[0].ObjectID != id {
		t.Errorf("object id changed: %d -> %d", id, f2.Objects[0].ObjectID)
	}
}

func TestEngine_TrajectoryRecordsConfirmedPositions(t *testing.T) {
	eng, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	warmup(t, eng, 40)

	eng.ProcessScan(personScan(360, 3000, 45, 1000), nil)
	frame := eng.ProcessScan(personScan(360, 3000, 45, 1000), nil)
	if len(frame.Objects) != 1 {
		t.Fatalf("expected 1 object, got %d", len(frame.Objects))
	}
	id := frame.Objects[0].ObjectID

	history := eng.GetTrajectory(id)
	if len(history) == 0 {
		t.Error("expected at least one recorded trajectory point for a confirmed object")
	}
}

func TestEngine_ResetBackgroundPreservesFrameCount(t *testing.T) {
	eng, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	warmup(t, eng, 40)
	before := eng.FrameCount()

	eng.ResetBackground()
	if eng.BackgroundReady() {
		t.Error("background should not be ready immediately after ResetBackground")
	}
	if eng.FrameCount() != before {
		t.Errorf("FrameCount changed by ResetBackground: %d -> %d", before, eng.FrameCount())
	}
}

func TestEngine_ResetRestartsFrameCountAndTrackIDs(t *testing.T) {
	eng, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	warmup(t, eng, 40)
	eng.ProcessScan(personScan(360, 3000, 45, 1000), nil)
	eng.ProcessScan(personScan(360, 3000, 45, 1000), nil)

	eng.Reset()
	if eng.FrameCount() != 0 {
		t.Errorf("FrameCount after Reset = %d, want 0", eng.FrameCount())
	}

	warmup(t, eng, 40)
	eng.ProcessScan(personScan(360, 3000, 45, 1000), nil)
	frame := eng.ProcessScan(personScan(360, 3000, 45, 1000), nil)
	if len(frame.Objects) != 1 {
		t.Fatalf("expected 1 object after reset, got %d", len(frame.Objects))
	}
	if frame.Objects[0].ObjectID != 1 {
		t.Errorf("expected track ids to restart at 1 after Reset, got %d", frame.Objects[0].ObjectID)
	}
}

func TestEngine_InvalidScanPointsAreFilteredSilently(t *testing.T) {
	eng, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	scan := append(wallScan(360, 3000), AnglePair(10, 0), AnglePair(20, -5))
	frame := eng.ProcessScan(scan, nil)
	if frame.FrameNumber != 0 {
		t.Errorf("expected first frame number 0, got %d", frame.FrameNumber)
	}
}

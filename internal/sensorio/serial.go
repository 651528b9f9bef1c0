// Package sensorio reads scans from a serial-attached LiDAR using a
// small framed wire protocol. It is an optional adapter for
// cmd/lidartrack, not part of the tracking contract: spec.md scopes
// sensor acquisition out of the tracker itself, and nothing in
// internal/engine depends on this package.
package sensorio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"go.bug.st/serial"

	"github.com/gabe-ochoa/lidar-tracking/internal/engine"
)

// frameMagic marks the start of a scan frame on the wire.
const frameMagic = 0xA5

// Source reads framed scans from a serial LiDAR. Each frame is:
//
//	magic byte (0xA5)
//	uint16 point count, big-endian
//	point count * (float32 angle_deg, float32 distance_mm), big-endian
//	uint16 checksum, big-endian: sum of every payload byte, mod 65536
type Source struct {
	port   serial.Port
	reader *bufio.Reader
}

// Open opens portName at baud and returns a Source reading from it.
func Open(portName string, baud int) (*Source, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("sensorio: open %s: %w", portName, err)
	}
	return &Source{port: port, reader: bufio.NewReader(port)}, nil
}

// Close closes the underlying serial port.
func (s *Source) Close() error {
	return s.port.Close()
}

// ReadScan blocks until one full frame has been read, and returns it
// decoded into engine.ScanPoint values.
func (s *Source) ReadScan() ([]engine.ScanPoint, error) {
	for {
		b, err := s.reader.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("sensorio: read magic: %w", err)
		}
		if b == frameMagic {
			break
		}
	}

	var count uint16
	if err := binary.Read(s.reader, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("sensorio: read count: %w", err)
	}

	payload := make([]byte, int(count)*8)
	if _, err := io.ReadFull(s.reader, payload); err != nil {
		return nil, fmt.Errorf("sensorio: read payload: %w", err)
	}

	var wantChecksum uint16
	if err := binary.Read(s.reader, binary.BigEndian, &wantChecksum); err != nil {
		return nil, fmt.Errorf("sensorio: read checksum: %w", err)
	}
	if got := checksum(payload); got != wantChecksum {
		return nil, fmt.Errorf("sensorio: checksum mismatch: got %d want %d", got, wantChecksum)
	}

	points := make([]engine.ScanPoint, count)
	for i := 0; i < int(count); i++ {
		off := i * 8
		angleBits := binary.BigEndian.Uint32(payload[off : off+4])
		distBits := binary.BigEndian.Uint32(payload[off+4 : off+8])
		angle := float64(math.Float32frombits(angleBits))
		dist := float64(math.Float32frombits(distBits))
		points[i] = engine.AnglePair(angle, dist)
	}
	return points, nil
}

func checksum(payload []byte) uint16 {
	var sum uint16
	for _, b := range payload {
		sum += uint16(b)
	}
	return sum
}

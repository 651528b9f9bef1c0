// LIDARTRACK - Real-Time 2D People Tracking
//
// Turns a stream of LiDAR scans into stable, identified object tracks:
// background subtraction, grid-indexed DBSCAN clustering, greedy gated
// multi-object tracking, and bounded trajectory history.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gabe-ochoa/lidar-tracking/internal/egress"
	"github.com/gabe-ochoa/lidar-tracking/internal/engine"
	"github.com/gabe-ochoa/lidar-tracking/internal/livefeed"
	"github.com/gabe-ochoa/lidar-tracking/internal/scenario"
	"github.com/gabe-ochoa/lidar-tracking/internal/sensorio"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
	gitCommit = "unknown"

	httpPort = flag.Int("http-port", 8093, "HTTP API port")
	// configFile is accepted but never read: the engine always runs with
	// engine.Config defaults, and /api/v1/status reports the value under
	// "config_file_ignored".
	configFile = flag.String("config", "configs/config.yaml", "Configuration file path")

	enableLiveFeed  = flag.Bool("livefeed", true, "Enable live tracking-frame WebSocket feed")
	livefeedSecret  = flag.String("livefeed-secret", "", "HS256 secret required of livefeed subscribers; empty disables the gate")
	egressURL       = flag.String("egress-url", "", "Webhook URL to POST each tracking frame to; empty disables egress")
	egressAPIKey    = flag.String("egress-api-key", "", "Bearer token sent with egress POSTs")
	serialPort      = flag.String("serial-port", "", "Serial port a framed LiDAR is attached to; empty uses the built-in synthetic scan source")
	serialBaud      = flag.Int("serial-baud", 115200, "Serial baud rate")
	roomRadiusMM    = flag.Float64("room-radius-mm", 5000, "Synthetic scan source: uniform wall distance")
	walkDegPerFrame = flag.Float64("walk-deg-per-frame", 1.5, "Synthetic scan source: angular step per frame")
	scanIntervalMS  = flag.Int("scan-interval-ms", 100, "Milliseconds between scans (synthetic source only)")
)

// App wires an Engine to its optional ambient adapters: a live WebSocket
// feed, an HTTP egress sink, and either a serial or synthetic scan
// source.
type App struct {
	eng      *engine.Engine
	stream   *livefeed.Streamer
	sink     *egress.Sink
	serial   *sensorio.Source
	httpServ *http.Server

	running bool
	mu      sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	flag.Parse()
	printBanner()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	app := &App{ctx: ctx, cancel: cancel}

	if err := app.Initialize(); err != nil {
		log.Fatalf("failed to initialize lidartrack: %v", err)
	}
	if err := app.Start(); err != nil {
		log.Fatalf("failed to start lidartrack: %v", err)
	}

	log.Println("lidartrack is running")
	log.Println("  press Ctrl+C to shut down")

	<-sigChan
	log.Println("shutdown signal received, stopping...")

	if err := app.Shutdown(); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	log.Println("lidartrack shutdown complete")
}

// Initialize constructs the Engine and its configured adapters.
func (a *App) Initialize() error {
	log.Println("initializing tracking engine...")

	eng, err := engine.New(engine.Config{})
	if err != nil {
		return fmt.Errorf("engine init: %w", err)
	}
	a.eng = eng
	log.Println("  tracking engine ready")

	if *enableLiveFeed {
		log.Println("initializing live feed streamer...")
		a.stream = livefeed.NewStreamer(livefeed.Config{SigningSecret: *livefeedSecret})
		log.Println("  live feed streamer ready")
	}

	if *egressURL != "" {
		log.Println("initializing egress sink...")
		a.sink = egress.NewSink(egress.Config{URL: *egressURL, APIKey: *egressAPIKey})
		log.Println("  egress sink ready")
	}

	if *serialPort != "" {
		log.Println("opening serial scan source...")
		src, err := sensorio.Open(*serialPort, *serialBaud)
		if err != nil {
			return fmt.Errorf("serial source init: %w", err)
		}
		a.serial = src
		log.Println("  serial scan source ready")
	}

	return nil
}

// Start begins the scan loop, live feed fan-out, and HTTP server.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stream != nil {
		go func() {
			if err := a.stream.Run(a.ctx); err != nil && err != context.Canceled {
				log.Printf("livefeed error: %v", err)
			}
		}()
	}

	go a.scanLoop()

	if err := a.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	a.running = true
	return nil
}

// Shutdown stops the scan loop, closes adapters, and tears down the
// HTTP server.
func (a *App) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if a.httpServ != nil {
		if err := a.httpServ.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP shutdown error: %v", err)
		}
	}

	if a.serial != nil {
		if err := a.serial.Close(); err != nil {
			log.Printf("serial close error: %v", err)
		}
	}

	a.running = false
	return nil
}

func (a *App) startHTTPServer() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", a.healthHandler)
	mux.HandleFunc("/api/v1/status", a.statusHandler)
	mux.HandleFunc("/api/v1/version", a.versionHandler)
	mux.HandleFunc("/api/v1/trajectories", a.trajectoriesHandler)

	if a.stream != nil {
		mux.HandleFunc("/ws/tracking", a.stream.HandleWebSocket)
	}

	a.httpServ = &http.Server{
		Addr:    fmt.Sprintf(":%d", *httpPort),
		Handler: mux,
	}

	go func() {
		log.Printf("HTTP API listening on :%d", *httpPort)
		if err := a.httpServ.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	return nil
}

// scanLoop feeds the Engine from either the serial source or a
// synthetic built-in source, and fans each resulting frame out to the
// live feed and egress sink.
func (a *App) scanLoop() {
	if a.serial != nil {
		a.serialScanLoop()
		return
	}
	a.syntheticScanLoop()
}

func (a *App) serialScanLoop() {
	for {
		select {
		case <-a.ctx.Done():
			return
		default:
		}

		points, err := a.serial.ReadScan()
		if err != nil {
			log.Printf("serial scan read error: %v", err)
			continue
		}
		a.dispatch(a.eng.ProcessScan(points, nil))
	}
}

// syntheticScanLoop walks a simulated person past a wall at a constant
// angular rate, so lidartrack is runnable without attached hardware.
func (a *App) syntheticScanLoop() {
	ticker := time.NewTicker(time.Duration(*scanIntervalMS) * time.Millisecond)
	defer ticker.Stop()

	var angle float64
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			var points []engine.ScanPoint
			if a.eng.BackgroundReady() {
				points = scenario.PersonScan(*roomRadiusMM, angle)
				angle += *walkDegPerFrame
			} else {
				points = scenario.WallScan(*roomRadiusMM)
			}
			a.dispatch(a.eng.ProcessScan(points, nil))
		}
	}
}

func (a *App) dispatch(frame engine.TrackingFrame) {
	if a.stream != nil {
		a.stream.Broadcast(frame)
	}
	if a.sink != nil {
		go func() {
			if err := a.sink.Send(a.ctx, frame); err != nil {
				log.Printf("egress send error: %v", err)
			}
		}()
	}
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "lidartrack",
		"version": version,
	})
}

func (a *App) statusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	clients, framesSent, clientsServed := 0, uint64(0), uint64(0)
	if a.stream != nil {
		clients, framesSent, clientsServed = a.stream.Stats()
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"background_ready":    a.eng.BackgroundReady(),
		"frame_count":         a.eng.FrameCount(),
		"livefeed_clients":    clients,
		"livefeed_frames":     framesSent,
		"livefeed_served":     clientsServed,
		"egress_enabled":      a.sink != nil,
		"serial_source":       a.serial != nil,
		"config_file_ignored": *configFile,
	})
}

func (a *App) versionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"version":    version,
		"build_time": buildTime,
		"git_commit": gitCommit,
	})
}

func (a *App) trajectoriesHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a.eng.GetAllTrajectories())
}

func printBanner() {
	banner := `
 _     ___ ____    _    ____  _____ ____      _    ____ _  __
| |   |_ _|  _ \  / \  |  _ \|_   _|  _ \    / \  / ___| |/ /
| |    | || | | |/ _ \ | |_) | | | | |_) |  / _ \| |   | ' /
| |___ | || |_| / ___ \|  _ <  | | |  _ <  / ___ \ |___| . \
|_____|___|____/_/   \_\_| \_\ |_| |_| \_\/_/   \_\____|_|\_\
Real-Time 2D People Tracking v` + version + `

`
	fmt.Println(banner)
}

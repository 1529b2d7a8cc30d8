// Bridge connects a camera watching for ArUco markers to a remote server
// that decides which markers matter. When a tracked marker holds still
// long enough, its payload is fired exactly once to the consumer.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wizzyworks/go-bridge/internal/config"
	"github.com/wizzyworks/go-bridge/internal/log"
	"github.com/wizzyworks/go-bridge/pkg/camera"
	"github.com/wizzyworks/go-bridge/pkg/dispatch"
	"github.com/wizzyworks/go-bridge/pkg/firework"
	"github.com/wizzyworks/go-bridge/pkg/protocol"
	"github.com/wizzyworks/go-bridge/pkg/registry"
	"github.com/wizzyworks/go-bridge/pkg/remote"
	"github.com/wizzyworks/go-bridge/pkg/scanner"
	"github.com/wizzyworks/go-bridge/pkg/scanner/detection"
	"github.com/wizzyworks/go-bridge/pkg/stability"
	"github.com/wizzyworks/go-bridge/pkg/video"
	"github.com/wizzyworks/go-bridge/pkg/web"
)

func main() {
	var (
		serverURL   = flag.String("server", config.ServerURL(), "target server websocket URL")
		cameraIndex = flag.Int("camera", config.CameraIndex(), "camera device index")
		remoteHost  = flag.String("remote-camera", "", "consume a remote camera from this host instead of a local device")
		monitorPort = flag.String("monitor-port", config.MonitorPort(), "monitor web server port (empty to disable)")
		outputDir   = flag.String("out", config.OutputDir(), "directory for trigger artifacts (empty to disable)")
		quick       = flag.Bool("quick", false, "use quick stability parameters for demos")
	)
	flag.Parse()

	log.Init(config.LogLevel())
	fmt.Println("🌉 WizzyWorks Bridge")
	fmt.Printf("   Server: %s\n", *serverURL)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Shared state: the registry is the only thing the sync client and
	// the detection loop both touch.
	reg := registry.New()

	// Startup faults are hard failures: no frames, no bridge.
	detector, err := detection.NewAruco(detection.DefaultConfig())
	if err != nil {
		log.Error("detector init failed", "error", err)
		os.Exit(1)
	}
	defer detector.Close()

	source, err := openFrameSource(*remoteHost, *cameraIndex)
	if err != nil {
		log.Error("frame source init failed", "error", err)
		os.Exit(1)
	}
	defer source.Close()

	stabilityCfg := stability.DefaultConfig()
	if *quick {
		stabilityCfg = stability.QuickConfig()
	}

	var writer *firework.Writer
	if *outputDir != "" {
		writer, err = firework.NewWriter(*outputDir)
		if err != nil {
			log.Error("artifact writer init failed", "error", err)
			os.Exit(1)
		}
	}

	dispatcher := dispatch.New()
	dispatcher.OnMarkerTriggered(func(id int, payload json.RawMessage, normalizedX float64) {
		fmt.Printf("🎯 TRIGGER: marker %d at x=%.3f\n", id, normalizedX)
		if writer == nil {
			return
		}
		design, err := firework.Parse(payload)
		if err != nil {
			log.Warn("trigger payload is not a firework design", "marker_id", id, "error", err)
			return
		}
		if err := writer.Write(id, design, normalizedX); err != nil {
			log.Error("artifact write failed", "marker_id", id, "error", err)
		}
	})

	scan := scanner.New(source, detector, reg, stabilityCfg, dispatcher)

	client := remote.New(remote.DefaultConfig(*serverURL), reg)
	client.OnConnected(func() {
		fmt.Println("✅ Connected to target server")
	})
	client.OnDisconnected(func() {
		fmt.Println("❌ Disconnected from target server")
	})
	client.OnUpdate(func(u *protocol.Update) {
		// Acknowledge well-formed single-target designs so the server
		// can mark them ready, matching the renderer handshake.
		if u.Kind() != protocol.KindSet {
			return
		}
		if _, err := firework.Parse(u.Data); err != nil {
			log.Debug("target payload is not a firework design", "id", *u.ID, "error", err)
			return
		}
		client.Send(protocol.NewReadyStatus(*u.ID))
	})

	if *monitorPort != "" {
		monitor := web.NewServer(*monitorPort, reg, scan, func() string {
			return client.State().String()
		})
		scan.OnTrigger = func(id int, payload json.RawMessage, normalizedX float64) {
			monitor.PublishTrigger(protocol.TriggerEvent{
				MarkerID:    id,
				NormalizedX: normalizedX,
				Payload:     payload,
				Timestamp:   time.Now().UnixMilli(),
			})
		}
		monitor.StartAsync(ctx)
		defer monitor.Shutdown()
	}

	client.Start()
	defer client.Stop()

	// Blocks until SIGINT/SIGTERM.
	scan.Run(ctx)

	fmt.Println("\n👋 Bridge stopped")
}

// openFrameSource picks the local camera or a remote WebRTC camera.
func openFrameSource(remoteHost string, cameraIndex int) (scanner.FrameSource, error) {
	if remoteHost != "" {
		cam := video.NewRemoteCamera(video.DefaultConfig(remoteHost))
		if err := cam.Connect(); err != nil {
			return nil, err
		}
		return cam, nil
	}

	cfg := camera.DefaultConfig()
	cfg.Index = cameraIndex
	return camera.Open(cfg)
}

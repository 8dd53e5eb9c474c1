package cli

import (
	"fmt"
	"net"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/tripscope/tripscope-cli/internal/config"
	"github.com/tripscope/tripscope-cli/internal/dataset"
	"github.com/tripscope/tripscope-cli/internal/logging"
	"github.com/tripscope/tripscope-cli/internal/models"
	"github.com/tripscope/tripscope-cli/internal/replay"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check environment and print connection info",
	Long:  `Validates the local environment, checks dataset quality and port availability, and provides connection examples.`,
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	fmt.Println("🔍 Tripscope Environment Check")
	fmt.Println()

	fmt.Printf("Go Version:        %s\n", runtime.Version())
	fmt.Printf("OS/Arch:           %s/%s\n\n", runtime.GOOS, runtime.GOARCH)

	// Environment configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Configuration error: %v\n\n", err)
	} else {
		fmt.Println("✅ Configuration loaded")
		fmt.Printf("   Host: %s  WS: %d  SSE: %d  UDP: %d\n", cfg.Host, cfg.Port, cfg.SSEPort, cfg.UDPPort)
		fmt.Printf("   Speed: %.1fx  Tick: %s  Format: %s\n\n", cfg.Speed, cfg.TickInterval, cfg.Format)
	}

	// Datasets directory and quality
	dataDir := getDataDir("")
	if _, err := os.Stat(dataDir); err == nil {
		fmt.Printf("✅ Datasets directory found: %s\n", dataDir)

		registry := dataset.NewRegistry()
		if err := registry.LoadFromDir(dataDir); err == nil {
			names := registry.List()
			fmt.Printf("   Found %d datasets: %v\n", len(names), names)

			for _, name := range names {
				ds, err := registry.Get(name)
				if err != nil {
					continue
				}
				index := replay.NewEventIndex(ds.EventsByTrip(), logging.Discard())
				if index.DroppedCount() > 0 {
					fmt.Printf("   ⚠️  %s: %d malformed events will be skipped\n", name, index.DroppedCount())
				}
				if index.Empty() {
					fmt.Printf("   ⚠️  %s: no playable events\n", name)
				}
				if unknown := countUnknownEventTypes(ds); unknown > 0 {
					fmt.Printf("   ℹ️  %s: %d events carry unrecognized event types (replayed as-is)\n", name, unknown)
				}
			}
		}
		fmt.Println()
	} else {
		fmt.Printf("❌ Datasets directory not found: %s\n", dataDir)
		fmt.Printf("   Generate one with: tripscope generate --out %s/demo.json\n\n", dataDir)
	}

	// Port availability
	ports := []int{8080, 8081, 8082}
	if cfg != nil {
		ports = []int{cfg.Port, cfg.SSEPort, cfg.UDPPort}
	}
	for _, port := range ports {
		if isPortAvailable(port) {
			fmt.Printf("✅ Port %d is available\n", port)
		} else {
			fmt.Printf("⚠️  Port %d is in use\n", port)
		}
	}
	fmt.Println()

	fmt.Println("📡 Connection Examples:")
	fmt.Println()

	fmt.Println("JavaScript/Node.js:")
	fmt.Println("  const ws = new WebSocket('ws://localhost:8080/stream');")
	fmt.Println("  ws.onmessage = (event) => {")
	fmt.Println("    const data = JSON.parse(event.data);")
	fmt.Println("    console.log(data);")
	fmt.Println("  };")
	fmt.Println()

	fmt.Println("curl (SSE):")
	fmt.Println("  curl -N http://localhost:8081/stream/sse")
	fmt.Println()

	fmt.Println("Go:")
	fmt.Println("  conn, _, err := websocket.DefaultDialer.Dial(\"ws://localhost:8080/stream\", nil)")
	fmt.Println("  for {")
	fmt.Println("    _, message, err := conn.ReadMessage()")
	fmt.Println("    var event Event")
	fmt.Println("    json.Unmarshal(message, &event)")
	fmt.Println("  }")
	fmt.Println()

	fmt.Println("✅ Environment check complete")
	return nil
}

func countUnknownEventTypes(ds *dataset.Dataset) int {
	known := map[string]bool{
		models.EventTripStarted:    true,
		models.EventLocationPing:   true,
		models.EventVehicleStopped: true,
		models.EventVehicleMoving:  true,
		models.EventTripCompleted:  true,
		models.EventTripCancelled:  true,
	}

	unknown := 0
	for _, trip := range ds.Trips {
		for _, ev := range trip.Events {
			if !known[ev.EventType] {
				unknown++
			}
		}
	}
	return unknown
}

func isPortAvailable(port int) bool {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	listener.Close()
	return true
}

package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tripscope/tripscope-cli/internal/config"
	"github.com/tripscope/tripscope-cli/internal/dataset"
	"github.com/tripscope/tripscope-cli/internal/encoding"
	"github.com/tripscope/tripscope-cli/internal/logging"
	"github.com/tripscope/tripscope-cli/internal/metrics"
	"github.com/tripscope/tripscope-cli/internal/models"
	"github.com/tripscope/tripscope-cli/internal/recorder"
	"github.com/tripscope/tripscope-cli/internal/replay"
	"github.com/tripscope/tripscope-cli/internal/transport"
)

var (
	replayIn      string
	replayDataDir string
	replaySpeed   float64
	replayFrom    float64
	replayTick    time.Duration
	replayLoop    bool
	replayHost    string
	replayPort    int
	replaySSEPort int
	replayUDPPort int
	replayFormat  string
	replayOut     string
	replayMetrics string
)

var replayCmd = &cobra.Command{
	Use:   "replay [dataset]",
	Short: "Replay a trip dataset against the virtual clock",
	Long: `Replays a recorded trip dataset in timeline order, broadcasting revealed
events over WebSocket, SSE, and UDP while the virtual clock advances.

Examples:
  tripscope replay downtown-fleet
  tripscope replay downtown-fleet --speed 10 --from 0.5
  tripscope replay --in ./trips.json --loop --out replayed.ndjson`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayIn, "in", "", "Dataset file to replay (json, yaml, or ndjson)")
	replayCmd.Flags().StringVar(&replayDataDir, "data-dir", "", "Directory containing dataset files")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier")
	replayCmd.Flags().Float64Var(&replayFrom, "from", 0, "Start position as a fraction of the timeline (0..1)")
	replayCmd.Flags().DurationVar(&replayTick, "tick", 250*time.Millisecond, "Clock tick interval")
	replayCmd.Flags().BoolVar(&replayLoop, "loop", false, "Restart from the beginning after completion")
	replayCmd.Flags().StringVar(&replayHost, "host", "127.0.0.1", "Host to bind to")
	replayCmd.Flags().IntVar(&replayPort, "port", 8080, "WebSocket port")
	replayCmd.Flags().IntVar(&replaySSEPort, "sse-port", 8081, "SSE port")
	replayCmd.Flags().IntVar(&replayUDPPort, "udp-port", 8082, "UDP port")
	replayCmd.Flags().StringVar(&replayFormat, "format", "json", "Wire format: json|protobuf")
	replayCmd.Flags().StringVar(&replayOut, "out", "", "Record revealed events to an NDJSON file")
	replayCmd.Flags().StringVar(&replayMetrics, "metrics-addr", "", "Prometheus listen address (empty disables)")
}

// applyEnvDefaults lets environment configuration fill in any flag the
// user did not set explicitly.
func applyEnvDefaults(cmd *cobra.Command, cfg *config.Config) {
	if !cmd.Flags().Changed("host") {
		replayHost = cfg.Host
	}
	if !cmd.Flags().Changed("port") {
		replayPort = cfg.Port
	}
	if !cmd.Flags().Changed("sse-port") {
		replaySSEPort = cfg.SSEPort
	}
	if !cmd.Flags().Changed("udp-port") {
		replayUDPPort = cfg.UDPPort
	}
	if !cmd.Flags().Changed("speed") {
		replaySpeed = cfg.Speed
	}
	if !cmd.Flags().Changed("tick") {
		replayTick = cfg.TickInterval
	}
	if !cmd.Flags().Changed("format") {
		replayFormat = cfg.Format
	}
	if !cmd.Flags().Changed("metrics-addr") {
		replayMetrics = cfg.MetricsAddr
	}
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyEnvDefaults(cmd, cfg)

	logger := logging.NewLogger(cfg.LogLevel)

	// Load the dataset
	registry := dataset.NewRegistry()
	var ds *dataset.Dataset
	switch {
	case replayIn != "":
		if err := registry.LoadFromFile(replayIn); err != nil {
			return fmt.Errorf("failed to load dataset: %w", err)
		}
		names := registry.List()
		ds, _ = registry.Get(names[0])
	case len(args) == 1:
		if err := registry.LoadFromDir(getDataDir(replayDataDir)); err != nil {
			return fmt.Errorf("failed to load datasets: %w", err)
		}
		ds, err = registry.Get(args[0])
		if err != nil {
			return fmt.Errorf("dataset not found: %w", err)
		}
	default:
		return fmt.Errorf("specify a dataset name or --in file")
	}

	encoder := encoding.NewEncoder(encoding.Format(replayFormat))

	session := replay.NewSession(ds.EventsByTrip(), logger)
	clock := session.Clock()

	if session.Index().Empty() {
		fmt.Println("Dataset has no playable events, nothing to replay")
		return nil
	}

	var collector *metrics.Collector
	if replayMetrics != "" {
		collector = metrics.NewCollector(replaySpeed, replayTick)
		collector.TripsLoaded.Set(float64(session.Index().TripCount()))
		metricsSrv := collector.Serve(replayMetrics)
		defer metricsSrv.Close()
	}

	// Observers feed the dispatcher; a full pipe drops rather than stalls
	// the clock.
	events := make(chan models.Event, 256)
	unsubEvents := clock.OnEvent(func(ev models.Event) {
		select {
		case events <- ev:
			if collector != nil {
				collector.EventsRevealed.Inc()
			}
		default:
			if collector != nil {
				collector.EventsDropped.Inc()
			}
			logger.Warn("event pipe full, dropping event",
				"tripId", ev.TripID, "timestamp", ev.Timestamp)
		}
	})
	defer unsubEvents()

	completed := make(chan struct{}, 1)
	unsubComplete := clock.OnComplete(func() {
		if collector != nil {
			collector.Completions.Inc()
		}
		select {
		case completed <- struct{}{}:
		default:
		}
	})
	defer unsubComplete()

	dispatcher := transport.NewDispatcher(events, 100)

	wsServer := transport.NewWebSocketServer(replayHost, replayPort, encoder, func() any {
		return session.Stats()
	})
	sseServer := transport.NewSSEServer(replayHost, replaySSEPort, encoder)
	udpServer := transport.NewUDPServer(replayHost, replayUDPPort, encoder)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	go func() {
		if err := wsServer.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("WebSocket server error: %v", err)
		}
	}()
	go func() {
		if err := sseServer.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("SSE server error: %v", err)
		}
	}()
	go func() {
		if err := udpServer.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("UDP server error: %v", err)
		}
	}()

	time.Sleep(200 * time.Millisecond)

	go func() { wsServer.BroadcastFromChannel(ctx, dispatcher.Subscribe()) }()
	go func() { sseServer.BroadcastFromChannel(ctx, dispatcher.Subscribe()) }()
	go func() { udpServer.BroadcastFromChannel(ctx, dispatcher.Subscribe()) }()

	if replayOut != "" {
		rec, err := recorder.NewRecorder(replayOut)
		if err != nil {
			return fmt.Errorf("failed to create recorder: %w", err)
		}
		defer rec.Close()
		go rec.RecordFromChannel(ctx, dispatcher.Subscribe())
	}

	go dispatcher.Run(ctx)

	first, last, total := session.Index().TimeRange()
	fmt.Printf("▶️  Replay Session Started\n\n")
	fmt.Printf("Dataset:      %s\n", ds.Name)
	fmt.Printf("Run ID:       %s\n", session.RunID())
	fmt.Printf("Trips:        %d\n", session.Index().TripCount())
	fmt.Printf("Events:       %d\n", session.Index().EventCount())
	fmt.Printf("Timeline:     %s → %s (%s)\n",
		first.Format(time.RFC3339), last.Format(time.RFC3339), formatDuration(total))
	fmt.Printf("Speed:        %.1fx\n", replaySpeed)
	fmt.Printf("Loop:         %v\n", replayLoop)
	fmt.Printf("WebSocket:    %s\n", wsServer.Address())
	fmt.Printf("SSE:          %s\n", sseServer.Address())
	fmt.Printf("UDP:          %s\n", udpServer.Address())
	if replayOut != "" {
		fmt.Printf("Recording:    %s\n", replayOut)
	}
	if replayMetrics != "" {
		fmt.Printf("Metrics:      http://%s/metrics\n", replayMetrics)
	}
	fmt.Println("\nPress Ctrl+C to stop")
	fmt.Println("\nReplaying events...")

	now := time.Now()
	if err := clock.SetSpeed(now, replaySpeed); err != nil {
		return fmt.Errorf("invalid speed: %w", err)
	}
	if replayFrom > 0 {
		if err := clock.Seek(now, replayFrom); err != nil {
			return fmt.Errorf("invalid start position: %w", err)
		}
	}
	clock.Play(now)

	ticker := time.NewTicker(replayTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(events)
			printReplaySummary(session)
			return nil

		case <-completed:
			if !replayLoop {
				// Let the dispatcher flush the tail of the stream.
				time.Sleep(200 * time.Millisecond)
				close(events)
				printReplaySummary(session)
				return nil
			}
			restart := time.Now()
			if err := clock.Seek(restart, 0); err != nil {
				return err
			}
			clock.Play(restart)

		case <-ticker.C:
			start := time.Now()
			clock.Tick(start)
			if collector != nil {
				collector.TicksTotal.Inc()
				collector.Progress.Set(clock.Progress())
				collector.ObserveClients(wsServer.ClientCount(), sseServer.ClientCount(), udpServer.ClientCount())
				collector.TickDuration.Observe(time.Since(start).Seconds())
			}
		}
	}
}

func printReplaySummary(session *replay.Session) {
	stats := session.Stats()
	fmt.Printf("\n\nReplay stopped\n")
	fmt.Printf("Progress:     %.1f%%\n", stats.Progress*100)
	fmt.Printf("Revealed:     %d/%d events\n", len(session.Clock().Revealed()), stats.EventCount)
	fmt.Println("\nShutdown complete")
}

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tripscope/tripscope-cli/internal/dataset"
	"github.com/tripscope/tripscope-cli/internal/logging"
	"github.com/tripscope/tripscope-cli/internal/replay"
)

var describeDataDir string

var describeCmd = &cobra.Command{
	Use:   "describe <dataset>",
	Short: "Describe a dataset in detail",
	Long:  `Shows the timeline and per-trip metrics a full playback of the dataset would produce.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDescribe,
}

func init() {
	describeCmd.Flags().StringVar(&describeDataDir, "data-dir", "", "Directory containing dataset files")
}

func runDescribe(cmd *cobra.Command, args []string) error {
	registry := dataset.NewRegistry()
	if err := registry.LoadFromDir(getDataDir(describeDataDir)); err != nil {
		return fmt.Errorf("failed to load datasets: %w", err)
	}

	ds, err := registry.Get(args[0])
	if err != nil {
		return fmt.Errorf("dataset not found: %w", err)
	}

	index := replay.NewEventIndex(ds.EventsByTrip(), logging.Discard())

	fmt.Printf("Dataset: %s\n", ds.Name)
	if ds.Description != "" {
		fmt.Printf("Description: %s\n", ds.Description)
	}
	fmt.Printf("Trips: %d\n", index.TripCount())
	fmt.Printf("Events: %d\n", index.EventCount())
	if index.DroppedCount() > 0 {
		fmt.Printf("Malformed events skipped: %d\n", index.DroppedCount())
	}

	if !index.Empty() {
		first, last, total := index.TimeRange()
		fmt.Printf("Timeline: %s → %s\n", first.Format(time.RFC3339), last.Format(time.RFC3339))
		fmt.Printf("Duration: %s\n", formatDuration(total))
	}

	fmt.Println("\nTrips:")
	for _, id := range index.TripIDs() {
		events := index.EventsForTrip(id)
		m := replay.ComputeMetrics(events)

		fmt.Printf("  %s\n", id)
		if trip := ds.Trips[id]; trip != nil && trip.Name != "" {
			fmt.Printf("    Name:       %s\n", trip.Name)
		}
		if trip := ds.Trips[id]; trip != nil && trip.Vehicle != "" {
			fmt.Printf("    Vehicle:    %s\n", trip.Vehicle)
		}
		fmt.Printf("    Events:     %d\n", len(events))
		fmt.Printf("    Status:     %s\n", m.Status)
		fmt.Printf("    Distance:   %.2f km\n", m.TotalDistanceKm)
		fmt.Printf("    Avg speed:  %.1f km/h\n", m.AverageSpeedKmh)
		fmt.Printf("    Max speed:  %.1f km/h\n", m.MaxSpeedKmh)
		fmt.Printf("    Stops:      %d\n", m.StopCount)
		fmt.Printf("    Completion: %s %d%%\n",
			renderBar(float64(m.CompletionPercentage)/100, 20), m.CompletionPercentage)
	}

	fmt.Println()
	return nil
}

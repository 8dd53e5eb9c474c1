package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tripscope/tripscope-cli/internal/dataset"
)

var listDataDir string

var listDatasetsCmd = &cobra.Command{
	Use:   "list-datasets",
	Short: "List available trip datasets",
	Long:  `Lists all datasets found in the data directory with their trip and event counts.`,
	RunE:  runListDatasets,
}

func init() {
	listDatasetsCmd.Flags().StringVar(&listDataDir, "data-dir", "", "Directory containing dataset files")
}

func runListDatasets(cmd *cobra.Command, args []string) error {
	registry := dataset.NewRegistry()
	if err := registry.LoadFromDir(getDataDir(listDataDir)); err != nil {
		return fmt.Errorf("failed to load datasets: %w", err)
	}

	names := registry.List()
	if len(names) == 0 {
		fmt.Println("No datasets found")
		return nil
	}

	fmt.Println("Available datasets:")
	fmt.Println()
	for _, name := range names {
		ds, err := registry.Get(name)
		if err != nil {
			continue
		}
		fmt.Printf("  %-24s %3d trips, %5d events", name, ds.TripCount(), ds.EventCount())
		if ds.Description != "" {
			fmt.Printf("  %s", ds.Description)
		}
		fmt.Println()
	}
	fmt.Println()

	return nil
}

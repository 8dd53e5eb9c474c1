package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tripscope",
	Short: "Tripscope CLI - Time-driven trip replay engine for local development",
	Long: `Tripscope CLI replays recorded fleet trip events against a virtual
clock, streaming them to local dashboards over WebSocket, SSE, and UDP.

It turns static trip recordings into live-looking feeds with speed
control, seeking, and per-trip metrics, providing repeatable datasets
for QA and demos.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(listDatasetsCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(receiverCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

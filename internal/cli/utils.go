package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func getDataDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("TRIPSCOPE_DATA_DIR"); env != "" {
		return env
	}

	// Try current directory first
	if _, err := os.Stat("datasets"); err == nil {
		return "datasets"
	}

	// Try relative to executable
	exe, err := os.Executable()
	if err == nil {
		dir := filepath.Join(filepath.Dir(exe), "datasets")
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
	}

	// Default to datasets in current directory
	return "datasets"
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}

func renderBar(score float64, width int) string {
	filled := int(score * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the environment-driven replay host configuration. Command
// line flags take precedence over these values.
type Config struct {
	Host           string
	Port           int
	SSEPort        int
	UDPPort        int
	DataDir        string
	TickInterval   time.Duration
	Speed          float64
	Format         string
	MetricsAddr    string
	LogLevel       string
	ReceiverToken  string
	ReceiverOutDir string
}

// Load reads configuration from the environment, with a .env file loaded
// first if present.
func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Host = getenvDefault("TRIPSCOPE_HOST", "127.0.0.1")

	port, err := getenvInt("TRIPSCOPE_PORT", 8080)
	if err != nil {
		return nil, err
	}
	cfg.Port = port

	ssePort, err := getenvInt("TRIPSCOPE_SSE_PORT", 8081)
	if err != nil {
		return nil, err
	}
	cfg.SSEPort = ssePort

	udpPort, err := getenvInt("TRIPSCOPE_UDP_PORT", 8082)
	if err != nil {
		return nil, err
	}
	cfg.UDPPort = udpPort

	cfg.DataDir = getenvDefault("TRIPSCOPE_DATA_DIR", "")

	// Tick interval
	if v := os.Getenv("TRIPSCOPE_TICK_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid TRIPSCOPE_TICK_MS: %q", v)
		}
		cfg.TickInterval = time.Duration(ms) * time.Millisecond
	} else {
		cfg.TickInterval = 250 * time.Millisecond
	}

	// Speed multiplier
	if v := os.Getenv("TRIPSCOPE_SPEED"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid TRIPSCOPE_SPEED: %q", v)
		}
		cfg.Speed = f
	} else {
		cfg.Speed = 1.0
	}

	// Wire format for stream transports
	format := strings.ToLower(getenvDefault("TRIPSCOPE_FORMAT", "json"))
	switch format {
	case "json", "protobuf":
		cfg.Format = format
	default:
		return nil, fmt.Errorf("invalid TRIPSCOPE_FORMAT: %q (want json or protobuf)", format)
	}

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("TRIPSCOPE_METRICS_ADDR")

	cfg.LogLevel = strings.ToLower(getenvDefault("TRIPSCOPE_LOG_LEVEL", "info"))
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid TRIPSCOPE_LOG_LEVEL: %q", cfg.LogLevel)
	}

	cfg.ReceiverToken = os.Getenv("TRIPSCOPE_RECEIVER_TOKEN")
	cfg.ReceiverOutDir = os.Getenv("TRIPSCOPE_RECEIVER_OUT_DIR")

	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > 65535 {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return n, nil
}

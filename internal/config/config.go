package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/worldloom/worldloom-backend/internal/logger"
	"github.com/worldloom/worldloom-backend/internal/utils"
)

// Config holds all runtime settings. Values come from the environment with
// defaults, optionally overlaid by a YAML file named in CONFIG_FILE.
type Config struct {
	Mode string `yaml:"mode"` // "mock" or "real"
	Addr string `yaml:"addr"`

	DataRoot   string `yaml:"data_root"`
	SQLitePath string `yaml:"sqlite_path"`

	NumTakes     int    `yaml:"num_takes"`
	VideoSeconds int    `yaml:"video_seconds"`
	VideoSize    string `yaml:"video_size"`
	VideoFPS     int    `yaml:"video_fps"`
	FrameCount   int    `yaml:"frame_count"`

	VideoServiceURL  string `yaml:"video_service_url"`
	VisionServiceURL string `yaml:"vision_service_url"`
	ServiceAPIKey    string `yaml:"service_api_key"`

	PollInterval time.Duration `yaml:"poll_interval"`
	MaxPolls     int           `yaml:"max_polls"`

	SandboxBudget time.Duration `yaml:"sandbox_budget"`
	TickSeconds   float64       `yaml:"tick_seconds"`
	AgentSpeed    float64       `yaml:"agent_speed"`

	TracingEnabled   bool    `yaml:"tracing_enabled"`
	OTLPEndpoint     string  `yaml:"otlp_endpoint"`
	OTLPInsecure     bool    `yaml:"otlp_insecure"`
	TraceSampleRatio float64 `yaml:"trace_sample_ratio"`
}

func Load(log *logger.Logger) (Config, error) {
	cfg := Config{
		Mode:             strings.ToLower(utils.GetEnv("MODE", "mock", log)),
		Addr:             utils.GetEnv("ADDR", ":8080", log),
		DataRoot:         utils.GetEnv("DATA_ROOT", "data", log),
		SQLitePath:       utils.GetEnv("SQLITE_PATH", "data/worldloom.db", log),
		NumTakes:         utils.GetEnvAsInt("NUM_TAKES", 3, log),
		VideoSeconds:     utils.GetEnvAsInt("VIDEO_SECONDS", 8, log),
		VideoSize:        utils.GetEnv("VIDEO_SIZE", "1280x720", log),
		VideoFPS:         utils.GetEnvAsInt("VIDEO_FPS", 24, log),
		FrameCount:       utils.GetEnvAsInt("FRAME_COUNT", 3, log),
		VideoServiceURL:  utils.GetEnv("VIDEO_SERVICE_URL", "", log),
		VisionServiceURL: utils.GetEnv("VISION_SERVICE_URL", "", log),
		ServiceAPIKey:    utils.GetEnv("SERVICE_API_KEY", "", log),
		PollInterval:     time.Duration(utils.GetEnvAsInt("POLL_INTERVAL_SECONDS", 2, log)) * time.Second,
		MaxPolls:         utils.GetEnvAsInt("MAX_POLLS", 300, log),
		SandboxBudget:    time.Duration(utils.GetEnvAsInt("SANDBOX_BUDGET_MS", 2000, log)) * time.Millisecond,
		TickSeconds:      utils.GetEnvAsFloat("TICK_SECONDS", 1.0/60.0, log),
		AgentSpeed:       utils.GetEnvAsFloat("AGENT_SPEED", 1.5, log),
		TracingEnabled:   utils.GetEnvAsBool("TRACING_ENABLED", false, log),
		OTLPEndpoint:     utils.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
		OTLPInsecure:     utils.GetEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
		TraceSampleRatio: utils.GetEnvAsFloat("TRACE_SAMPLE_RATIO", 0.1, log),
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	return cfg, cfg.normalize(log)
}

func (c *Config) normalize(log *logger.Logger) error {
	if c.NumTakes < 1 {
		return fmt.Errorf("num_takes must be at least 1, got %d", c.NumTakes)
	}
	switch c.VideoSeconds {
	case 4, 8, 12:
	default:
		return fmt.Errorf("video_seconds must be 4, 8 or 12, got %d", c.VideoSeconds)
	}
	if c.FrameCount < 2 {
		c.FrameCount = 2
	}
	if c.FrameCount > 10 {
		c.FrameCount = 10
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.MaxPolls <= 0 {
		c.MaxPolls = 300
	}
	if c.TickSeconds <= 0 {
		c.TickSeconds = 1.0 / 60.0
	}
	if c.AgentSpeed <= 0 {
		c.AgentSpeed = 1.5
	}
	if c.TraceSampleRatio < 0 {
		c.TraceSampleRatio = 0
	}
	if c.TraceSampleRatio > 1 {
		c.TraceSampleRatio = 1
	}
	if c.Mode != "mock" && c.Mode != "real" {
		return fmt.Errorf("mode must be \"mock\" or \"real\", got %q", c.Mode)
	}
	// Real mode without credentials degrades to mock rather than failing.
	if c.Mode == "real" && strings.TrimSpace(c.ServiceAPIKey) == "" {
		if log != nil {
			log.Warn("Service API key not set, falling back to mock mode")
		}
		c.Mode = "mock"
	}
	return nil
}

// UseMock reports whether the synthetic collaborators should be used.
func (c *Config) UseMock() bool { return c.Mode != "real" }

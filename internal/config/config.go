package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the tunables file looked for when --config is not given.
const DefaultFile = "dramacast.yaml"

// Config carries everything the pipeline components need. Secrets and
// identifiers come from the environment (a .env file is honored); pipeline
// tunables come from an optional YAML file with defaults matching the
// original fixed constants.
type Config struct {
	// ServiceAccountJSON is the raw GCP service-account credential blob,
	// scoped for spreadsheet and drive access.
	ServiceAccountJSON string `yaml:"-"`
	// SpreadsheetID identifies the queue sheet. The first worksheet is used.
	SpreadsheetID string `yaml:"-"`
	// OpenAIKey enables the script rewriter when set.
	OpenAIKey string `yaml:"-"`
	// DriveFolderID enables the Drive upload strategy when set.
	DriveFolderID string `yaml:"-"`
	// BackendAPIKey protects the daemon's /v1 routes (empty = no auth).
	BackendAPIKey string `yaml:"-"`
	// CorsAllowedOrigins is a comma-separated origin list (empty = *).
	CorsAllowedOrigins string `yaml:"-"`

	Pipeline Pipeline `yaml:"pipeline"`
	Upload   Upload   `yaml:"upload"`
	Daemon   Daemon   `yaml:"daemon"`
}

// Pipeline holds the per-row production settings.
type Pipeline struct {
	Language       string  `yaml:"language"`        // TTS language code
	Speedup        float64 `yaml:"speedup"`         // audio playback-speed multiplier
	ImageCount     int     `yaml:"image_count"`     // target images per video
	ImageMargin    int     `yaml:"image_margin"`    // extra search results requested
	FrameWidth     int     `yaml:"frame_width"`
	FrameHeight    int     `yaml:"frame_height"`
	FrameRate      int     `yaml:"frame_rate"`
	DownloadSecs   int     `yaml:"download_timeout_seconds"` // per-image fetch timeout
	ScriptMaxChars int     `yaml:"script_max_chars"`         // scraped-text cap

	WorkDir      string `yaml:"work_dir"`
	ImageDir     string `yaml:"image_dir"`
	AudioFile    string `yaml:"audio_file"`
	ManifestFile string `yaml:"manifest_file"`
	OutputFile   string `yaml:"output_file"`
	HistoryFile  string `yaml:"history_file"`
}

// Upload configures the publisher strategy chain.
type Upload struct {
	// Order lists strategy names tried in sequence: "gofile", "catbox",
	// "drive". Empty means gofile then catbox, with drive appended when a
	// folder ID is configured.
	Order          []string `yaml:"order"`
	GofileAPIBase  string   `yaml:"gofile_api"`
	CatboxEndpoint string   `yaml:"catbox_endpoint"`
}

// Daemon configures daemon mode.
type Daemon struct {
	PollSecs int    `yaml:"poll_interval_seconds"`
	Port     string `yaml:"port"`
}

// Default returns the configuration used when no file overrides anything.
func Default() *Config {
	return &Config{
		Pipeline: Pipeline{
			Language:       "hi",
			Speedup:        1.25,
			ImageCount:     20,
			ImageMargin:    10,
			FrameWidth:     1920,
			FrameHeight:    1080,
			FrameRate:      24,
			DownloadSecs:   10,
			ScriptMaxChars: 2000,
			WorkDir:        ".",
			ImageDir:       "video_images",
			AudioFile:      "voice.mp3",
			ManifestFile:   "list.txt",
			OutputFile:     "drama_final_video.mp4",
			HistoryFile:    "dramacast.db",
		},
		Upload: Upload{
			GofileAPIBase:  "https://api.gofile.io",
			CatboxEndpoint: "https://catbox.moe/user/api.php",
		},
		Daemon: Daemon{
			PollSecs: 300,
			Port:     "8080",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file (explicit path
// or dramacast.yaml when present), then environment variables. A .env file
// is loaded first if one exists.
func Load(path string) (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.ServiceAccountJSON = getEnv("GCP_SERVICE_ACCOUNT", "")
	cfg.SpreadsheetID = getEnv("SHEET_ID", "")
	cfg.OpenAIKey = getEnv("OPENAI_API_KEY", "")
	cfg.DriveFolderID = getEnv("DRIVE_FOLDER_ID", "")
	cfg.BackendAPIKey = getEnv("BACKEND_API_KEY", "")
	cfg.CorsAllowedOrigins = getEnv("CORS_ALLOWED_ORIGINS", "")
	cfg.Daemon.Port = getEnv("PORT", cfg.Daemon.Port)

	if len(cfg.Upload.Order) == 0 {
		cfg.Upload.Order = []string{"gofile", "catbox"}
		if cfg.DriveFolderID != "" {
			cfg.Upload.Order = append(cfg.Upload.Order, "drive")
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks value ranges. Credential presence is checked separately so
// local-only commands (history) work without Google access.
func (c *Config) validate() error {
	p := c.Pipeline

	if p.Speedup <= 1.0 || p.Speedup > 2.0 {
		return fmt.Errorf("pipeline.speedup must be in (1.0, 2.0], got %.2f", p.Speedup)
	}
	if p.ImageCount < 1 {
		return fmt.Errorf("pipeline.image_count must be at least 1, got %d", p.ImageCount)
	}
	if p.ImageMargin < 0 {
		return fmt.Errorf("pipeline.image_margin must not be negative, got %d", p.ImageMargin)
	}
	// libx264 with yuv420p needs even dimensions
	if p.FrameWidth < 2 || p.FrameWidth%2 != 0 || p.FrameHeight < 2 || p.FrameHeight%2 != 0 {
		return fmt.Errorf("frame dimensions must be positive and even, got %dx%d", p.FrameWidth, p.FrameHeight)
	}
	if p.FrameRate < 1 {
		return fmt.Errorf("pipeline.frame_rate must be at least 1, got %d", p.FrameRate)
	}
	if p.DownloadSecs < 1 {
		return fmt.Errorf("pipeline.download_timeout_seconds must be at least 1, got %d", p.DownloadSecs)
	}
	if c.Daemon.PollSecs < 1 {
		return fmt.Errorf("daemon.poll_interval_seconds must be at least 1, got %d", c.Daemon.PollSecs)
	}

	for _, name := range c.Upload.Order {
		switch name {
		case "gofile", "catbox":
		case "drive":
			if c.DriveFolderID == "" {
				return fmt.Errorf("upload.order lists drive but DRIVE_FOLDER_ID is not set")
			}
		default:
			return fmt.Errorf("unknown upload strategy %q (want gofile, catbox, or drive)", name)
		}
	}

	return nil
}

// ValidateCredentials checks the Google-facing requirements. Called by
// commands that touch the sheet or Drive.
func (c *Config) ValidateCredentials() error {
	if c.ServiceAccountJSON == "" {
		return fmt.Errorf("GCP_SERVICE_ACCOUNT is required")
	}
	if !json.Valid([]byte(c.ServiceAccountJSON)) {
		return fmt.Errorf("GCP_SERVICE_ACCOUNT is not valid JSON")
	}
	if c.SpreadsheetID == "" {
		return fmt.Errorf("SHEET_ID is required")
	}
	return nil
}

// Path helpers — every fixed-name working file is rooted in WorkDir so an
// isolated run just points WorkDir somewhere else.

func (c *Config) ImageDirPath() string { return filepath.Join(c.Pipeline.WorkDir, c.Pipeline.ImageDir) }
func (c *Config) AudioPath() string    { return filepath.Join(c.Pipeline.WorkDir, c.Pipeline.AudioFile) }
func (c *Config) ManifestPath() string {
	return filepath.Join(c.Pipeline.WorkDir, c.Pipeline.ManifestFile)
}
func (c *Config) OutputPath() string  { return filepath.Join(c.Pipeline.WorkDir, c.Pipeline.OutputFile) }
func (c *Config) HistoryPath() string { return filepath.Join(c.Pipeline.WorkDir, c.Pipeline.HistoryFile) }
func (c *Config) LockPath() string    { return filepath.Join(c.Pipeline.WorkDir, "dramacast.lock") }

func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Pipeline.DownloadSecs) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Daemon.PollSecs) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

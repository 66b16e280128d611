package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/menta2k/vehicle-counter/pkg/types"
)

// Stream backends
const (
	BackendOpenCV = "opencv"
	BackendFFmpeg = "ffmpeg"
	BackendImages = "images"
)

// Detector backends
const (
	DetectorCascade  = "cascade"
	DetectorSaliency = "saliency"
	DetectorOllama   = "ollama"
	DetectorLlamaCpp = "llamacpp"
)

// Cascade defaults, matching detectMultiScale(frame, 1.1, 1)
const (
	DefaultScaleFactor  = 1.1
	DefaultMinNeighbors = 1
)

// Config holds the application configuration
type Config struct {
	Input     InputConfig      `json:"input"`
	Output    OutputConfig     `json:"output"`
	Pipeline  PipelineConfig   `json:"pipeline"`
	Overlay   OverlayConfig    `json:"overlay"`
	Detectors []DetectorConfig `json:"detectors"`
	Logging   LoggingConfig    `json:"logging"`
}

// InputConfig selects the video to read
type InputConfig struct {
	Path    string `json:"path"`
	Backend string `json:"backend"`
}

// OutputConfig selects where annotated frames are written
type OutputConfig struct {
	Path    string  `json:"path"`
	Backend string  `json:"backend"`
	FPS     float64 `json:"fps"`
	Codec   string  `json:"codec"`
}

// PipelineConfig holds driver behaviour switches
type PipelineConfig struct {
	ProcessProbeFrame bool `json:"process_probe_frame"`
}

// OverlayConfig holds configuration for box drawing
type OverlayConfig struct {
	Thickness int  `json:"thickness"`
	Labels    bool `json:"labels"`
}

// DetectorConfig configures one detector handle. Detectors run in the order
// they are listed.
type DetectorConfig struct {
	Category string       `json:"category"`
	Color    *types.Color `json:"color,omitempty"`
	Backend  string       `json:"backend"`

	// cascade
	ModelPath    string  `json:"model_path,omitempty"`
	ScaleFactor  float64 `json:"scale_factor"`
	MinNeighbors int     `json:"min_neighbors"`
	MinSize      int     `json:"min_size,omitempty"`

	// ollama / llamacpp
	Model         string   `json:"model,omitempty"`
	URL           string   `json:"url,omitempty"`
	Labels        []string `json:"labels,omitempty"`
	MinConfidence float64  `json:"min_confidence,omitempty"`
}

// LoggingConfig holds configuration for the logger
type LoggingConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

// UnmarshalJSON decodes a detector entry. Cascade parameters missing from
// the entry keep their defaults; an explicit 0 is kept as given.
func (d *DetectorConfig) UnmarshalJSON(data []byte) error {
	type plain DetectorConfig
	p := plain{
		ScaleFactor:  DefaultScaleFactor,
		MinNeighbors: DefaultMinNeighbors,
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = DetectorConfig(p)
	return nil
}

// OverlayColor returns the configured color or the category default
func (d DetectorConfig) OverlayColor() types.Color {
	if d.Color != nil {
		return *d.Color
	}
	return types.DefaultColor(types.Category(d.Category))
}

// Default returns a configuration with default values
func Default() *Config {
	models := map[types.Category]string{
		types.Car:        "cars.xml",
		types.Bike:       "bikes.xml",
		types.Pedestrian: "pedestrian.xml",
		types.Bus:        "bus.xml",
	}
	var detectors []DetectorConfig
	for _, cat := range types.DefaultCategories() {
		detectors = append(detectors, DetectorConfig{
			Category:     string(cat),
			Backend:      DetectorCascade,
			ModelPath:    models[cat],
			ScaleFactor:  DefaultScaleFactor,
			MinNeighbors: DefaultMinNeighbors,
		})
	}

	return &Config{
		Input: InputConfig{
			Path:    "videoplayback.mp4",
			Backend: BackendOpenCV,
		},
		Output: OutputConfig{
			Path:    "output.avi",
			Backend: BackendOpenCV,
			FPS:     20,
			Codec:   "XVID",
		},
		Overlay: OverlayConfig{
			Thickness: 2,
		},
		Detectors: detectors,
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Fields missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// detectors are replaced as a whole, never merged element by element
	config := Default()
	defaults := config.Detectors
	config.Detectors = nil
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.Detectors == nil {
		config.Detectors = defaults
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Input.Path == "" {
		return fmt.Errorf("input.path is required")
	}
	if !validStreamBackend(c.Input.Backend) {
		return fmt.Errorf("input.backend must be one of opencv, ffmpeg, images (got %q)", c.Input.Backend)
	}

	if c.Output.Path == "" {
		return fmt.Errorf("output.path is required")
	}
	if !validStreamBackend(c.Output.Backend) {
		return fmt.Errorf("output.backend must be one of opencv, ffmpeg, images (got %q)", c.Output.Backend)
	}
	if c.Output.FPS <= 0 {
		return fmt.Errorf("output.fps must be positive")
	}
	if c.Output.Codec == "" {
		return fmt.Errorf("output.codec is required")
	}
	if c.Output.Backend == BackendOpenCV && len(c.Output.Codec) != 4 {
		return fmt.Errorf("output.codec must be a fourcc code for the opencv backend (got %q)", c.Output.Codec)
	}

	if c.Overlay.Thickness < 1 {
		return fmt.Errorf("overlay.thickness must be positive")
	}

	if len(c.Detectors) == 0 {
		return fmt.Errorf("at least one detector is required")
	}
	seen := make(map[string]bool, len(c.Detectors))
	for i, d := range c.Detectors {
		if err := d.validate(); err != nil {
			return fmt.Errorf("detectors[%d]: %w", i, err)
		}
		if seen[d.Category] {
			return fmt.Errorf("detectors[%d]: duplicate category %q", i, d.Category)
		}
		seen[d.Category] = true
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

func (d DetectorConfig) validate() error {
	if strings.TrimSpace(d.Category) == "" {
		return fmt.Errorf("category is required")
	}
	switch d.Backend {
	case DetectorCascade:
		if d.ModelPath == "" {
			return fmt.Errorf("model_path is required for cascade detectors")
		}
		if d.ScaleFactor <= 1 {
			return fmt.Errorf("scale_factor must be greater than 1")
		}
		if d.MinNeighbors < 0 || d.MinSize < 0 {
			return fmt.Errorf("min_neighbors and min_size cannot be negative")
		}
	case DetectorSaliency:
	case DetectorOllama, DetectorLlamaCpp:
		if d.Model == "" {
			return fmt.Errorf("model is required for %s detectors", d.Backend)
		}
		if d.MinConfidence < 0 || d.MinConfidence > 1 {
			return fmt.Errorf("min_confidence must be between 0 and 1")
		}
	default:
		return fmt.Errorf("unknown backend %q", d.Backend)
	}
	return nil
}

func validStreamBackend(b string) bool {
	switch b {
	case BackendOpenCV, BackendFFmpeg, BackendImages:
		return true
	}
	return false
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "vehicle-counter", "config.json")
}

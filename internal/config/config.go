// Package config handles mudra.yaml loading.
//
// Every value is optional; Default() provides the baseline and a loaded file
// overrides only the keys it sets. CLI flags override both.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/recording"
)

// Config represents a mudra.yaml configuration file.
type Config struct {
	Camera    CameraConfig    `yaml:"camera"`
	Model     ModelConfig     `yaml:"model"`
	Tracker   TrackerConfig   `yaml:"tracker"`
	Recording RecordingConfig `yaml:"recording"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
	Notify    NotifyConfig    `yaml:"notify"`
	Plugins   PluginsConfig   `yaml:"plugins"`
	Log       LogConfig       `yaml:"log"`
}

// CameraConfig selects the capture device.
type CameraConfig struct {
	Device int `yaml:"device"`
	FPS    int `yaml:"fps"`
}

// ModelConfig configures the MediaPipe hand landmarker service.
type ModelConfig struct {
	ScriptPath      string   `yaml:"script_path"`
	PythonPath      string   `yaml:"python_path"`
	MaxHands        int      `yaml:"max_hands"`
	MinConfidence   float64  `yaml:"min_detection_confidence"`
	MinPresenceConf float64  `yaml:"min_presence_confidence"`
	MinTrackingConf float64  `yaml:"min_tracking_confidence"`
	LoadTimeout     Duration `yaml:"load_timeout"`
	// Mock uses a detector that never finds hands, for running without Python.
	Mock bool `yaml:"mock"`
}

// TrackerConfig configures the detection loop.
type TrackerConfig struct {
	RefreshRate  Duration `yaml:"refresh_rate"`
	StartupDelay Duration `yaml:"startup_delay"`
}

// RecordingConfig configures recording sessions.
type RecordingConfig struct {
	SampleInterval  Duration `yaml:"sample_interval"`
	DefaultDuration string   `yaml:"default_duration"`
}

// StorageConfig locates the recordings database.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// NotifyConfig configures recording completion events.
type NotifyConfig struct {
	// Type is "redis" or empty for none.
	Type    string   `yaml:"type"`
	URL     string   `yaml:"url"`
	Channel string   `yaml:"channel,omitempty"`
	Timeout Duration `yaml:"timeout,omitempty"`
	Retries *int     `yaml:"retries,omitempty"`
	Recent  int      `yaml:"recent,omitempty"`
}

// PluginsConfig configures executables run on recording events.
type PluginsConfig struct {
	Enabled bool     `yaml:"enabled"`
	Dir     string   `yaml:"dir"`
	Timeout Duration `yaml:"timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "33ms", "5s").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "100ms" or "1m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML writes the duration in its string form.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Dir returns the mudra data directory (~/.mudra).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate home directory: %w", err)
	}
	return filepath.Join(home, ".mudra"), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	dir, err := Dir()
	if err != nil {
		return "mudra.yaml"
	}
	return filepath.Join(dir, "mudra.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	dbPath, pluginDir := "mudra.db", "plugins"
	if dir, err := Dir(); err == nil {
		dbPath = filepath.Join(dir, "mudra.db")
		pluginDir = filepath.Join(dir, "plugins")
	}

	return &Config{
		Camera: CameraConfig{FPS: 30},
		Model: ModelConfig{
			MaxHands:        2,
			MinConfidence:   0.5,
			MinPresenceConf: 0.5,
			MinTrackingConf: 0.5,
			LoadTimeout:     Duration{30 * time.Second},
		},
		Tracker: TrackerConfig{
			RefreshRate:  Duration{time.Second / 60},
			StartupDelay: Duration{100 * time.Millisecond},
		},
		Recording: RecordingConfig{
			SampleInterval:  Duration{recording.DefaultSampleInterval},
			DefaultDuration: "3s",
		},
		Storage: StorageConfig{Path: dbPath},
		Server:  ServerConfig{Addr: ":8080"},
		Plugins: PluginsConfig{
			Dir:     pluginDir,
			Timeout: Duration{5 * time.Second},
		},
		Log: LogConfig{Level: logging.DefaultLevel},
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error

	if c.Camera.Device < 0 {
		errs = append(errs, fmt.Errorf("camera.device must be >= 0, got %d", c.Camera.Device))
	}
	if c.Camera.FPS <= 0 {
		errs = append(errs, fmt.Errorf("camera.fps must be > 0, got %d", c.Camera.FPS))
	}
	if c.Model.MaxHands < 1 || c.Model.MaxHands > 2 {
		errs = append(errs, fmt.Errorf("model.max_hands must be 1 or 2, got %d", c.Model.MaxHands))
	}
	for name, v := range map[string]float64{
		"model.min_detection_confidence": c.Model.MinConfidence,
		"model.min_presence_confidence":  c.Model.MinPresenceConf,
		"model.min_tracking_confidence":  c.Model.MinTrackingConf,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %g", name, v))
		}
	}
	if c.Tracker.RefreshRate.Duration <= 0 {
		errs = append(errs, errors.New("tracker.refresh_rate must be positive"))
	}
	if c.Tracker.StartupDelay.Duration < 0 {
		errs = append(errs, errors.New("tracker.startup_delay must not be negative"))
	}
	if c.Recording.SampleInterval.Duration <= 0 {
		errs = append(errs, errors.New("recording.sample_interval must be positive"))
	}
	if _, err := recording.ParseDuration(c.Recording.DefaultDuration); err != nil {
		errs = append(errs, fmt.Errorf("recording.default_duration: %w", err))
	}
	if c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required"))
	}
	switch c.Notify.Type {
	case "":
	case "redis":
		if c.Notify.URL == "" {
			errs = append(errs, errors.New("notify.url is required for redis"))
		}
		if c.Notify.Retries != nil && *c.Notify.Retries < 0 {
			errs = append(errs, fmt.Errorf("notify.retries must be >= 0, got %d", *c.Notify.Retries))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown notify.type %q", c.Notify.Type))
	}
	if c.Plugins.Enabled && c.Plugins.Dir == "" {
		errs = append(errs, errors.New("plugins.dir is required when plugins are enabled"))
	}
	if c.Plugins.Timeout.Duration < 0 {
		errs = append(errs, errors.New("plugins.timeout must not be negative"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// RecordingDuration returns the parsed default session length.
func (c *Config) RecordingDuration() recording.Duration {
	d, err := recording.ParseDuration(c.Recording.DefaultDuration)
	if err != nil {
		return recording.Preset3s
	}
	return d
}

// Detector converts the model section into a detector configuration.
func (m ModelConfig) Detector() detector.Config {
	return detector.Config{
		MaxHands:        m.MaxHands,
		MinConfidence:   m.MinConfidence,
		MinPresenceConf: m.MinPresenceConf,
		MinTrackingConf: m.MinTrackingConf,
		ScriptPath:      m.ScriptPath,
		PythonPath:      m.PythonPath,
	}
}

// Package config loads segmenter settings from a YAML file.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"colorseg/internal/classify"
	"colorseg/internal/covariance"
	"colorseg/internal/features"
	"colorseg/internal/painter"
	"colorseg/pkg/colorutil"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	appDir     = "colorseg"
	configFile = "config.yaml"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds every tunable of a session.
type Config struct {
	Threshold  float64 `yaml:"threshold"`
	MaxSamples int     `yaml:"max_samples"`

	// Source is a camera index ("0") or a video/image path.
	Source       string `yaml:"source"`
	WarmupFrames int    `yaml:"warmup_frames"`

	StrokeWidth float64         `yaml:"stroke_width"`
	Workers     int             `yaml:"workers"`
	ColorSpace  colorutil.Space `yaml:"color_space"`
	Equalize    bool            `yaml:"equalize"`

	Regularization float64 `yaml:"regularization"`
	EigenTolerance float64 `yaml:"eigen_tolerance"`

	DistanceScale float64 `yaml:"distance_scale"`
	OutputDir     string  `yaml:"output_dir"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Threshold:      classify.DefaultThreshold,
		MaxSamples:     features.DefaultMaxSamples,
		Source:         "0",
		WarmupFrames:   1,
		StrokeWidth:    painter.DefaultStrokeWidth,
		ColorSpace:     colorutil.SpaceNative,
		Regularization: covariance.DefaultRegularization,
		EigenTolerance: covariance.DefaultTolerance,
		DistanceScale:  8,
		LogLevel:       "info",
		LogFormat:      "console",
	}
}

// DefaultPath returns ~/.config/colorseg/config.yaml (or the platform
// equivalent).
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, appDir, configFile)
}

// Load overlays the YAML file at path onto Default. A missing file yields
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(ErrInvalid, "%s: %v", path, err)
	}
	return cfg, cfg.Validate()
}

// Save writes cfg to path, creating its directory.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports the first setting out of range.
func (c Config) Validate() error {
	switch {
	case c.Threshold < 0:
		return errors.Wrapf(ErrInvalid, "threshold must be non-negative, got %v", c.Threshold)
	case c.MaxSamples < 2:
		return errors.Wrapf(ErrInvalid, "max_samples must be at least 2, got %d", c.MaxSamples)
	case strings.TrimSpace(c.Source) == "":
		return errors.Wrap(ErrInvalid, "source is empty")
	case c.WarmupFrames < 0:
		return errors.Wrapf(ErrInvalid, "warmup_frames must be non-negative, got %d", c.WarmupFrames)
	case c.StrokeWidth <= 0:
		return errors.Wrapf(ErrInvalid, "stroke_width must be positive, got %v", c.StrokeWidth)
	case c.Workers < 0:
		return errors.Wrapf(ErrInvalid, "workers must be non-negative, got %d", c.Workers)
	case !c.ColorSpace.Valid():
		return errors.Wrapf(ErrInvalid, "unknown color_space %q", c.ColorSpace)
	case c.Regularization < 0:
		return errors.Wrapf(ErrInvalid, "regularization must be non-negative, got %v", c.Regularization)
	case c.EigenTolerance < 0 || c.EigenTolerance >= 1:
		return errors.Wrapf(ErrInvalid, "eigen_tolerance must be in [0, 1), got %v", c.EigenTolerance)
	case c.DistanceScale <= 0:
		return errors.Wrapf(ErrInvalid, "distance_scale must be positive, got %v", c.DistanceScale)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrapf(ErrInvalid, "log_level: %v", err)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return errors.Wrapf(ErrInvalid, "log_format must be console or json, got %q", c.LogFormat)
	}
	return nil
}

// Package config handles application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

const (
	appName        = "closedcaption"
	configFileName = "config.json"
)

// Position controls how the overlay window is placed on screen.
type Position string

const (
	PositionFloating Position = "floating"
	PositionTop      Position = "top"
	PositionBottom   Position = "bottom"
)

// Font size bounds accepted by the settings dialog.
const (
	MinFontSize = 8
	MaxFontSize = 150
)

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Settings represents the persisted user configuration.
// It is passed explicitly into the components that need it; there is no
// process-wide settings singleton.
type Settings struct {
	FontFamily string   `json:"font_family"`
	FontSize   int      `json:"font_size"`
	TextColor  string   `json:"text_color"`
	Position   Position `json:"position"`
	Fullscreen bool     `json:"fullscreen"`

	// Capture and recognition
	DeviceID string `json:"device_id,omitempty"` // Empty means system default input
	Language string `json:"language"`            // BCP-47 code for the recognition model
	ModelDir string `json:"model_dir,omitempty"` // Empty means the default data dir
}

// Default returns the default settings.
func Default() *Settings {
	return &Settings{
		FontFamily: "Helvetica",
		FontSize:   24,
		TextColor:  "#FFFFFF",
		Position:   PositionFloating,
		Language:   "en-US",
	}
}

// Load loads settings from the config file.
// Returns defaults if the file doesn't exist.
func Load() (*Settings, error) {
	path, err := configPath()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}
	return loadFrom(path)
}

// Save persists the settings to disk.
func (s *Settings) Save() error {
	path, err := configPath()
	if err != nil {
		return fmt.Errorf("get config path: %w", err)
	}
	return s.saveTo(path)
}

// Validate checks that the settings are usable.
func (s *Settings) Validate() error {
	if s.FontFamily == "" {
		return fmt.Errorf("font family required")
	}
	if s.FontSize < MinFontSize || s.FontSize > MaxFontSize {
		return fmt.Errorf("font size %d out of range [%d, %d]", s.FontSize, MinFontSize, MaxFontSize)
	}
	if !hexColorRe.MatchString(s.TextColor) {
		return fmt.Errorf("text color must be #RRGGBB, got %q", s.TextColor)
	}
	switch s.Position {
	case PositionFloating, PositionTop, PositionBottom:
	default:
		return fmt.Errorf("invalid position: %q", s.Position)
	}
	if s.Language == "" {
		return fmt.Errorf("language required")
	}
	return nil
}

// DataDir returns the directory for models and transcripts, creating it if
// needed. ModelDir overrides the default location.
func (s *Settings) DataDir() (string, error) {
	if s.ModelDir != "" {
		return s.ModelDir, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName), nil
}

func loadFrom(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	s.applyDefaults()
	return &s, nil
}

func (s *Settings) saveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// applyDefaults fills zero values so configs written by older versions keep
// loading after new fields are added.
func (s *Settings) applyDefaults() {
	def := Default()
	if s.FontFamily == "" {
		s.FontFamily = def.FontFamily
	}
	if s.FontSize == 0 {
		s.FontSize = def.FontSize
	}
	if s.TextColor == "" {
		s.TextColor = def.TextColor
	}
	if s.Position == "" {
		s.Position = def.Position
	}
	if s.Language == "" {
		s.Language = def.Language
	}
}

func configPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}

package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings holds persistent CLI defaults loaded from a config file.
// Flags always win over config values.
type Settings struct {
	InputDir    string `yaml:"input_dir"`
	OutputDir   string `yaml:"output_dir"`
	Mode        string `yaml:"mode"`
	Workers     int    `yaml:"workers"`
	JPEGQuality int    `yaml:"jpeg_quality"`
	Display     string `yaml:"display"`

	// Run ledger. History is a pointer so an absent key keeps the
	// ledger enabled while an explicit false disables it.
	History     *bool  `yaml:"history,omitempty"`
	HistoryPath string `yaml:"history_path,omitempty"`
}

// HistoryEnabled reports whether finished batches should be recorded.
func (s *Settings) HistoryEnabled() bool {
	return s.History == nil || *s.History
}

// LoadSettings reads a YAML config file into Settings.
// If the file does not exist, it returns zero-value Settings and nil error.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return &s, nil
}

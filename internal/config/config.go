// Package config provides functionality for loading, saving, and managing
// application configuration settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"mindnoscape/editor/internal/log"
	"mindnoscape/editor/internal/model"
)

// DefaultPath is where the configuration lives unless overridden.
const DefaultPath = "./data/config.yaml"

var (
	currentConfig *model.Config
	configPath    = DefaultPath
)

// Default returns the configuration written on first start.
func Default() *model.Config {
	return &model.Config{
		Database: model.DatabaseConfig{
			Type: "sqlite",
			Dir:  "./data",
			File: "mindnoscape.db",
		},
		Logs: log.Config{
			Folder:     "./logs",
			CommandLog: "commands.log",
			ErrorLog:   "errors.log",
			InfoLog:    "info.log",
			Level:      "info",
		},
		Editor: model.EditorConfig{
			MaxHistory:         50,
			AutoLayout:         true,
			AutoSave:           true,
			HorizontalSpacing:  300,
			MinVerticalSpacing: 30,
			OriginX:            200,
			OriginY:            400,
		},
		Generator: model.GeneratorConfig{
			Provider:          "static",
			APIKeyEnv:         "OPENAI_API_KEY",
			Count:             3,
			RequestsPerMinute: 20,
			Timeout:           30 * time.Second,
			Temperature:       0.7,
			MaxTokens:         500,
		},
		Server: model.ServerConfig{
			Address: ":8080",
		},
	}
}

// SetPath changes the file used by ConfigLoad and ConfigSave.
func SetPath(path string) {
	if path != "" {
		configPath = path
	}
}

// Path returns the active configuration file path.
func Path() string {
	return configPath
}

// ConfigLoad loads the configuration from the YAML file.
// If the file doesn't exist, it creates a default configuration.
func ConfigLoad() error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	file, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := Default()
		if err := ConfigSave(cfg); err != nil {
			return fmt.Errorf("failed to create default config: %w", err)
		}
		currentConfig = cfg
		return nil
	}
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	// Start from defaults so keys missing from older files keep sane values.
	cfg := Default()
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	if err := validate(cfg); err != nil {
		return fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	currentConfig = cfg
	return nil
}

// ConfigSave saves the provided configuration to the YAML file.
func ConfigSave(cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// ConfigGet returns the current configuration.
func ConfigGet() *model.Config {
	return currentConfig
}

func validate(cfg *model.Config) error {
	switch cfg.Database.Type {
	case "sqlite", "badger":
	default:
		return fmt.Errorf("unsupported database type %q", cfg.Database.Type)
	}
	if _, err := log.ParseLevel(cfg.Logs.Level); err != nil {
		return err
	}
	if cfg.Editor.MaxHistory < 0 {
		return fmt.Errorf("max_history must not be negative")
	}
	if cfg.Generator.Count < 0 || cfg.Generator.Count > 8 {
		return fmt.Errorf("generator count must be between 1 and 8")
	}
	for name, c := range map[string]string{
		"question_background": cfg.Colors.QuestionBackground,
		"question_border":     cfg.Colors.QuestionBorder,
		"answer_background":   cfg.Colors.AnswerBackground,
		"answer_border":       cfg.Colors.AnswerBorder,
	} {
		if c != "" && !model.ValidColor(c) {
			return fmt.Errorf("%s: %q is not a #RRGGBB color", name, c)
		}
	}
	return nil
}

package model

import (
	"time"

	"mindnoscape/editor/internal/log"
)

// Config is the persisted application configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Logs      log.Config      `yaml:"logs"`
	Editor    EditorConfig    `yaml:"editor"`
	Colors    ColorConfig     `yaml:"colors"`
	Generator GeneratorConfig `yaml:"generator"`
	Server    ServerConfig    `yaml:"server"`
}

type DatabaseConfig struct {
	Type string `yaml:"type"`
	Dir  string `yaml:"dir"`
	File string `yaml:"file"`
}

type EditorConfig struct {
	MaxHistory         int     `yaml:"max_history"`
	AutoLayout         bool    `yaml:"auto_layout"`
	AutoSave           bool    `yaml:"auto_save"`
	HorizontalSpacing  float64 `yaml:"horizontal_spacing"`
	MinVerticalSpacing float64 `yaml:"min_vertical_spacing"`
	OriginX            float64 `yaml:"origin_x"`
	OriginY            float64 `yaml:"origin_y"`
}

// ColorConfig holds the user's preferred colors for question and answer nodes.
// Root nodes always use the built-in palette.
type ColorConfig struct {
	QuestionBackground string `yaml:"question_background"`
	QuestionBorder     string `yaml:"question_border"`
	AnswerBackground   string `yaml:"answer_background"`
	AnswerBorder       string `yaml:"answer_border"`
}

type GeneratorConfig struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	APIKeyEnv         string        `yaml:"api_key_env"`
	Count             int           `yaml:"count"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
	Temperature       float32       `yaml:"temperature"`
	MaxTokens         int           `yaml:"max_tokens"`
}

type ServerConfig struct {
	Address string `yaml:"address"`
}

// NodeColors implements ColorSource.
func (c *Config) NodeColors(kind Kind) (NodeColors, bool) {
	switch kind {
	case KindQuestion:
		return NodeColors{Background: c.Colors.QuestionBackground, Border: c.Colors.QuestionBorder}, true
	case KindAnswer:
		return NodeColors{Background: c.Colors.AnswerBackground, Border: c.Colors.AnswerBorder}, true
	default:
		return NodeColors{}, false
	}
}

// Package config provides configuration loading and management for policygen.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete policygen configuration
type Config struct {
	Model      ModelConfig      `yaml:"model"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Vocabulary VocabularyConfig `yaml:"vocabulary"`
	NATS       NATSConfig       `yaml:"nats"`
	Eval       EvalConfig       `yaml:"eval"`
}

// ModelConfig configures the LLM model settings
type ModelConfig struct {
	// RegistryPath points to the model registry JSON (empty = built-in defaults)
	RegistryPath string `yaml:"registry_path"`
	// Default is the default model to use (e.g., "qwen2.5-coder:32b")
	Default string `yaml:"default"`
	// Endpoint is the Ollama API endpoint (default: http://localhost:11434/v1)
	Endpoint string `yaml:"endpoint"`
	// Timeout is the maximum time to wait for model responses
	Timeout time.Duration `yaml:"timeout"`
}

// PipelineConfig configures the generation and repair pipeline
type PipelineConfig struct {
	// MaxAttempts bounds the validate-repair loop (default: 3)
	MaxAttempts int `yaml:"max_attempts"`
	// CheckTimeout bounds one combined checking pass (default: 30s)
	CheckTimeout time.Duration `yaml:"check_timeout"`
	// ProceedOnNeedsInput lets generation run on a NEEDS_INPUT decision
	// instead of stopping for clarification
	ProceedOnNeedsInput bool `yaml:"proceed_on_needs_input"`
	// ShapesPath points to the shapes YAML (empty = built-in core profile)
	ShapesPath string `yaml:"shapes_path"`
	// WatchShapes enables hot reloading of the shapes file
	WatchShapes bool `yaml:"watch_shapes"`
}

// VocabularyConfig configures the per-run allowed terms
type VocabularyConfig struct {
	// Path points to the vocabulary YAML file
	Path string `yaml:"path"`
}

// NATSConfig configures the NATS connection for run records
type NATSConfig struct {
	// URL is the NATS server URL (empty = run records disabled)
	URL string `yaml:"url"`
	// Bucket is the JetStream KV bucket prefix for run and call records
	Bucket string `yaml:"bucket"`
}

// EvalConfig configures batch evaluation
type EvalConfig struct {
	// Concurrency is the number of parallel pipeline runs (default: 4)
	Concurrency int `yaml:"concurrency"`
	// OutputDir is where per-run results are written
	OutputDir string `yaml:"output_dir"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Default:  "qwen2.5-coder:32b",
			Endpoint: "http://localhost:11434/v1",
			Timeout:  5 * time.Minute,
		},
		Pipeline: PipelineConfig{
			MaxAttempts:  3,
			CheckTimeout: 30 * time.Second,
		},
		NATS: NATSConfig{
			Bucket: "policygen",
		},
		Eval: EvalConfig{
			Concurrency: 4,
			OutputDir:   "eval-results",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Model.Default == "" {
		return fmt.Errorf("model.default is required")
	}
	if c.Model.Endpoint == "" {
		return fmt.Errorf("model.endpoint is required")
	}
	if c.Pipeline.MaxAttempts < 1 {
		return fmt.Errorf("pipeline.max_attempts must be at least 1")
	}
	if c.Pipeline.CheckTimeout <= 0 {
		return fmt.Errorf("pipeline.check_timeout must be positive")
	}
	if c.Eval.Concurrency < 1 {
		return fmt.Errorf("eval.concurrency must be at least 1")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Model
	if other.Model.RegistryPath != "" {
		c.Model.RegistryPath = other.Model.RegistryPath
	}
	if other.Model.Default != "" {
		c.Model.Default = other.Model.Default
	}
	if other.Model.Endpoint != "" {
		c.Model.Endpoint = other.Model.Endpoint
	}
	if other.Model.Timeout != 0 {
		c.Model.Timeout = other.Model.Timeout
	}

	// Pipeline
	if other.Pipeline.MaxAttempts != 0 {
		c.Pipeline.MaxAttempts = other.Pipeline.MaxAttempts
	}
	if other.Pipeline.CheckTimeout != 0 {
		c.Pipeline.CheckTimeout = other.Pipeline.CheckTimeout
	}
	if other.Pipeline.ProceedOnNeedsInput {
		c.Pipeline.ProceedOnNeedsInput = true
	}
	if other.Pipeline.ShapesPath != "" {
		c.Pipeline.ShapesPath = other.Pipeline.ShapesPath
	}
	if other.Pipeline.WatchShapes {
		c.Pipeline.WatchShapes = true
	}

	// Vocabulary
	if other.Vocabulary.Path != "" {
		c.Vocabulary.Path = other.Vocabulary.Path
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Bucket != "" {
		c.NATS.Bucket = other.NATS.Bucket
	}

	// Eval
	if other.Eval.Concurrency != 0 {
		c.Eval.Concurrency = other.Eval.Concurrency
	}
	if other.Eval.OutputDir != "" {
		c.Eval.OutputDir = other.Eval.OutputDir
	}
}

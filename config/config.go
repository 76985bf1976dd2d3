// Package config loads deepruster settings from defaults, an optional YAML
// file, a .env file and the environment. Command-line flags are applied
// last by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/OmBiradar/deepruster/agentloop"
	"github.com/OmBiradar/deepruster/toolchain"
	"github.com/OmBiradar/deepruster/unifiedllm"
)

// DefaultFile is the config file looked up when none is given.
const DefaultFile = "deepruster.yaml"

// Config holds all deepruster configuration.
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Toolchain ToolchainConfig `yaml:"toolchain"`
	Loop      LoopConfig      `yaml:"loop"`
	Extract   ExtractConfig   `yaml:"extract"`
	Prompt    PromptConfig    `yaml:"prompt"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ModelConfig selects the model backend.
type ModelConfig struct {
	Backend     string  `yaml:"backend"` // gollm, langchain, openai
	BaseURL     string  `yaml:"base_url"`
	Name        string  `yaml:"name"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	MaxRetries  int     `yaml:"max_retries"`
	Timeout     string  `yaml:"timeout"` // per request, empty for none
}

// ToolchainConfig selects the compiler.
type ToolchainConfig struct {
	Name           string `yaml:"name"` // rustc, gcc, go
	CompileTimeout string `yaml:"compile_timeout"`
}

// LoopConfig configures the correction loop.
type LoopConfig struct {
	// Task is free text. When empty, Project picks one of Projects.
	Task          string `yaml:"task"`
	Project       int    `yaml:"project"`
	MaxIterations int    `yaml:"max_iterations"` // 0 = unlimited
	RepeatWindow  int    `yaml:"repeat_window"`
}

// ExtractConfig configures code extraction.
type ExtractConfig struct {
	Kind           string `yaml:"kind"`             // scanner, markdown
	OnMissingFence string `yaml:"on_missing_fence"` // fail, raw
}

// PromptConfig configures prompt rendering.
type PromptConfig struct {
	MaxDiagnosticChars int  `yaml:"max_diagnostic_chars"`
	MaxDiagnosticLines int  `yaml:"max_diagnostic_lines"`
	IncludeEnvironment bool `yaml:"include_environment"`
}

// OutputConfig configures the generated-code directory.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
	Level   string `yaml:"level"` // console level: debug, info, warning, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Backend:     unifiedllm.BackendGollm,
			BaseURL:     "http://localhost:11434",
			Name:        "codellama",
			Temperature: 0.8,
			MaxRetries:  2,
		},
		Toolchain: ToolchainConfig{
			Name: toolchain.DefaultProfileID,
		},
		Loop: LoopConfig{
			Project:      DefaultProject,
			RepeatWindow: 3,
		},
		Extract: ExtractConfig{
			Kind:           "scanner",
			OnMissingFence: agentloop.OnMissingFenceFail,
		},
		Output: OutputConfig{
			Dir: "./generated_code",
		},
		Logging: LoggingConfig{
			File:  "deepruster.log",
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path and
// the environment. A missing file is not an error. A .env file in the
// working directory is loaded first; it never overrides variables that
// are already set.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	// OLLAMA_HOST is what the ollama CLI reads; DEEPRUSTER_BASE_URL wins.
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		c.Model.BaseURL = normalizeHost(host)
	}
	setString(&c.Model.BaseURL, "DEEPRUSTER_BASE_URL")
	setString(&c.Model.Backend, "DEEPRUSTER_BACKEND")
	setString(&c.Model.Name, "DEEPRUSTER_MODEL")
	setString(&c.Model.APIKey, "DEEPRUSTER_API_KEY")
	setString(&c.Model.Timeout, "DEEPRUSTER_MODEL_TIMEOUT")
	setString(&c.Toolchain.Name, "DEEPRUSTER_TOOLCHAIN")
	setString(&c.Toolchain.CompileTimeout, "DEEPRUSTER_COMPILE_TIMEOUT")
	setString(&c.Loop.Task, "DEEPRUSTER_TASK")
	setString(&c.Output.Dir, "DEEPRUSTER_OUTPUT_DIR")
	setString(&c.Logging.File, "DEEPRUSTER_LOG_FILE")
	setString(&c.Logging.Level, "DEEPRUSTER_LOG_LEVEL")

	if err := setInt(&c.Loop.Project, "DEEPRUSTER_PROJECT"); err != nil {
		return err
	}
	if err := setInt(&c.Loop.MaxIterations, "DEEPRUSTER_MAX_ITERATIONS"); err != nil {
		return err
	}
	if err := setInt(&c.Model.MaxRetries, "DEEPRUSTER_MAX_RETRIES"); err != nil {
		return err
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	*dst = n
	return nil
}

// normalizeHost turns an OLLAMA_HOST value such as "0.0.0.0:11434" into a URL.
func normalizeHost(host string) string {
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return strings.TrimRight(host, "/")
	}
	return "http://" + strings.TrimRight(host, "/")
}

// GetModelTimeout returns the per-request model timeout, zero for none.
func (c *Config) GetModelTimeout() (time.Duration, error) {
	return parseTimeout("model.timeout", c.Model.Timeout)
}

// GetCompileTimeout returns the compile timeout, zero for none.
func (c *Config) GetCompileTimeout() (time.Duration, error) {
	return parseTimeout("toolchain.compile_timeout", c.Toolchain.CompileTimeout)
}

func parseTimeout(name, value string) (time.Duration, error) {
	if value == "" || value == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", name, value)
	}
	return d, nil
}

// ResolveTask returns the task text: Loop.Task when set, otherwise the
// project selected by Loop.Project.
func (c *Config) ResolveTask() (string, error) {
	if task := strings.TrimSpace(c.Loop.Task); task != "" {
		return task, nil
	}
	return Project(c.Loop.Project)
}

// Validate checks the configuration for values no component accepts.
func (c *Config) Validate() error {
	if !contains(unifiedllm.Backends(), strings.ToLower(c.Model.Backend)) {
		return fmt.Errorf("invalid model backend: %s (valid: %v)", c.Model.Backend, unifiedllm.Backends())
	}
	if c.Model.Name == "" {
		return errors.New("model name not configured")
	}
	if c.Model.MaxRetries < 0 {
		return fmt.Errorf("model.max_retries must not be negative, got %d", c.Model.MaxRetries)
	}
	if !contains(toolchain.ProfileIDs(), strings.ToLower(c.Toolchain.Name)) {
		return fmt.Errorf("invalid toolchain: %s (valid: %v)", c.Toolchain.Name, toolchain.ProfileIDs())
	}
	if c.Loop.MaxIterations < 0 {
		return fmt.Errorf("loop.max_iterations must not be negative, got %d", c.Loop.MaxIterations)
	}
	if !contains([]string{"scanner", "markdown"}, strings.ToLower(c.Extract.Kind)) {
		return fmt.Errorf("invalid extract.kind: %s (valid: [scanner markdown])", c.Extract.Kind)
	}
	switch c.Extract.OnMissingFence {
	case agentloop.OnMissingFenceFail, agentloop.OnMissingFenceRaw:
	default:
		return fmt.Errorf("invalid extract.on_missing_fence: %s (valid: [fail raw])", c.Extract.OnMissingFence)
	}
	if c.Output.Dir == "" {
		return errors.New("output.dir not configured")
	}
	if c.Logging.File == "" {
		return errors.New("logging.file not configured")
	}
	if _, err := c.GetModelTimeout(); err != nil {
		return err
	}
	if _, err := c.GetCompileTimeout(); err != nil {
		return err
	}
	if _, err := c.ResolveTask(); err != nil {
		return err
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for collabscope.
type Config struct {
	// AI rater settings
	AI AIConfig `koanf:"ai" toml:"ai"`

	// Orchestrator settings
	Orchestrator OrchestratorConfig `koanf:"orchestrator" toml:"orchestrator"`

	// CQI calculation settings
	CQI CQIConfig `koanf:"cqi" toml:"cqi"`

	// Commit chunker settings
	Chunker ChunkerConfig `koanf:"chunker" toml:"chunker"`

	// Pre-filter pattern settings
	PreFilter PreFilterConfig `koanf:"prefilter" toml:"prefilter"`

	// Git repository cache settings
	Git GitConfig `koanf:"git" toml:"git"`

	// Attendance schedule settings
	Attendance AttendanceConfig `koanf:"attendance" toml:"attendance"`

	// HTTP server settings
	Server ServerConfig `koanf:"server" toml:"server"`

	// Persistence settings
	Store StoreConfig `koanf:"store" toml:"store"`
}

// AIConfig controls the LLM effort rater.
type AIConfig struct {
	Enabled    bool   `koanf:"enabled" toml:"enabled"`
	Model      string `koanf:"model" toml:"model"`
	BaseURL    string `koanf:"base_url" toml:"base_url"`
	APIKey     string `koanf:"api_key" toml:"api_key"`
	TimeoutSec int    `koanf:"timeout_sec" toml:"timeout_sec"`
	Workers    int    `koanf:"workers" toml:"workers"`
}

// OrchestratorConfig controls the per-exercise pipeline driver.
type OrchestratorConfig struct {
	Workers int `koanf:"workers" toml:"workers"`
}

// CQIConfig controls score weighting and penalties.
type CQIConfig struct {
	Weights   CQIWeights `koanf:"weights" toml:"weights"`
	Penalties PenaltyConfig `koanf:"penalties" toml:"penalties"`
}

// CQIWeights defines the component weights. The four primary weights must
// sum to 1.0; pair_programming joins the sum only when the component
// applies.
type CQIWeights struct {
	Effort          float64 `koanf:"effort" toml:"effort"`
	Loc             float64 `koanf:"loc" toml:"loc"`
	Temporal        float64 `koanf:"temporal" toml:"temporal"`
	Ownership       float64 `koanf:"ownership" toml:"ownership"`
	PairProgramming float64 `koanf:"pair_programming" toml:"pair_programming"`
}

// PenaltyConfig gates penalty multipliers. Penalties are always computed
// and returned in the result structure; Enabled controls whether they
// affect the final score.
type PenaltyConfig struct {
	Enabled bool `koanf:"enabled" toml:"enabled"`
}

// ChunkerConfig controls commit bundling and splitting.
type ChunkerConfig struct {
	MaxChunkLines   int `koanf:"max_chunk_lines" toml:"max_chunk_lines"`
	BundleMaxLines  int `koanf:"bundle_max_lines" toml:"bundle_max_lines"`
	BundleWindowMin int `koanf:"bundle_window_min" toml:"bundle_window_min"`
}

// PreFilterConfig carries the configurable pattern sets. The shipped
// defaults cover the common generated files and throwaway messages; they
// are configuration, not invariants.
type PreFilterConfig struct {
	GeneratedFilePatterns  []string `koanf:"generated_file_patterns" toml:"generated_file_patterns"`
	TrivialMessagePatterns []string `koanf:"trivial_message_patterns" toml:"trivial_message_patterns"`
	FormatMessageTokens    []string `koanf:"format_message_tokens" toml:"format_message_tokens"`
}

// GitConfig controls the local repository cache.
type GitConfig struct {
	CacheDir string `koanf:"cache_dir" toml:"cache_dir"`
	Username string `koanf:"username" toml:"username"`
	Password string `koanf:"password" toml:"password"`
}

// AttendanceConfig controls schedule interpretation.
type AttendanceConfig struct {
	SessionsToKeep int `koanf:"sessions_to_keep" toml:"sessions_to_keep"`
}

// ServerConfig controls the inbound HTTP surface.
type ServerConfig struct {
	Addr string `koanf:"addr" toml:"addr"`
}

// StoreConfig controls persistence.
type StoreConfig struct {
	Path string `koanf:"path" toml:"path"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		AI: AIConfig{
			Enabled:    true,
			Model:      "gpt-4o-mini",
			BaseURL:    "http://localhost:11434/v1",
			TimeoutSec: 60,
			Workers:    4,
		},
		Orchestrator: OrchestratorConfig{
			Workers: 4,
		},
		CQI: CQIConfig{
			Weights: CQIWeights{
				Effort:          0.40,
				Loc:             0.25,
				Temporal:        0.20,
				Ownership:       0.15,
				PairProgramming: 0.10,
			},
			Penalties: PenaltyConfig{Enabled: true},
		},
		Chunker: ChunkerConfig{
			MaxChunkLines:   500,
			BundleMaxLines:  30,
			BundleWindowMin: 60,
		},
		PreFilter: PreFilterConfig{
			GeneratedFilePatterns: []string{
				"*-lock.json",
				"yarn.lock",
				"*.lock",
				"Cargo.lock",
				"go.sum",
				"*.min.js",
				"*.min.css",
				"dist/*",
				"build/*",
				"target/*",
				"node_modules/*",
			},
			TrivialMessagePatterns: []string{
				`^[[:punct:]]$`,
				`^(wip|temp|test|oops|stuff|changes|init|initial commit|first commit|typo(s)?|fix typo)$`,
				`^chore\(deps\)`,
				`\[bot\]`,
				`^auto-format`,
				`^update dependencies`,
			},
			FormatMessageTokens: []string{
				"format", "formatting", "prettier", "eslint", "checkstyle",
				"spotless", "black", "indent", "whitespace", "style",
			},
		},
		Git: GitConfig{
			CacheDir: ".collabscope/repos",
		},
		Attendance: AttendanceConfig{
			SessionsToKeep: 3,
		},
		Server: ServerConfig{
			Addr: ":8085",
		},
		Store: StoreConfig{
			Path: ".collabscope/collabscope.db",
		},
	}
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in standard locations.
// Returns the path if found, or empty string if not found.
func FindConfigFile() string {
	configNames := []string{
		"collabscope.toml",
		"collabscope.yaml",
		"collabscope.yml",
		"collabscope.json",
	}

	searchDirs := []string{".", ".collabscope"}

	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault loads config from standard locations or returns defaults.
// Returns an error if validation fails.
func LoadOrDefault() (*Config, error) {
	path := FindConfigFile()
	if path == "" {
		return DefaultConfig(), nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that all config values are within acceptable ranges.
func (c *Config) Validate() error {
	var errs []error

	if c.AI.TimeoutSec < 1 {
		errs = append(errs, errors.New("ai.timeout_sec must be at least 1"))
	}
	if c.AI.Workers < 1 {
		errs = append(errs, errors.New("ai.workers must be at least 1"))
	}
	if c.AI.Enabled && c.AI.Model == "" {
		errs = append(errs, errors.New("ai.model must be set when ai.enabled is true"))
	}
	if c.AI.Enabled && c.AI.BaseURL == "" {
		errs = append(errs, errors.New("ai.base_url must be set when ai.enabled is true"))
	}

	if c.Orchestrator.Workers < 1 {
		errs = append(errs, errors.New("orchestrator.workers must be at least 1"))
	}

	primary := c.CQI.Weights.Effort + c.CQI.Weights.Loc +
		c.CQI.Weights.Temporal + c.CQI.Weights.Ownership
	if math.Abs(primary-1.0) > 0.01 {
		errs = append(errs, fmt.Errorf("cqi.weights effort+loc+temporal+ownership must sum to 1.0, got %f", primary))
	}
	if c.CQI.Weights.Effort < 0 || c.CQI.Weights.Loc < 0 ||
		c.CQI.Weights.Temporal < 0 || c.CQI.Weights.Ownership < 0 ||
		c.CQI.Weights.PairProgramming < 0 {
		errs = append(errs, errors.New("cqi.weights values must be non-negative"))
	}

	if c.Chunker.MaxChunkLines < 1 {
		errs = append(errs, errors.New("chunker.max_chunk_lines must be at least 1"))
	}
	if c.Chunker.BundleMaxLines < 0 {
		errs = append(errs, errors.New("chunker.bundle_max_lines must be non-negative"))
	}
	if c.Chunker.BundleWindowMin < 1 {
		errs = append(errs, errors.New("chunker.bundle_window_min must be at least 1"))
	}
	if c.Chunker.BundleMaxLines > c.Chunker.MaxChunkLines {
		errs = append(errs, errors.New("chunker.bundle_max_lines must not exceed chunker.max_chunk_lines"))
	}

	if c.Attendance.SessionsToKeep < 1 {
		errs = append(errs, errors.New("attendance.sessions_to_keep must be at least 1"))
	}

	if c.Git.CacheDir == "" {
		errs = append(errs, errors.New("git.cache_dir must be set"))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path must be set"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

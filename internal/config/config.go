package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Page naming strategies for materialized pages.
const (
	PageNamingContent = "content" // sha256 of the rendered page
	PageNamingTitle   = "title"   // sha256 of the display name (legacy links)
)

// Config holds application configuration.
type Config struct {
	// ManifestPath is the category manifest (YAML or JSON). "~" is expanded.
	ManifestPath string `json:"manifest_path,omitempty"`

	// OutputDir is where the merged site tree is exported.
	OutputDir string `json:"output_dir,omitempty"`

	// FeedBaseURL is the feed API root, e.g. https://freefeed.net/v2
	FeedBaseURL string `json:"feed_base_url,omitempty"`

	// FeedUsername is the timeline owner used by the feed command when no user is given.
	FeedUsername string `json:"feed_username,omitempty"`

	// AIModel is the generative model name.
	AIModel string `json:"ai_model,omitempty"`

	// AIBaseURL is the completion endpoint root.
	AIBaseURL string `json:"ai_base_url,omitempty"`

	// JitterMinMS and JitterMaxMS bound the randomized delay before each AI call.
	JitterMinMS int `json:"jitter_min_ms,omitempty"`
	JitterMaxMS int `json:"jitter_max_ms,omitempty"`

	// MaxParallel caps render and fetch fan-out. 0 means unbounded.
	MaxParallel int `json:"max_parallel,omitempty"`

	// PageNaming selects how page file names are derived: "content" or "title".
	PageNaming string `json:"page_naming,omitempty"`

	// ElaborationPrompt names the prompt template used when a comment is expanded.
	ElaborationPrompt string `json:"elaboration_prompt,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// Secrets are never read from config.json; see LoadSecrets.
	GeminiAPIKey string `json:"-"`
	FeedToken    string `json:"-"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ManifestPath:      "~/docuverse.json",
		OutputDir:         "/tmp/example.com",
		FeedBaseURL:       "https://freefeed.net/v2",
		AIModel:           "gemini-1.5-flash-latest",
		AIBaseURL:         "https://generativelanguage.googleapis.com/v1beta",
		JitterMinMS:       100,
		JitterMaxMS:       1500,
		PageNaming:        PageNamingContent,
		ElaborationPrompt: "socratic",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.docuverse) and repo (.docuverse) directories.
// Repo config is found by walking upward from startDir to find the nearest .docuverse/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .docuverse/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".docuverse", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// LoadSecrets fills API credentials from the environment, after loading
// baseDir/.env if present. Existing environment variables win over .env values.
func LoadSecrets(cfg *Config, baseDir string) error {
	envPath := filepath.Join(baseDir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return err
		}
	}
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.FeedToken = os.Getenv("FREEFEED_TOKEN")
	return nil
}

// ExpandHome expands a leading "~" to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		ManifestPath:      pickString(overlay.ManifestPath, base.ManifestPath),
		OutputDir:         pickString(overlay.OutputDir, base.OutputDir),
		FeedBaseURL:       pickString(overlay.FeedBaseURL, base.FeedBaseURL),
		FeedUsername:      pickString(overlay.FeedUsername, base.FeedUsername),
		AIModel:           pickString(overlay.AIModel, base.AIModel),
		AIBaseURL:         pickString(overlay.AIBaseURL, base.AIBaseURL),
		PageNaming:        pickString(overlay.PageNaming, base.PageNaming),
		ElaborationPrompt: pickString(overlay.ElaborationPrompt, base.ElaborationPrompt),
		JitterMinMS:       pickInt(overlay.JitterMinMS, base.JitterMinMS),
		JitterMaxMS:       pickInt(overlay.JitterMaxMS, base.JitterMaxMS),
		MaxParallel:       pickInt(overlay.MaxParallel, base.MaxParallel),
		DBMaxOpenConns:    pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:    pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		GeminiAPIKey:      pickString(overlay.GeminiAPIKey, base.GeminiAPIKey),
		FeedToken:         pickString(overlay.FeedToken, base.FeedToken),
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func pickString(overlay, base string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

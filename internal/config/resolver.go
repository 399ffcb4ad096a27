// Package config resolves layered configuration for the pipeline: YAML file,
// then environment, then CLI flags, each layer overriding the previous one.
// Every resolved value remembers where it came from, so `trainlog config`
// style debugging can show why a setting has the value it has.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pistalab/trainlog/internal/llm"
)

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

// ResolvedValue is a setting plus its provenance.
type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolveOptions carries the CLI-level overrides into resolution.
type ResolveOptions struct {
	ConfigPath  string
	CLIProvider string
	CLIModel    string
	CLIDBPath   string
}

// ResolvedConfig is the full resolved settings tree.
type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath      ResolvedValue `json:"db_path"`
	LLMProvider ResolvedValue `json:"llm_provider"`
	LLMModel    ResolvedValue `json:"llm_model"`
	LLMAPIKey   ResolvedValue `json:"-"`
	LLMBaseURL  ResolvedValue `json:"llm_base_url"`
	TimeoutSecs ResolvedValue `json:"timeout_secs"`

	ServerHost   ResolvedValue `json:"server_host"`
	ServerPort   ResolvedValue `json:"server_port"`
	ServerAPIKey ResolvedValue `json:"-"`

	FactsLookahead ResolvedValue `json:"facts_lookahead"`
}

type fileConfig struct {
	DBPath string `yaml:"db_path"`
	LLM    struct {
		Provider    string `yaml:"provider"`
		Model       string `yaml:"model"`
		APIKey      string `yaml:"api_key"`
		BaseURL     string `yaml:"base_url"`
		TimeoutSecs int    `yaml:"timeout_secs"`
	} `yaml:"llm"`
	Server struct {
		Host   string `yaml:"host"`
		Port   int    `yaml:"port"`
		APIKey string `yaml:"api_key"`
	} `yaml:"server"`
	Facts struct {
		LookaheadChars int `yaml:"lookahead_chars"`
	} `yaml:"facts"`
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".trainlog", "config.yaml")
}

// Resolve loads the YAML file (missing file is fine), applies environment
// overrides, then CLI overrides.
func Resolve(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{ConfigPath: path}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}
	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.LLMProvider, cfg.LLM.Provider, SourceConfig, path)
		apply(&out.LLMModel, cfg.LLM.Model, SourceConfig, path)
		apply(&out.LLMAPIKey, cfg.LLM.APIKey, SourceConfig, path)
		apply(&out.LLMBaseURL, cfg.LLM.BaseURL, SourceConfig, path)
		if cfg.LLM.TimeoutSecs > 0 {
			apply(&out.TimeoutSecs, strconv.Itoa(cfg.LLM.TimeoutSecs), SourceConfig, path)
		}
		apply(&out.ServerHost, cfg.Server.Host, SourceConfig, path)
		if cfg.Server.Port > 0 {
			apply(&out.ServerPort, strconv.Itoa(cfg.Server.Port), SourceConfig, path)
		}
		apply(&out.ServerAPIKey, cfg.Server.APIKey, SourceConfig, path)
		if cfg.Facts.LookaheadChars > 0 {
			apply(&out.FactsLookahead, strconv.Itoa(cfg.Facts.LookaheadChars), SourceConfig, path)
		}
	}

	applyEnv(&out.DBPath, "TRAINLOG_DB")
	applyEnv(&out.LLMProvider, "TRAINLOG_LLM")
	applyEnv(&out.LLMModel, "TRAINLOG_MODEL")
	applyEnv(&out.LLMAPIKey, "TRAINLOG_API_KEY")
	applyEnv(&out.LLMBaseURL, "TRAINLOG_BASE_URL")
	applyEnv(&out.TimeoutSecs, "TRAINLOG_TIMEOUT_SECS")
	applyEnv(&out.ServerHost, "TRAINLOG_SERVER_HOST")
	applyEnv(&out.ServerPort, "TRAINLOG_SERVER_PORT")
	applyEnv(&out.ServerAPIKey, "TRAINLOG_SERVER_API_KEY")
	applyEnv(&out.FactsLookahead, "TRAINLOG_FACTS_LOOKAHEAD")

	apply(&out.LLMProvider, opts.CLIProvider, SourceCLI, "--provider")
	apply(&out.LLMModel, opts.CLIModel, SourceCLI, "--model")
	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")

	if out.LLMProvider.Value == "" {
		out.LLMProvider = ResolvedValue{Value: "google", Source: SourceDefault, From: "built-in default"}
	}
	if out.DBPath.Value != "" {
		out.DBPath.Value = expandUserPath(out.DBPath.Value)
	} else {
		home, _ := os.UserHomeDir()
		out.DBPath = ResolvedValue{
			Value:  filepath.Join(home, ".trainlog", "trainlog.db"),
			Source: SourceDefault,
			From:   "built-in default",
		}
	}

	return out, nil
}

// LLMConfig converts the resolved settings into an oracle provider config.
func (r ResolvedConfig) LLMConfig() llm.Config {
	return llm.Config{
		Provider: r.LLMProvider.Value,
		Model:    r.LLMModel.Value,
		APIKey:   r.LLMAPIKey.Value,
		BaseURL:  r.LLMBaseURL.Value,
	}
}

// ServerAddr returns host:port with defaults 127.0.0.1:8080.
func (r ResolvedConfig) ServerAddr() string {
	host := r.ServerHost.Value
	if host == "" {
		host = "127.0.0.1"
	}
	port := r.ServerPort.Value
	if port == "" {
		port = "8080"
	}
	return host + ":" + port
}

// TimeoutSeconds returns the oracle call timeout, default 120.
func (r ResolvedConfig) TimeoutSeconds() int {
	return intOr(r.TimeoutSecs.Value, 120)
}

// FactsLookaheadChars returns the repetition-marker lookahead, 0 meaning
// "use the extractor's default".
func (r ResolvedConfig) FactsLookaheadChars() int {
	return intOr(r.FactsLookahead.Value, 0)
}

func intOr(s string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

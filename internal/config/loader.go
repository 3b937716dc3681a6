package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Default values applied when the config file omits them.
const (
	DefaultHistoryCap = 20
	DefaultModel      = "claude-sonnet-4-5-20250929"
	DefaultMaxTokens  = 4096
	DefaultLogLevel   = "info"
)

// Load reads the YAML configuration file at path and applies
// environment-variable overrides for credentials. Credentials in the
// environment (JIRA_API_TOKEN, CONFLUENCE_API_TOKEN, ANTHROPIC_API_KEY)
// take precedence over file values so tokens can stay out of the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}

	cfg := &Config{
		Jira: JiraConfig{
			BaseURL:    k.String("jira.base_url"),
			Email:      k.String("jira.email"),
			APIToken:   k.String("jira.api_token"),
			ProjectKey: k.String("jira.project_key"),
		},
		Confluence: ConfluenceConfig{
			BaseURL:       k.String("confluence.base_url"),
			Email:         k.String("confluence.email"),
			APIToken:      k.String("confluence.api_token"),
			IncidentSpace: k.String("confluence.incident_space"),
		},
		LLM: LLMConfig{
			APIKey:    k.String("llm.api_key"),
			Model:     k.String("llm.model"),
			MaxTokens: k.Int("llm.max_tokens"),
		},
		HistoryCap: k.Int("history_cap"),
		LogLevel:   k.String("log_level"),
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HistoryCap == 0 {
		cfg.HistoryCap = DefaultHistoryCap
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultModel
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = DefaultMaxTokens
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.Confluence.Email == "" {
		cfg.Confluence.Email = cfg.Jira.Email
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("JIRA_API_TOKEN"); v != "" {
		cfg.Jira.APIToken = v
	}
	if v := os.Getenv("CONFLUENCE_API_TOKEN"); v != "" {
		cfg.Confluence.APIToken = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
}

package config

// Config holds all configuration for the assistant.
type Config struct {
	// Jira holds the issue tracker connection settings
	Jira JiraConfig

	// Confluence holds the wiki connection settings
	Confluence ConfluenceConfig

	// LLM holds the language model settings
	LLM LLMConfig

	// HistoryCap is the maximum number of turns kept in conversation history
	HistoryCap int

	// LogLevel is the logging level (debug, info, warn, error)
	LogLevel string
}

// JiraConfig configures the Jira REST client.
type JiraConfig struct {
	// BaseURL is the Jira site URL, e.g. "https://yourorg.atlassian.net"
	BaseURL string

	// Email is the account email for basic auth
	Email string

	// APIToken is the API token for basic auth
	APIToken string

	// ProjectKey is the default project for text searches
	ProjectKey string
}

// ConfluenceConfig configures the Confluence REST client.
type ConfluenceConfig struct {
	// BaseURL is the Confluence site URL
	BaseURL string

	// Email is the account email for basic auth
	Email string

	// APIToken is the API token for basic auth
	APIToken string

	// IncidentSpace is the space key where incident pages are created
	IncidentSpace string
}

// LLMConfig configures the language model provider.
type LLMConfig struct {
	// APIKey is the Anthropic API key. Falls back to ANTHROPIC_API_KEY.
	APIKey string

	// Model is the model identifier
	Model string

	// MaxTokens is the maximum number of tokens to generate per call
	MaxTokens int
}

// Validate checks that the configuration is complete enough to start.
func (c *Config) Validate() error {
	if c.Jira.BaseURL == "" {
		return NewConfigError("jira.base_url must not be empty")
	}
	if c.Jira.Email == "" || c.Jira.APIToken == "" {
		return NewConfigError("jira.email and jira.api_token must be set")
	}
	if c.Confluence.BaseURL == "" {
		return NewConfigError("confluence.base_url must not be empty")
	}
	if c.Confluence.IncidentSpace == "" {
		return NewConfigError("confluence.incident_space must not be empty")
	}
	if c.LLM.Model == "" {
		return NewConfigError("llm.model must not be empty")
	}
	if c.HistoryCap < 2 {
		return NewConfigError("history_cap must be at least 2")
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

// Error returns the error message
func (e *ConfigError) Error() string {
	return e.message
}

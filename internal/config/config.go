package config

import (
	"os"
	"path/filepath"
)

// Config is the root configuration for the Slack agent.
type Config struct {
	Slack    SlackConfig    `yaml:"slack"`
	Bot      BotConfig      `yaml:"bot"`
	Claude   ClaudeConfig   `yaml:"claude"`
	Messages MessagesConfig `yaml:"messages"`
	Sessions SessionsConfig `yaml:"sessions"`
	Renderer RendererConfig `yaml:"renderer"`
}

// SlackConfig holds the Slack credentials. All three values are required;
// the process refuses to start without them.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	AppToken string `yaml:"app_token"`
	// SigningSecret is unused by Socket Mode itself but kept required for
	// parity with HTTP event delivery setups.
	SigningSecret string `yaml:"signing_secret"`
}

// BotConfig holds the behavior options passed through to the Claude backend.
type BotConfig struct {
	SystemPrompt  string                     `yaml:"system_prompt"`
	AllowedTools  []string                   `yaml:"allowed_tools"`
	MaxTurns      int                        `yaml:"max_turns"`
	Model         string                     `yaml:"model"`
	OutputToolUse bool                       `yaml:"output_tool_use"`
	TimeoutS      int                        `yaml:"timeout_seconds"`
	MCPServers    map[string]MCPServerConfig `yaml:"mcp_servers"`
}

// MCPServerConfig describes one MCP server handed to the Claude CLI.
// Use Command for stdio transport, URL for HTTP transport. The json tags
// match the --mcp-config file format the CLI expects.
type MCPServerConfig struct {
	Command string            `yaml:"command,omitempty" json:"command,omitempty"`
	Args    []string          `yaml:"args,omitempty" json:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	URL     string            `yaml:"url,omitempty" json:"url,omitempty"`
	Type    string            `yaml:"type,omitempty" json:"type,omitempty"`
}

// ClaudeConfig holds Claude CLI settings.
type ClaudeConfig struct {
	// Command is the claude binary to execute.
	Command string `yaml:"command"`
	// APIKey, when set, is exported as ANTHROPIC_API_KEY for the subprocess.
	APIKey string `yaml:"api_key"`
}

// MessagesConfig holds the user-facing message texts.
type MessagesConfig struct {
	Processing    string `yaml:"processing_message"`
	Empty         string `yaml:"empty_message"`
	GeneralError  string `yaml:"general_error"`
	EmptyResponse string `yaml:"empty_response"`
	LongResponse  string `yaml:"long_response_error"`
}

// SessionsConfig holds session store settings.
type SessionsConfig struct {
	// MaxEntries bounds the in-memory session store; least-recently-active
	// conversations are evicted beyond this.
	MaxEntries int `yaml:"max_entries"`
}

// RendererConfig tunes the streaming message-edit cadence.
type RendererConfig struct {
	// UpdateIntervalMS is the minimum time between intermediate edits.
	UpdateIntervalMS int `yaml:"update_interval_ms"`
	// MaxUpdates caps intermediate edits per response; the final edit is
	// always performed on top of this.
	MaxUpdates int `yaml:"max_updates"`
}

// DefaultConfig returns a Config with sensible defaults. Slack tokens have
// no defaults and must come from the config file.
func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{
			SystemPrompt: "You are a helpful Slack bot.",
			MaxTurns:     10,
			TimeoutS:     300,
		},
		Claude: ClaudeConfig{
			Command: "claude",
		},
		Messages: MessagesConfig{
			Processing:    ":hourglass_flowing_sand: Thinking...",
			Empty:         "Please provide a message.",
			GeneralError:  "Sorry, something went wrong while processing your message. Please try again.",
			EmptyResponse: "(no response)",
			LongResponse:  "The response was too long to post to Slack. Please ask for a shorter answer.",
		},
		Sessions: SessionsConfig{
			MaxEntries: 1024,
		},
		Renderer: RendererConfig{
			UpdateIntervalMS: 1500,
			MaxUpdates:       10,
		},
	}
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(homeDir(), ".slack-agent", "config.yaml")
}

// DataDir returns the agent data directory, creating it if needed.
func DataDir() string {
	dir := filepath.Join(homeDir(), ".slack-agent")
	os.MkdirAll(dir, 0o755)
	return dir
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp"
	}
	return home
}

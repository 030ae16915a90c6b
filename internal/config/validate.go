package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for invalid or missing values.
// Token problems are collected so the operator sees everything at once.
func (c *Config) Validate() error {
	if errs := c.validate(); len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *Config) validate() []string {
	var errs []string

	// slack
	tokens := []struct {
		name, value, prefix string
	}{
		{"slack.bot_token", c.Slack.BotToken, "xoxb-"},
		{"slack.app_token", c.Slack.AppToken, "xapp-"},
		{"slack.signing_secret", c.Slack.SigningSecret, ""},
	}
	for _, t := range tokens {
		switch {
		case t.value == "" || strings.HasPrefix(t.value, "your_slack_"):
			errs = append(errs, t.name+" is not configured")
		case t.prefix != "" && !strings.HasPrefix(t.value, t.prefix):
			errs = append(errs, fmt.Sprintf("%s should start with %q", t.name, t.prefix))
		}
	}

	// bot
	if c.Bot.MaxTurns < 0 {
		errs = append(errs, "bot.max_turns must be non-negative")
	}
	if c.Bot.TimeoutS < 0 {
		errs = append(errs, "bot.timeout_seconds must be non-negative")
	}
	for name, srv := range c.Bot.MCPServers {
		if srv.Command == "" && srv.URL == "" {
			errs = append(errs, fmt.Sprintf("bot.mcp_servers.%s needs either command or url", name))
		}
	}

	// claude
	if c.Claude.Command == "" {
		errs = append(errs, "claude.command must not be empty")
	}

	// sessions / renderer
	if c.Sessions.MaxEntries < 1 {
		errs = append(errs, "sessions.max_entries must be positive")
	}
	if c.Renderer.UpdateIntervalMS < 0 {
		errs = append(errs, "renderer.update_interval_ms must be non-negative")
	}
	if c.Renderer.MaxUpdates < 0 {
		errs = append(errs, "renderer.max_updates must be non-negative")
	}

	return errs
}

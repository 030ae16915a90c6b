package cli

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/106-/claude-code-slack-agent/internal/config"
)

// RunStatus displays the current configuration status with styled output.
func RunStatus(cfg *config.Config) {
	cfgPath := config.ConfigPath()

	fmt.Println()
	fmt.Println(TitleStyle.Render(fmt.Sprintf("  %s slack-agent Status", Logo)))
	fmt.Println()

	fmt.Printf("  %-12s %s  %s\n", "Config", StatusBadge(fileExists(cfgPath)), DimStyle.Render(cfgPath))

	claudePath, lookErr := exec.LookPath(cfg.Claude.Command)
	if lookErr != nil {
		claudePath = cfg.Claude.Command + " (not found in PATH)"
	}
	fmt.Printf("  %-12s %s  %s\n", "Claude CLI", StatusBadge(lookErr == nil), DimStyle.Render(claudePath))

	model := cfg.Bot.Model
	if model == "" {
		model = "(CLI default)"
	}
	fmt.Printf("  %-12s %s\n", "Model", model)
	fmt.Println()

	fmt.Println("  " + BoldStyle.Render("Slack credentials"))
	fmt.Printf("    %s  Bot token %s\n", StatusBadge(tokenSet(cfg.Slack.BotToken)), DimStyle.Render("(xoxb-…)"))
	fmt.Printf("    %s  App token %s\n", StatusBadge(tokenSet(cfg.Slack.AppToken)), DimStyle.Render("(xapp-…)"))
	fmt.Printf("    %s  Signing secret\n", StatusBadge(tokenSet(cfg.Slack.SigningSecret)))
	fmt.Println()

	fmt.Println("  " + BoldStyle.Render("Bot"))
	fmt.Printf("    %-16s %d\n", "Max turns", cfg.Bot.MaxTurns)
	fmt.Printf("    %-16s %ds\n", "Timeout", cfg.Bot.TimeoutS)
	fmt.Printf("    %-16s %s\n", "Tool output", StatusBadge(cfg.Bot.OutputToolUse))
	if len(cfg.Bot.AllowedTools) > 0 {
		fmt.Printf("    %-16s %s\n", "Allowed tools", DimStyle.Render(strings.Join(cfg.Bot.AllowedTools, ", ")))
	}
	if len(cfg.Bot.MCPServers) > 0 {
		names := make([]string, 0, len(cfg.Bot.MCPServers))
		for name := range cfg.Bot.MCPServers {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Printf("    %-16s %s\n", "MCP servers", DimStyle.Render(strings.Join(names, ", ")))
	}
	fmt.Println()

	fmt.Println("  " + BoldStyle.Render("Sessions"))
	fmt.Printf("    %-16s %d conversations\n", "Capacity", cfg.Sessions.MaxEntries)
	fmt.Println()
}

// tokenSet reports whether a credential looks filled in rather than left at
// the onboarding placeholder.
func tokenSet(v string) bool {
	return v != "" && !strings.HasPrefix(v, "your_slack_")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/106-/claude-code-slack-agent/internal/config"
)

// --- onboard selection model ---

type onboardChoice int

const (
	choiceKeep onboardChoice = iota
	choiceOverwrite
)

type onboardModel struct {
	choices []string
	cursor  int
	chosen  bool
	choice  onboardChoice
}

func (m onboardModel) Init() tea.Cmd { return nil }

func (m onboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.choice = choiceKeep
			m.chosen = true
			return m, tea.Quit
		case tea.KeyUp, tea.KeyShiftTab:
			if m.cursor > 0 {
				m.cursor--
			}
		case tea.KeyDown, tea.KeyTab:
			if m.cursor < len(m.choices)-1 {
				m.cursor++
			}
		case tea.KeyEnter:
			m.choice = onboardChoice(m.cursor)
			m.chosen = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m onboardModel) View() string {
	if m.chosen {
		return ""
	}

	s := "\n"
	s += fmt.Sprintf("  Config already exists at %s\n\n", DimStyle.Render(config.ConfigPath()))

	for i, choice := range m.choices {
		cursor := "  "
		if i == m.cursor {
			cursor = BotLabel.Render("❯ ")
		}
		s += "  " + cursor + choice + "\n"
	}

	s += "\n" + DimStyle.Render("  ↑/↓ navigate · enter select · ctrl+c cancel") + "\n"
	return s
}

// RunOnboard runs the onboard wizard: it writes a starter config with token
// placeholders and points at what to fill in next.
func RunOnboard() {
	cfgPath := config.ConfigPath()

	fmt.Println()
	fmt.Println(TitleStyle.Render(fmt.Sprintf("  %s slack-agent Onboard", Logo)))

	if _, err := os.Stat(cfgPath); err == nil {
		m := onboardModel{
			choices: []string{
				"Keep — do not modify config",
				"Overwrite — replace with a fresh starter config",
			},
		}
		p := tea.NewProgram(m)
		final, err := p.Run()
		if err != nil {
			fmt.Println("  " + ErrStyle.Render("Error: "+err.Error()))
			os.Exit(1)
		}
		fm := final.(onboardModel)

		fmt.Println()
		if fm.choice != choiceOverwrite {
			fmt.Println("  " + DimStyle.Render("Config unchanged"))
			fmt.Println()
			return
		}
	}

	if err := config.Save(starterConfig()); err != nil {
		fmt.Println("  " + ErrStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
	fmt.Println()
	fmt.Println("  " + OkStyle.Render("✓") + " Wrote config to " + DimStyle.Render(cfgPath))

	fmt.Println()
	fmt.Println(OkStyle.Render("  slack-agent is ready to configure!"))
	fmt.Println()
	fmt.Println(DimStyle.Render("  Next steps:"))
	fmt.Println(DimStyle.Render("  1. Create a Slack app with Socket Mode and the app_mentions:read,"))
	fmt.Println(DimStyle.Render("     im:history, chat:write scopes"))
	fmt.Println(DimStyle.Render("  2. Put the bot token, app token and signing secret in " + cfgPath))
	fmt.Println(DimStyle.Render("  3. Make sure the claude CLI is installed and on PATH"))
	fmt.Println(DimStyle.Render("  4. Start the bot: slack-agent gateway"))
	fmt.Println()
}

// starterConfig is DefaultConfig with visible token placeholders, so the
// written file shows every field that must be filled in.
func starterConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Slack = config.SlackConfig{
		BotToken:      "your_slack_bot_token",
		AppToken:      "your_slack_app_token",
		SigningSecret: "your_slack_signing_secret",
	}
	return cfg
}

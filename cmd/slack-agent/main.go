package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/106-/claude-code-slack-agent/internal/claude"
	"github.com/106-/claude-code-slack-agent/internal/cli"
	"github.com/106-/claude-code-slack-agent/internal/config"
	"github.com/106-/claude-code-slack-agent/internal/logging"
	"github.com/106-/claude-code-slack-agent/internal/platform"
	"github.com/106-/claude-code-slack-agent/internal/relay"
	"github.com/106-/claude-code-slack-agent/internal/session"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "gateway":
		cmdGateway()
	case "chat":
		cmdChat()
	case "status":
		cmdStatus()
	case "onboard":
		cli.RunOnboard()
	case "version", "--version", "-v":
		fmt.Println(cli.TitleStyle.Render(
			fmt.Sprintf("  %s slack-agent v%s", cli.Logo, cli.Version),
		))
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	dim := cli.DimStyle.Render
	fmt.Println()
	fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("  %s slack-agent", cli.Logo)) + dim(" — Claude Code relay for Slack"))
	fmt.Println()
	fmt.Println("  " + cli.BoldStyle.Render("Usage"))
	fmt.Println()
	fmt.Printf("    slack-agent %-14s %s\n", "gateway", dim("Connect to Slack and relay messages"))
	fmt.Printf("    slack-agent %-14s %s\n", "chat", dim("Talk to the backend locally"))
	fmt.Printf("    slack-agent %-14s %s\n", "chat -m \"…\"", dim("Single message"))
	fmt.Printf("    slack-agent %-14s %s\n", "status", dim("Show configuration"))
	fmt.Printf("    slack-agent %-14s %s\n", "onboard", dim("Write a starter config"))
	fmt.Printf("    slack-agent %-14s %s\n", "version", dim("Show version"))
	fmt.Println()
}

// --- gateway command ---

func cmdGateway() {
	fs := flag.NewFlagSet("gateway", flag.ExitOnError)
	cfgPath := fs.String("config", config.ConfigPath(), "config file path")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.Parse(os.Args[2:])

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(logging.NewHandler(os.Stderr, &logging.Options{
		Level: level,
		Color: true,
	})))

	cfg := mustLoadConfig(*cfgPath)
	invoker := mustMakeInvoker(cfg)
	sessions := session.NewStore(cfg.Sessions.MaxEntries)

	// The Slack client is both event source and messenger, so the handler
	// and the client reference each other. Events only flow after Start.
	var handler *relay.Handler
	slackConn := platform.NewSlack(cfg.Slack, func(ctx context.Context, ev platform.Event) {
		handler.Handle(ctx, ev)
	})
	handler = relay.NewHandler(cfg, slackConn, invoker, sessions)

	fmt.Println()
	fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("  %s slack-agent Gateway", cli.Logo)))
	fmt.Println()
	fmt.Println(cli.DimStyle.Render("  Press Ctrl+C to stop"))
	fmt.Println()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return slackConn.Start(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("gateway stopped", "err", err)
		os.Exit(1)
	}
	fmt.Println("\n  Shutting down...")
}

// --- chat command ---

func cmdChat() {
	// Local chat needs the Claude CLI but no Slack credentials.
	cfg := config.LoadLenient()
	invoker := mustMakeInvoker(cfg)
	redirectLogs()

	// Check for -m flag
	message := ""
	for i := 2; i < len(os.Args); i++ {
		if (os.Args[i] == "-m" || os.Args[i] == "--message") && i+1 < len(os.Args) {
			message = os.Args[i+1]
			break
		}
	}

	ctx := context.Background()
	chatCfg := cli.ChatConfig{Model: cfg.Bot.Model, Command: cfg.Claude.Command}

	if message != "" {
		if err := cli.RunSingleMessage(invoker, ctx, message); err != nil {
			os.Exit(1)
		}
	} else {
		if err := cli.RunChat(invoker, ctx, chatCfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
	}
}

// --- status command ---

func cmdStatus() {
	cli.RunStatus(config.LoadLenient())
}

// --- helpers ---

// redirectLogs keeps slog output away from the chat TUI.
func redirectLogs() {
	logPath := filepath.Join(config.DataDir(), "agent.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.SetDefault(slog.New(logging.NewHandler(io.Discard, nil)))
		return
	}
	slog.SetDefault(slog.New(logging.NewHandler(f, &logging.Options{Level: slog.LevelInfo})))
}

func mustLoadConfig(path string) *config.Config {
	cfg, err := config.LoadFrom(path)
	if err != nil {
		fmt.Println()
		fmt.Println(cli.ErrStyle.Render("  Error: " + err.Error()))
		fmt.Println()
		os.Exit(1)
	}
	return cfg
}

func mustMakeInvoker(cfg *config.Config) *claude.Invoker {
	invoker, err := claude.NewInvoker(cfg.Claude, cfg.Bot)
	if err != nil {
		fmt.Println()
		fmt.Println(cli.ErrStyle.Render("  Error: " + err.Error()))
		fmt.Println()
		os.Exit(1)
	}
	return invoker
}

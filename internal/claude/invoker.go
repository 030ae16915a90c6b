package claude

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/106-/claude-code-slack-agent/internal/config"
)

// Options is the immutable capability set passed to every invocation.
type Options struct {
	SystemPrompt string
	AllowedTools []string
	MaxTurns     int
	Model        string
	// MCPConfig is a path to an mcpServers JSON file handed to the CLI.
	MCPConfig string
	// APIKey, when set, is exported as ANTHROPIC_API_KEY to the subprocess.
	APIKey string
	// Timeout bounds one whole invocation, subprocess included.
	Timeout time.Duration
}

// Invoker runs the Claude Code CLI. Safe for concurrent use; every Invoke
// starts an independent subprocess.
type Invoker struct {
	command string
	opts    Options
}

// NewInvoker builds an invoker from configuration. MCP servers, when
// configured, are materialized into a JSON file under the data directory so
// the CLI can load them with --mcp-config.
func NewInvoker(cfg config.ClaudeConfig, bot config.BotConfig) (*Invoker, error) {
	opts := Options{
		SystemPrompt: bot.SystemPrompt,
		AllowedTools: bot.AllowedTools,
		MaxTurns:     bot.MaxTurns,
		Model:        bot.Model,
		APIKey:       cfg.APIKey,
		Timeout:      time.Duration(bot.TimeoutS) * time.Second,
	}

	if len(bot.MCPServers) > 0 {
		path, err := writeMCPConfig(bot.MCPServers)
		if err != nil {
			return nil, fmt.Errorf("write mcp config: %w", err)
		}
		opts.MCPConfig = path
	}

	return &Invoker{command: cfg.Command, opts: opts}, nil
}

// Invoke starts one backend interaction and returns its output stream. The
// stream always ends with exactly one terminal chunk (final or error) and is
// then closed; the subprocess never outlives the stream.
func (iv *Invoker) Invoke(ctx context.Context, prompt, sessionHandle string) <-chan Chunk {
	out := make(chan Chunk, 16)
	go iv.run(ctx, prompt, sessionHandle, out)
	return out
}

func (iv *Invoker) run(ctx context.Context, prompt, sessionHandle string, out chan<- Chunk) {
	defer close(out)

	if iv.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, iv.opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, iv.command, iv.buildArgs(sessionHandle)...)
	cmd.Stdin = strings.NewReader(prompt)
	cmd.WaitDelay = 5 * time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if iv.opts.APIKey != "" {
		cmd.Env = append(os.Environ(), "ANTHROPIC_API_KEY="+iv.opts.APIKey)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		out <- errorChunk(ErrUnreachable, "stdout pipe: %v", err)
		return
	}
	if err := cmd.Start(); err != nil {
		out <- errorChunk(ErrUnreachable, "start %s: %v", iv.command, err)
		return
	}

	start := time.Now()
	terminal, parseErr := streamChunks(ctx, stdout, out)
	waitErr := cmd.Wait()

	if terminal {
		slog.Debug("claude invocation finished", "elapsed", time.Since(start).Round(time.Millisecond))
		return
	}

	// The stream ended without a terminal event; classify why and surface
	// exactly one error chunk so the caller still sees a terminal state.
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		out <- errorChunk(ErrTimeout, "backend exceeded the %s budget", iv.opts.Timeout)
	case errors.Is(ctx.Err(), context.Canceled):
		out <- errorChunk(ErrTimeout, "invocation cancelled")
	case parseErr != nil:
		out <- errorChunk(ErrMalformed, "%v", parseErr)
	case waitErr != nil:
		out <- errorChunk(ErrUnreachable, "claude exited: %v (%s)", waitErr, firstLine(stderr.String()))
	default:
		out <- errorChunk(ErrMalformed, "stream ended without a result event")
	}
}

func (iv *Invoker) buildArgs(sessionHandle string) []string {
	args := []string{"-p", "--output-format", "stream-json", "--verbose"}
	if iv.opts.Model != "" {
		args = append(args, "--model", iv.opts.Model)
	}
	if iv.opts.SystemPrompt != "" {
		args = append(args, "--system-prompt", iv.opts.SystemPrompt)
	}
	if iv.opts.MaxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(iv.opts.MaxTurns))
	}
	if len(iv.opts.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(iv.opts.AllowedTools, ","))
	}
	if iv.opts.MCPConfig != "" {
		args = append(args, "--mcp-config", iv.opts.MCPConfig)
	}
	if sessionHandle != "" {
		args = append(args, "--resume", sessionHandle)
	}
	return args
}

// streamChunks reads NDJSON lines from r and forwards parsed chunks to out.
// It reports whether a terminal chunk was delivered. After the terminal
// event the remaining output is drained so the subprocess can exit.
func streamChunks(ctx context.Context, r io.Reader, out chan<- Chunk) (terminal bool, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		chunks, perr := parseLine(line)
		if perr != nil {
			return false, perr
		}
		for _, c := range chunks {
			select {
			case out <- c:
			case <-ctx.Done():
				return false, nil
			}
			if c.Terminal() {
				io.Copy(io.Discard, r)
				return true, nil
			}
		}
	}
	return false, scanner.Err()
}

// writeMCPConfig renders the configured MCP servers in the CLI's
// --mcp-config format.
func writeMCPConfig(servers map[string]config.MCPServerConfig) (string, error) {
	data, err := json.MarshalIndent(map[string]any{"mcpServers": servers}, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(config.DataDir(), "mcp-servers.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return truncate(s, 200)
}

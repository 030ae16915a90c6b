package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/106-/claude-code-slack-agent/internal/claude"
	"github.com/106-/claude-code-slack-agent/internal/config"
)

// slackMessageLimit is the practical ceiling for one message's text.
const slackMessageLimit = 4000

// Renderer turns a backend chunk stream into message edits. Intermediate
// edits are throttled (Slack rate-limits chat.update) by a token bucket plus
// a hard per-response cap; the final edit always happens.
type Renderer struct {
	messages      config.MessagesConfig
	outputToolUse bool
	interval      time.Duration
	maxUpdates    int
}

// RenderResult is the outcome of a successfully rendered stream.
type RenderResult struct {
	// Text is the final message text as shown to the user.
	Text string
	// SessionHandle resumes this conversation on the next call.
	SessionHandle string
}

// NewRenderer creates a renderer. outputToolUse controls whether tool
// invocations stay visible in the final answer or only during streaming.
func NewRenderer(cfg config.RendererConfig, messages config.MessagesConfig, outputToolUse bool) *Renderer {
	return &Renderer{
		messages:      messages,
		outputToolUse: outputToolUse,
		interval:      time.Duration(cfg.UpdateIntervalMS) * time.Millisecond,
		maxUpdates:    cfg.MaxUpdates,
	}
}

// Render consumes chunks until the terminal one, calling update with the
// evolving message text. On success it returns the final text and session
// handle; on a backend error it edits the message to the generic error text
// and returns the error for logging. update failures are logged, not fatal:
// the stream is still drained so the subprocess finishes cleanly.
func (r *Renderer) Render(ctx context.Context, chunks <-chan claude.Chunk, update func(string) error) (RenderResult, error) {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if r.interval > 0 {
		limiter = rate.NewLimiter(rate.Every(r.interval), 1)
	}

	var text strings.Builder
	var toolBlocks []string
	activeTool := ""
	updates := 0

	maybeUpdate := func() {
		if updates >= r.maxUpdates || !limiter.Allow() {
			return
		}
		if err := update(r.progress(text.String(), activeTool)); err != nil {
			slog.Warn("intermediate update failed", "err", err)
			return
		}
		updates++
	}

	for chunk := range chunks {
		switch chunk.Kind {
		case claude.ChunkText:
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			text.WriteString(chunk.Text)
			activeTool = ""
			maybeUpdate()

		case claude.ChunkToolUse:
			toolBlocks = append(toolBlocks, toolBlock(chunk.Tool, chunk.Summary))
			activeTool = statusLine(chunk.Tool, chunk.Summary)
			maybeUpdate()

		case claude.ChunkFinal:
			final := r.finalize(chunk.Text, toolBlocks)
			if err := update(final); err != nil {
				return RenderResult{}, fmt.Errorf("final update: %w", err)
			}
			return RenderResult{Text: final, SessionHandle: chunk.SessionHandle}, nil

		case claude.ChunkError:
			if err := update(r.messages.GeneralError); err != nil {
				slog.Warn("error update failed", "err", err)
			}
			return RenderResult{}, chunk.Err
		}

		if ctx.Err() != nil {
			// Keep draining so the producer can close; the invoker will
			// deliver its own terminal error chunk.
			continue
		}
	}

	// The invoker guarantees a terminal chunk, so a bare close means the
	// producer died. Surface it like any other backend failure.
	if err := update(r.messages.GeneralError); err != nil {
		slog.Warn("error update failed", "err", err)
	}
	return RenderResult{}, &claude.InvokeError{Kind: claude.ErrMalformed, Message: "chunk stream closed without a terminal chunk"}
}

// progress renders the intermediate message: buffered text plus a transient
// status block for the tool currently in use. The status disappears once
// the final answer replaces the buffer.
func (r *Renderer) progress(text, status string) string {
	var sb strings.Builder
	sb.WriteString(text)
	if status != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(status)
	}
	if sb.Len() == 0 {
		return r.messages.Processing
	}
	return clampRunes(sb.String(), slackMessageLimit)
}

// statusLine is the transient in-flight view of one tool invocation.
func statusLine(name, summary string) string {
	s := "_using tool: " + name + "_"
	if summary != "" {
		s += "\n```\n" + summary + "\n```"
	}
	return s
}

// finalize produces the final message text from the terminal result.
func (r *Renderer) finalize(result string, toolBlocks []string) string {
	text := result
	if r.outputToolUse && len(toolBlocks) > 0 {
		text = strings.Join(toolBlocks, "\n") + "\n" + result
	}

	switch {
	case strings.TrimSpace(text) == "":
		return r.messages.EmptyResponse
	case len([]rune(text)) > slackMessageLimit:
		return r.messages.LongResponse
	default:
		return text
	}
}

// toolBlock renders one tool invocation the way the bot announces it:
// the tool name in bold with its summary in a code fence.
func toolBlock(name, summary string) string {
	if summary == "" {
		return fmt.Sprintf("*%s*", name)
	}
	return fmt.Sprintf("*%s*\n```\n%s\n```", name, summary)
}

func clampRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

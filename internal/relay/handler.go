// Package relay is the event-to-response pipeline: it receives inbound chat
// events, resumes the per-conversation Claude session, keeps the user
// looking at a live "processing" message, and edits in the answer (or a
// generic error) when the backend finishes.
package relay

import (
	"context"
	"log/slog"

	"github.com/106-/claude-code-slack-agent/internal/claude"
	"github.com/106-/claude-code-slack-agent/internal/config"
	"github.com/106-/claude-code-slack-agent/internal/platform"
	"github.com/106-/claude-code-slack-agent/internal/session"
)

// dedupeWindowSize bounds the recent-event-id history. Slack redelivers
// within minutes of a reconnect, so a small exact window is enough.
const dedupeWindowSize = 512

// Invoker is the backend boundary: one call, one streamed interaction.
type Invoker interface {
	Invoke(ctx context.Context, prompt, sessionHandle string) <-chan claude.Chunk
}

// Handler orchestrates one inbound event end to end. Safe for concurrent
// use; the dispatcher runs one goroutine per event and invocations for
// different conversations share nothing but the session store.
type Handler struct {
	messenger platform.Messenger
	invoker   Invoker
	sessions  *session.Store
	renderer  *Renderer
	messages  config.MessagesConfig
	dedupe    *dedupeWindow
}

// NewHandler wires the pipeline together.
func NewHandler(cfg *config.Config, messenger platform.Messenger, invoker Invoker, sessions *session.Store) *Handler {
	return &Handler{
		messenger: messenger,
		invoker:   invoker,
		sessions:  sessions,
		renderer:  NewRenderer(cfg.Renderer, cfg.Messages, cfg.Bot.OutputToolUse),
		messages:  cfg.Messages,
		dedupe:    newDedupeWindow(dedupeWindowSize),
	}
}

// Handle processes one inbound event. Every validated event ends in exactly
// one final message state: the answer or the generic error text. Errors are
// logged, never propagated — nothing here may kill the event loop.
func (h *Handler) Handle(ctx context.Context, ev platform.Event) {
	if ev.EventID != "" && !h.dedupe.Observe(ev.EventID) {
		slog.Debug("duplicate event dropped", "event_id", ev.EventID)
		return
	}

	log := slog.With("kind", string(ev.Kind), "channel", ev.ChannelID, "sender", ev.SenderID)

	prompt := platform.StripMentions(ev.Text)
	if prompt == "" {
		if _, err := h.messenger.PostMessage(ctx, ev.ChannelID, ev.ReplyThread(), h.messages.Empty); err != nil {
			log.Error("empty-message reply failed", "err", err)
		}
		return
	}

	key := ev.ConversationKey()
	entry := h.sessions.GetOrCreate(key)
	log.Info("processing event", "conversation", key, "resuming", entry.Handle != "", "preview", truncate(prompt, 80))

	placeholder, err := h.messenger.PostMessage(ctx, ev.ChannelID, ev.ReplyThread(), h.messages.Processing)
	if err != nil {
		// No placeholder means nothing to edit; the invocation is abandoned
		// before the backend is ever involved.
		log.Error("posting placeholder failed", "err", err)
		return
	}

	chunks := h.invoker.Invoke(ctx, prompt, entry.Handle)
	result, err := h.renderer.Render(ctx, chunks, func(text string) error {
		return h.messenger.UpdateMessage(ctx, ev.ChannelID, placeholder, text)
	})
	if err != nil {
		// The renderer already swapped the placeholder for the generic
		// error text; the session keeps its previous handle.
		log.Error("backend invocation failed", "conversation", key, "err", err)
		return
	}

	if result.SessionHandle != "" {
		h.sessions.Update(key, result.SessionHandle)
	}
	log.Info("replied", "conversation", key, "preview", truncate(result.Text, 120))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

package relay

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/106-/claude-code-slack-agent/internal/claude"
	"github.com/106-/claude-code-slack-agent/internal/config"
	"github.com/106-/claude-code-slack-agent/internal/platform"
	"github.com/106-/claude-code-slack-agent/internal/session"
)

type fakeMessenger struct {
	mu       sync.Mutex
	posts    []string
	updates  map[string][]string
	failPost bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{updates: make(map[string][]string)}
}

func (m *fakeMessenger) PostMessage(_ context.Context, channelID, threadTS, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPost {
		return "", fmt.Errorf("channel_not_found")
	}
	id := fmt.Sprintf("%s:%d", channelID, len(m.posts))
	m.posts = append(m.posts, text)
	m.updates[id] = nil
	return id, nil
}

func (m *fakeMessenger) UpdateMessage(_ context.Context, _, messageID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.updates[messageID]; !ok {
		return fmt.Errorf("message_not_found")
	}
	m.updates[messageID] = append(m.updates[messageID], text)
	return nil
}

func (m *fakeMessenger) lastUpdate(t *testing.T, messageID string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	edits := m.updates[messageID]
	if len(edits) == 0 {
		t.Fatalf("no updates recorded for %s", messageID)
	}
	return edits[len(edits)-1]
}

type invokeCall struct {
	prompt string
	handle string
}

// fakeInvoker replies to each prompt with the chunks from streams, or a
// default echo answer when the prompt has no scripted stream.
type fakeInvoker struct {
	mu      sync.Mutex
	calls   []invokeCall
	streams map[string][]claude.Chunk
}

func newFakeInvoker() *fakeInvoker {
	return &fakeInvoker{streams: make(map[string][]claude.Chunk)}
}

func (f *fakeInvoker) Invoke(_ context.Context, prompt, sessionHandle string) <-chan claude.Chunk {
	f.mu.Lock()
	f.calls = append(f.calls, invokeCall{prompt: prompt, handle: sessionHandle})
	scripted, ok := f.streams[prompt]
	f.mu.Unlock()

	if !ok {
		scripted = []claude.Chunk{
			{Kind: claude.ChunkText, Text: "echo: " + prompt},
			{Kind: claude.ChunkFinal, Text: "echo: " + prompt, SessionHandle: "session-" + prompt},
		}
	}
	return chunkStream(scripted...)
}

func (f *fakeInvoker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testHandler(messenger *fakeMessenger, invoker *fakeInvoker) (*Handler, *session.Store) {
	cfg := config.DefaultConfig()
	cfg.Renderer.UpdateIntervalMS = 0
	sessions := session.NewStore(cfg.Sessions.MaxEntries)
	return NewHandler(cfg, messenger, invoker, sessions), sessions
}

func mention(id, channel, text string) platform.Event {
	return platform.Event{
		Kind:      platform.KindMention,
		EventID:   id,
		SenderID:  "U1",
		ChannelID: channel,
		MessageTS: "1700000000.000100",
		Text:      text,
	}
}

func TestHandleRepliesInPlace(t *testing.T) {
	messenger := newFakeMessenger()
	invoker := newFakeInvoker()
	invoker.streams["hello"] = []claude.Chunk{
		{Kind: claude.ChunkText, Text: "hi"},
		{Kind: claude.ChunkText, Text: "there"},
		{Kind: claude.ChunkFinal, Text: "hi there", SessionHandle: "sess-1"},
	}
	h, sessions := testHandler(messenger, invoker)

	ev := mention("ev-1", "C1", "<@U999BOT> hello")
	h.Handle(context.Background(), ev)

	if len(messenger.posts) != 1 {
		t.Fatalf("posts = %d, want exactly one placeholder", len(messenger.posts))
	}
	if messenger.posts[0] != config.DefaultConfig().Messages.Processing {
		t.Errorf("placeholder text = %q", messenger.posts[0])
	}
	if got := messenger.lastUpdate(t, "C1:0"); got != "hi there" {
		t.Errorf("final message = %q, want %q", got, "hi there")
	}

	entry, ok := sessions.Lookup(ev.ConversationKey())
	if !ok || entry.Handle != "sess-1" {
		t.Errorf("session after reply = %+v, want handle sess-1", entry)
	}
}

func TestHandleResumesSession(t *testing.T) {
	messenger := newFakeMessenger()
	invoker := newFakeInvoker()
	h, _ := testHandler(messenger, invoker)

	first := mention("ev-1", "C1", "<@U999BOT> first")
	h.Handle(context.Background(), first)

	followup := mention("ev-2", "C1", "<@U999BOT> second")
	followup.ThreadTS = first.MessageTS // reply in the same thread
	h.Handle(context.Background(), followup)

	if len(invoker.calls) != 2 {
		t.Fatalf("invocations = %d, want 2", len(invoker.calls))
	}
	if invoker.calls[0].handle != "" {
		t.Errorf("first call handle = %q, want empty (first contact)", invoker.calls[0].handle)
	}
	if invoker.calls[1].handle != "session-first" {
		t.Errorf("second call handle = %q, want session-first", invoker.calls[1].handle)
	}
}

func TestHandleDropsDuplicateEvents(t *testing.T) {
	messenger := newFakeMessenger()
	invoker := newFakeInvoker()
	h, _ := testHandler(messenger, invoker)

	ev := mention("ev-dup", "C1", "<@U999BOT> hello")
	h.Handle(context.Background(), ev)
	h.Handle(context.Background(), ev)

	if len(messenger.posts) != 1 {
		t.Errorf("posts = %d, want 1 (redelivery must not repost)", len(messenger.posts))
	}
	if invoker.callCount() != 1 {
		t.Errorf("invocations = %d, want 1", invoker.callCount())
	}
}

func TestHandleEmptyAfterMentionStrip(t *testing.T) {
	messenger := newFakeMessenger()
	invoker := newFakeInvoker()
	h, _ := testHandler(messenger, invoker)

	h.Handle(context.Background(), mention("ev-1", "C1", "<@U999BOT>   "))

	if invoker.callCount() != 0 {
		t.Errorf("backend invoked %d times for an empty prompt", invoker.callCount())
	}
	if len(messenger.posts) != 1 || messenger.posts[0] != config.DefaultConfig().Messages.Empty {
		t.Errorf("posts = %v, want the empty-message prompt", messenger.posts)
	}
}

func TestHandleBackendErrorKeepsSessionHandle(t *testing.T) {
	messenger := newFakeMessenger()
	invoker := newFakeInvoker()
	h, sessions := testHandler(messenger, invoker)

	first := mention("ev-1", "C1", "<@U999BOT> first")
	h.Handle(context.Background(), first)
	key := first.ConversationKey()

	invoker.streams["boom"] = []claude.Chunk{
		{Kind: claude.ChunkText, Text: "partial"},
		{Kind: claude.ChunkError, Err: &claude.InvokeError{Kind: claude.ErrUnreachable, Message: "spawn failed"}},
	}
	failing := mention("ev-2", "C1", "<@U999BOT> boom")
	failing.ThreadTS = first.MessageTS
	h.Handle(context.Background(), failing)

	if got := messenger.lastUpdate(t, "C1:1"); got != config.DefaultConfig().Messages.GeneralError {
		t.Errorf("final message after failure = %q, want the generic error text", got)
	}
	entry, ok := sessions.Lookup(key)
	if !ok || entry.Handle != "session-first" {
		t.Errorf("session after failed call = %+v, want the pre-failure handle", entry)
	}
}

func TestHandlePlaceholderFailureAbandonsInvocation(t *testing.T) {
	messenger := newFakeMessenger()
	messenger.failPost = true
	invoker := newFakeInvoker()
	h, _ := testHandler(messenger, invoker)

	h.Handle(context.Background(), mention("ev-1", "C1", "<@U999BOT> hello"))

	if invoker.callCount() != 0 {
		t.Errorf("backend invoked %d times with no placeholder to edit", invoker.callCount())
	}
}

func TestHandleConcurrentConversations(t *testing.T) {
	messenger := newFakeMessenger()
	invoker := newFakeInvoker()
	h, sessions := testHandler(messenger, invoker)

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ev := mention(fmt.Sprintf("ev-%d", i), fmt.Sprintf("C%d", i), fmt.Sprintf("<@U999BOT> q%d", i))
			h.Handle(context.Background(), ev)
		}(i)
	}
	wg.Wait()

	messenger.mu.Lock()
	defer messenger.mu.Unlock()
	if len(messenger.posts) != n {
		t.Fatalf("posts = %d, want %d", len(messenger.posts), n)
	}
	// Each conversation's final edit must carry its own answer.
	for id, edits := range messenger.updates {
		if len(edits) == 0 {
			t.Errorf("message %s never edited", id)
			continue
		}
		channel := strings.SplitN(id, ":", 2)[0]
		final := edits[len(edits)-1]
		want := "echo: q" + strings.TrimPrefix(channel, "C")
		if final != want {
			t.Errorf("message %s final = %q, want %q", id, final, want)
		}
	}
	if sessions.Len() != n {
		t.Errorf("tracked sessions = %d, want %d", sessions.Len(), n)
	}
}

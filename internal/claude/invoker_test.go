package claude

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/106-/claude-code-slack-agent/internal/config"
)

func TestBuildArgs(t *testing.T) {
	iv := &Invoker{
		command: "claude",
		opts: Options{
			SystemPrompt: "Be brief.",
			AllowedTools: []string{"Bash", "Read"},
			MaxTurns:     5,
			Model:        "claude-sonnet-4-5",
		},
	}

	args := strings.Join(iv.buildArgs("sess-1"), " ")
	for _, want := range []string{
		"-p",
		"--output-format stream-json",
		"--verbose",
		"--system-prompt Be brief.",
		"--max-turns 5",
		"--allowedTools Bash,Read",
		"--model claude-sonnet-4-5",
		"--resume sess-1",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q: %s", want, args)
		}
	}
}

func TestBuildArgsFirstContact(t *testing.T) {
	iv := &Invoker{command: "claude"}

	args := strings.Join(iv.buildArgs(""), " ")
	if strings.Contains(args, "--resume") {
		t.Errorf("first contact must not resume: %s", args)
	}
	if strings.Contains(args, "--max-turns") || strings.Contains(args, "--allowedTools") {
		t.Errorf("unset options leaked into args: %s", args)
	}
}

func collect(t *testing.T, stream string) []Chunk {
	t.Helper()
	out := make(chan Chunk, 64)
	terminal, err := streamChunks(context.Background(), strings.NewReader(stream), out)
	close(out)

	var chunks []Chunk
	for c := range out {
		chunks = append(chunks, c)
	}
	if err != nil {
		t.Fatalf("streamChunks err = %v (chunks %v)", err, chunks)
	}
	if !terminal {
		t.Fatal("stream did not reach a terminal chunk")
	}
	return chunks
}

func TestStreamChunksFullExchange(t *testing.T) {
	stream := `{"type":"system","subtype":"init","session_id":"s1"}
{"type":"assistant","message":{"content":[{"type":"text","text":"Hel"}]}}
{"type":"assistant","message":{"content":[{"type":"text","text":"lo"}]}}
{"type":"result","subtype":"success","is_error":false,"result":"Hello","session_id":"s1"}
`

	chunks := collect(t, stream)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3: %+v", len(chunks), chunks)
	}
	if chunks[0].Text != "Hel" || chunks[1].Text != "lo" {
		t.Errorf("text chunks = %q, %q", chunks[0].Text, chunks[1].Text)
	}
	last := chunks[2]
	if last.Kind != ChunkFinal || last.Text != "Hello" || last.SessionHandle != "s1" {
		t.Errorf("terminal chunk = %+v", last)
	}
}

func TestStreamChunksStopsAfterTerminal(t *testing.T) {
	stream := `{"type":"result","subtype":"success","is_error":false,"result":"done","session_id":"s1"}
{"type":"assistant","message":{"content":[{"type":"text","text":"trailing noise"}]}}
`

	chunks := collect(t, stream)
	if len(chunks) != 1 {
		t.Fatalf("chunks after terminal were surfaced: %+v", chunks)
	}
}

func TestStreamChunksMalformed(t *testing.T) {
	out := make(chan Chunk, 8)
	terminal, err := streamChunks(context.Background(), strings.NewReader("garbage\n"), out)
	if terminal {
		t.Error("garbage must not count as terminal")
	}
	if err == nil {
		t.Error("expected parse error")
	}
}

func TestStreamChunksTruncatedStream(t *testing.T) {
	stream := `{"type":"assistant","message":{"content":[{"type":"text","text":"Hel"}]}}
`
	out := make(chan Chunk, 8)
	terminal, err := streamChunks(context.Background(), strings.NewReader(stream), out)
	if terminal {
		t.Error("truncated stream must not count as terminal")
	}
	if err != nil {
		t.Errorf("unexpected err: %v", err)
	}
}

func TestInvokeMissingBinary(t *testing.T) {
	iv, err := NewInvoker(
		config.ClaudeConfig{Command: "definitely-not-a-real-binary-7f3a"},
		config.BotConfig{TimeoutS: 1},
	)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var chunks []Chunk
	for c := range iv.Invoke(ctx, "hello", "") {
		chunks = append(chunks, c)
	}

	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1 error chunk: %+v", len(chunks), chunks)
	}
	c := chunks[0]
	if c.Kind != ChunkError || c.Err.Kind != ErrUnreachable {
		t.Errorf("chunk = %+v", c)
	}
}

func TestErrorKindStrings(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{ErrUnreachable, "backend-unreachable"},
		{ErrPermission, "backend-permission-denied"},
		{ErrTimeout, "backend-timeout"},
		{ErrMalformed, "backend-malformed-output"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

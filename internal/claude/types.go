// Package claude invokes the Claude Code CLI as a streaming backend.
// Each invocation is one subprocess run; conversation continuity is carried
// by the opaque session id the CLI prints with its result.
package claude

import "fmt"

// ChunkKind tags the variants of the output stream.
type ChunkKind int

const (
	// ChunkText is a partial assistant text block.
	ChunkText ChunkKind = iota
	// ChunkToolUse reports the backend invoking a tool.
	ChunkToolUse
	// ChunkFinal carries the complete answer and the new session handle.
	// Terminal.
	ChunkFinal
	// ChunkError reports a failed invocation. Terminal.
	ChunkError
)

func (k ChunkKind) String() string {
	switch k {
	case ChunkText:
		return "text"
	case ChunkToolUse:
		return "tool_use"
	case ChunkFinal:
		return "final"
	case ChunkError:
		return "error"
	}
	return "unknown"
}

// Chunk is one element of the backend output stream. A stream contains any
// number of text and tool-use chunks followed by exactly one terminal chunk
// (final or error), after which the channel is closed.
type Chunk struct {
	Kind ChunkKind

	// Text is the partial text (ChunkText) or complete answer (ChunkFinal).
	Text string

	// Tool and Summary describe a tool invocation (ChunkToolUse).
	Tool    string
	Summary string

	// SessionHandle is the id to resume this conversation with (ChunkFinal).
	SessionHandle string

	// Err details the failure (ChunkError).
	Err *InvokeError
}

// Terminal reports whether this chunk ends the stream.
func (c Chunk) Terminal() bool {
	return c.Kind == ChunkFinal || c.Kind == ChunkError
}

// ErrorKind classifies invocation failures. All of them are recovered at the
// handler boundary; none crash the process.
type ErrorKind int

const (
	// ErrUnreachable: the claude binary is missing or failed to start.
	ErrUnreachable ErrorKind = iota
	// ErrPermission: the backend needed a tool outside the allowed set.
	ErrPermission
	// ErrTimeout: the turn or time budget was exhausted.
	ErrTimeout
	// ErrMalformed: the CLI produced output the parser cannot understand,
	// or exited without a terminal result.
	ErrMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnreachable:
		return "backend-unreachable"
	case ErrPermission:
		return "backend-permission-denied"
	case ErrTimeout:
		return "backend-timeout"
	case ErrMalformed:
		return "backend-malformed-output"
	}
	return "backend-error"
}

// InvokeError is the error payload of a ChunkError.
type InvokeError struct {
	Kind    ErrorKind
	Message string
}

func (e *InvokeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func errorChunk(kind ErrorKind, format string, args ...any) Chunk {
	return Chunk{
		Kind: ChunkError,
		Err:  &InvokeError{Kind: kind, Message: fmt.Sprintf(format, args...)},
	}
}

package claude

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// streamEvent mirrors one line of the CLI's `--output-format stream-json`
// NDJSON output. Only the fields the relay consumes are declared.
type streamEvent struct {
	Type      string `json:"type"`
	Subtype   string `json:"subtype"`
	IsError   bool   `json:"is_error"`
	Result    string `json:"result"`
	SessionID string `json:"session_id"`
	Message   *struct {
		Content []contentBlock `json:"content"`
	} `json:"message"`
}

type contentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// parseLine converts one NDJSON line into zero or more chunks. System and
// tool-result events produce none; an assistant message may produce several.
func parseLine(line []byte) ([]Chunk, error) {
	var ev streamEvent
	if err := json.Unmarshal(line, &ev); err != nil {
		return nil, fmt.Errorf("invalid stream event: %w", err)
	}

	switch ev.Type {
	case "assistant":
		if ev.Message == nil {
			return nil, nil
		}
		var chunks []Chunk
		for _, block := range ev.Message.Content {
			switch block.Type {
			case "text":
				if block.Text != "" {
					chunks = append(chunks, Chunk{Kind: ChunkText, Text: block.Text})
				}
			case "tool_use":
				chunks = append(chunks, Chunk{
					Kind:    ChunkToolUse,
					Tool:    block.Name,
					Summary: toolSummary(block.Name, block.Input),
				})
			}
		}
		return chunks, nil

	case "result":
		if ev.IsError {
			return []Chunk{errorChunk(classifyResult(ev.Subtype, ev.Result), "%s: %s", ev.Subtype, ev.Result)}, nil
		}
		return []Chunk{{Kind: ChunkFinal, Text: ev.Result, SessionHandle: ev.SessionID}}, nil

	case "system", "user":
		// init banners and tool results; nothing to surface.
		return nil, nil

	default:
		// Unknown event types are tolerated so newer CLI versions don't
		// break the relay.
		return nil, nil
	}
}

// classifyResult maps CLI error results onto the relay's error taxonomy.
func classifyResult(subtype, result string) ErrorKind {
	lower := strings.ToLower(result)
	switch {
	case subtype == "error_max_turns":
		return ErrTimeout
	case strings.Contains(lower, "permission") || strings.Contains(lower, "not allowed"):
		return ErrPermission
	default:
		return ErrMalformed
	}
}

// toolSummary renders a short human-readable account of a tool invocation.
// Bash gets its command line; everything else gets compact input JSON.
func toolSummary(name string, input json.RawMessage) string {
	if name == "Bash" {
		var in struct {
			Command     string `json:"command"`
			Description string `json:"description"`
		}
		if err := json.Unmarshal(input, &in); err == nil && in.Command != "" {
			if in.Description != "" {
				return fmt.Sprintf("$ %s # %s", in.Command, in.Description)
			}
			return "$ " + in.Command
		}
	}

	if len(input) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, input); err != nil {
		return string(input)
	}
	return truncate(buf.String(), 200)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

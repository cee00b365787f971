// Package adapter provides implementations for external AI provider integrations.
package adapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/modelgate/modelgate/internal/domain"
)

// Tool-call emulation for upstreams without native structured tool calling.
//
// Request side: the available tool schemas are rendered into an instruction
// block with a strict output contract, injected into the leading system
// message. Structured tool turns from earlier rounds of the conversation are
// flattened to plain text, since the upstream has no structured-turn
// representation.
//
// Response side: the free-text reply is coerced back into the unified
// message shape through an ordered fallback chain. This layer is inherently
// heuristic; it trades perfect fidelity for working on upstreams with no
// native structured output.

const emulationContract = `When you want to use a tool, reply with a single JSON object of the form
{"tool": "<tool name>", "arguments": { ... }}
When you can answer directly, reply with
{"final": "<your answer>"}
Reply with exactly one of these JSON objects and no surrounding prose.`

// fencedBlockRe matches the first fenced code block, with or without a
// language tag, capturing its contents.
var fencedBlockRe = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

// encodeToolInstructions renders the instruction block for the given tool
// schemas: each tool's name, description and a compact JSON rendering of its
// parameter schema, followed by the output contract.
func encodeToolInstructions(tools []domain.Tool) string {
	var b strings.Builder
	b.WriteString("You have access to the following tools:\n")

	for _, t := range tools {
		b.WriteString("- ")
		b.WriteString(t.Function.Name)
		if t.Function.Description != "" {
			b.WriteString(": ")
			b.WriteString(t.Function.Description)
		}
		b.WriteByte('\n')
		if len(t.Function.Parameters) > 0 {
			b.WriteString("  parameters: ")
			b.WriteString(compactJSON(t.Function.Parameters))
			b.WriteByte('\n')
		}
	}

	b.WriteByte('\n')
	b.WriteString(emulationContract)
	return b.String()
}

// compactJSON re-renders raw JSON without insignificant whitespace. Invalid
// input is passed through as-is.
func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// injectToolInstructions returns a copy of the message list with the tool
// instruction block installed. The block is appended to an existing leading
// system message, or inserted as a new leading system message otherwise —
// the caller's own system instructions are never duplicated or displaced.
func injectToolInstructions(messages []domain.Message, tools []domain.Tool) []domain.Message {
	instructions := encodeToolInstructions(tools)

	if len(messages) > 0 && messages[0].Role == domain.RoleSystem {
		out := make([]domain.Message, len(messages))
		copy(out, messages)
		out[0].Content = out[0].Content + "\n\n" + instructions
		return out
	}

	out := make([]domain.Message, 0, len(messages)+1)
	out = append(out, domain.Message{Role: domain.RoleSystem, Content: instructions})
	out = append(out, messages...)
	return out
}

// flattenToolTurns rewrites structured tool turns into plain text the
// upstream can carry:
//   - assistant turns with tool_calls become a single text line in the
//     canonical tool-call JSON shape
//   - "tool" turns (execution results) become user turns prefixed with an
//     attribution naming the tool, since the upstream has no "tool" role
func flattenToolTurns(messages []domain.Message) []domain.Message {
	out := make([]domain.Message, 0, len(messages))

	for _, m := range messages {
		switch {
		case m.Role == domain.RoleAssistant && len(m.ToolCalls) > 0:
			lines := make([]string, 0, len(m.ToolCalls))
			for _, call := range m.ToolCalls {
				lines = append(lines, canonicalToolCallLine(call))
			}
			out = append(out, domain.Message{
				Role:    domain.RoleAssistant,
				Content: strings.Join(lines, "\n"),
			})

		case m.Role == domain.RoleTool:
			name := m.Name
			if name == "" {
				name = "tool"
			}
			out = append(out, domain.Message{
				Role:    domain.RoleUser,
				Content: fmt.Sprintf("[result from tool %q] %s", name, m.Content),
			})

		default:
			out = append(out, m)
		}
	}

	return out
}

// canonicalToolCallLine renders one structured tool call in the same JSON
// shape the output contract asks the model to produce.
func canonicalToolCallLine(call domain.ToolCall) string {
	args := strings.TrimSpace(call.Function.Arguments)
	if args == "" || !gjson.Valid(args) {
		args = "{}"
	}
	return fmt.Sprintf(`{"tool": %q, "arguments": %s}`, call.Function.Name, args)
}

// emulatedReply is the decoded form of a model's free-text answer under the
// emulation output contract.
type emulatedReply struct {
	// ToolName and Arguments are set for a tool invocation.
	ToolName  string
	Arguments string

	// Final is set for a direct answer.
	Final string

	// IsTool distinguishes the two shapes.
	IsTool bool
}

// decodeEmulatedReply coerces the model's raw reply back into the output
// contract through an ordered fallback chain:
//
//  1. parse the entire trimmed reply as JSON
//  2. parse the contents of the first fenced code block
//  3. parse the first balanced {...} span in the text
//
// A candidate that parses but matches neither contract shape falls through
// to the next stage. When nothing decodes, nil is returned: decode failure
// is non-fatal and the caller degrades to the raw text.
func decodeEmulatedReply(raw string) *emulatedReply {
	candidates := make([]string, 0, 3)

	trimmed := strings.TrimSpace(raw)
	candidates = append(candidates, trimmed)

	if m := fencedBlockRe.FindStringSubmatch(raw); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}

	if span := balancedObjectSpan(raw); span != "" {
		candidates = append(candidates, span)
	}

	for _, candidate := range candidates {
		if reply := parseContractObject(candidate); reply != nil {
			return reply
		}
	}

	return nil
}

// parseContractObject attempts to interpret one candidate string as a
// contract object. Returns nil when the candidate is not valid JSON or
// matches neither shape.
func parseContractObject(candidate string) *emulatedReply {
	if candidate == "" || !gjson.Valid(candidate) {
		return nil
	}

	doc := gjson.Parse(candidate)
	if doc.Type != gjson.JSON || !strings.HasPrefix(strings.TrimSpace(candidate), "{") {
		return nil
	}

	tool := doc.Get("tool")
	args := doc.Get("arguments")
	if tool.Exists() && tool.Type == gjson.String && args.Exists() {
		if !args.IsObject() {
			// The contract requires an arguments object.
			return nil
		}
		return &emulatedReply{
			IsTool:    true,
			ToolName:  tool.String(),
			Arguments: args.Raw,
		}
	}

	if final := doc.Get("final"); final.Exists() {
		return &emulatedReply{Final: final.String()}
	}

	return nil
}

// balancedObjectSpan returns the first balanced {...} span in s, respecting
// JSON string literals and escapes. Empty when no balanced span exists.
func balancedObjectSpan(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}

	return ""
}

// emulatedMessage builds the unified choice message and finish reason for a
// decoded reply.
func emulatedMessage(reply *emulatedReply) (domain.Message, string) {
	if reply.IsTool {
		return domain.Message{
			Role: domain.RoleAssistant,
			ToolCalls: []domain.ToolCall{
				{
					ID:   "call_" + uuid.NewString(),
					Type: "function",
					Function: domain.FunctionCall{
						Name:      reply.ToolName,
						Arguments: reply.Arguments,
					},
				},
			},
		}, domain.FinishToolCalls
	}

	return domain.Message{
		Role:    domain.RoleAssistant,
		Content: reply.Final,
	}, domain.FinishStop
}

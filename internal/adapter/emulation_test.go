package adapter

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelgate/modelgate/internal/domain"
)

func websearchTool() domain.Tool {
	return domain.Tool{
		Type: "function",
		Function: domain.ToolFunction{
			Name:        "websearch",
			Description: "Search the web",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"q":{"type":"string"}},"required":["q"]}`),
		},
	}
}

func TestInjectToolInstructions_NewSystemMessage(t *testing.T) {
	messages := []domain.Message{
		{Role: domain.RoleUser, Content: "What's the weather?"},
	}

	out := injectToolInstructions(messages, []domain.Tool{websearchTool()})

	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	if out[0].Role != domain.RoleSystem {
		t.Errorf("out[0].Role = %s, want system", out[0].Role)
	}
	if !strings.Contains(out[0].Content, "websearch") {
		t.Errorf("instruction block missing tool name: %q", out[0].Content)
	}
	if !strings.Contains(out[0].Content, `"required":["q"]`) {
		t.Errorf("instruction block missing compact parameter schema: %q", out[0].Content)
	}
	if out[1].Content != "What's the weather?" {
		t.Errorf("user message displaced: %q", out[1].Content)
	}
}

func TestInjectToolInstructions_AppendsToExistingSystemMessage(t *testing.T) {
	messages := []domain.Message{
		{Role: domain.RoleSystem, Content: "You are terse."},
		{Role: domain.RoleUser, Content: "hi"},
	}

	out := injectToolInstructions(messages, []domain.Tool{websearchTool()})

	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2 (no second system message)", len(out))
	}
	if !strings.HasPrefix(out[0].Content, "You are terse.") {
		t.Errorf("caller's system instructions displaced: %q", out[0].Content)
	}
	if !strings.Contains(out[0].Content, "websearch") {
		t.Errorf("instruction block not appended: %q", out[0].Content)
	}

	// Input must not be mutated.
	if messages[0].Content != "You are terse." {
		t.Errorf("input message mutated: %q", messages[0].Content)
	}
}

func TestFlattenToolTurns(t *testing.T) {
	messages := []domain.Message{
		{Role: domain.RoleUser, Content: "weather in Hanoi?"},
		{
			Role: domain.RoleAssistant,
			ToolCalls: []domain.ToolCall{
				{
					ID:   "call_1",
					Type: "function",
					Function: domain.FunctionCall{
						Name:      "websearch",
						Arguments: `{"q":"weather Hanoi"}`,
					},
				},
			},
		},
		{Role: domain.RoleTool, Name: "websearch", Content: "28C, humid"},
	}

	out := flattenToolTurns(messages)

	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}

	if out[1].Role != domain.RoleAssistant || len(out[1].ToolCalls) != 0 {
		t.Errorf("assistant tool turn not flattened: %+v", out[1])
	}
	if !strings.Contains(out[1].Content, `"tool": "websearch"`) {
		t.Errorf("flattened turn missing canonical tool-call shape: %q", out[1].Content)
	}

	if out[2].Role != domain.RoleUser {
		t.Errorf("tool result role = %s, want user", out[2].Role)
	}
	if !strings.Contains(out[2].Content, "websearch") || !strings.Contains(out[2].Content, "28C, humid") {
		t.Errorf("tool result missing attribution or content: %q", out[2].Content)
	}
}

func TestDecodeEmulatedReply(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantNil  bool
		wantTool string
		wantArgs string
		wantText string
	}{
		{
			name:     "bare tool object",
			raw:      `{"tool":"websearch","arguments":{"q":"weather"}}`,
			wantTool: "websearch",
			wantArgs: `{"q":"weather"}`,
		},
		{
			name:     "bare final object",
			raw:      `{"final":"hello"}`,
			wantText: "hello",
		},
		{
			name:     "surrounding whitespace",
			raw:      "\n  {\"final\":\"hello\"}  \n",
			wantText: "hello",
		},
		{
			name:     "fenced json block",
			raw:      "Here you go:\n```json\n{\"final\":\"hello\"}\n```",
			wantText: "hello",
		},
		{
			name:     "fenced block without language tag",
			raw:      "```\n{\"tool\":\"websearch\",\"arguments\":{\"q\":\"news\"}}\n```",
			wantTool: "websearch",
			wantArgs: `{"q":"news"}`,
		},
		{
			name:     "balanced span inside prose",
			raw:      `I will call the tool now {"tool":"websearch","arguments":{"q":"go"}} as requested.`,
			wantTool: "websearch",
			wantArgs: `{"q":"go"}`,
		},
		{
			name:     "nested braces in arguments",
			raw:      `prefix {"tool":"websearch","arguments":{"q":"a{b}c","filters":{"lang":"en"}}} suffix`,
			wantTool: "websearch",
		},
		{
			name:    "plain prose",
			raw:     "I could not find a matching tool for that request.",
			wantNil: true,
		},
		{
			name:    "json of wrong shape",
			raw:     `{"result":"ok"}`,
			wantNil: true,
		},
		{
			name:    "arguments not an object",
			raw:     `{"tool":"websearch","arguments":"q=weather"}`,
			wantNil: true,
		},
		{
			name:    "empty reply",
			raw:     "",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeEmulatedReply(tt.raw)

			if tt.wantNil {
				if got != nil {
					t.Fatalf("decodeEmulatedReply() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("decodeEmulatedReply() = nil, want a decoded reply")
			}

			if tt.wantTool != "" {
				if !got.IsTool || got.ToolName != tt.wantTool {
					t.Errorf("tool = %q (isTool=%v), want %q", got.ToolName, got.IsTool, tt.wantTool)
				}
				if tt.wantArgs != "" && got.Arguments != tt.wantArgs {
					t.Errorf("arguments = %q, want %q", got.Arguments, tt.wantArgs)
				}
			}
			if tt.wantText != "" {
				if got.IsTool || got.Final != tt.wantText {
					t.Errorf("final = %q (isTool=%v), want %q", got.Final, got.IsTool, tt.wantText)
				}
			}
		})
	}
}

func TestEmulationRoundTrip(t *testing.T) {
	// Encode the instruction for the websearch schema, then feed back the
	// model output the contract asks for.
	messages := injectToolInstructions(
		[]domain.Message{{Role: domain.RoleUser, Content: "weather"}},
		[]domain.Tool{websearchTool()},
	)
	if !strings.Contains(messages[0].Content, `{"tool": "<tool name>"`) {
		t.Fatalf("instruction block missing output contract: %q", messages[0].Content)
	}

	reply := decodeEmulatedReply(`{"tool":"websearch","arguments":{"q":"weather"}}`)
	if reply == nil || !reply.IsTool {
		t.Fatalf("decodeEmulatedReply() = %+v, want tool invocation", reply)
	}

	msg, finish := emulatedMessage(reply)
	if finish != domain.FinishToolCalls {
		t.Errorf("finish reason = %s, want %s", finish, domain.FinishToolCalls)
	}
	if len(msg.ToolCalls) != 1 {
		t.Fatalf("len(ToolCalls) = %d, want 1", len(msg.ToolCalls))
	}
	call := msg.ToolCalls[0]
	if call.Function.Name != "websearch" {
		t.Errorf("tool name = %s, want websearch", call.Function.Name)
	}
	if call.Function.Arguments != `{"q":"weather"}` {
		t.Errorf("arguments = %q, want %q", call.Function.Arguments, `{"q":"weather"}`)
	}
	if call.ID == "" || call.Type != "function" {
		t.Errorf("malformed tool call: %+v", call)
	}
	if msg.Content != "" {
		t.Errorf("tool invocation message carries text content: %q", msg.Content)
	}
}

func TestEmulatedMessage_Final(t *testing.T) {
	msg, finish := emulatedMessage(&emulatedReply{Final: "hello"})
	if finish != domain.FinishStop {
		t.Errorf("finish reason = %s, want %s", finish, domain.FinishStop)
	}
	if msg.Content != "hello" || len(msg.ToolCalls) != 0 {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestBalancedObjectSpan(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no object", "plain text", ""},
		{"simple", `x {"a":1} y`, `{"a":1}`},
		{"unclosed", `{"a":1`, ""},
		{"brace inside string", `{"a":"}"}`, `{"a":"}"}`},
		{"escaped quote inside string", `{"a":"\"}"}`, `{"a":"\"}"}`},
		{"nested", `{"a":{"b":{}}} trailing {"c":2}`, `{"a":{"b":{}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := balancedObjectSpan(tt.in); got != tt.want {
				t.Errorf("balancedObjectSpan(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

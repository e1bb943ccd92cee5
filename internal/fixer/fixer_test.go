package fixer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Bitwarelabscom/luna-orchestrator/internal/agent"
)

func TestParseSuggestion(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     Suggestion
		wantErr  bool
	}{
		{
			name:     "plain json",
			response: `{"action": "retry_same", "reasoning": "transient"}`,
			want:     Suggestion{Action: ActionRetrySame, Reasoning: "transient"},
		},
		{
			name: "fenced json block",
			response: "Here is my recommendation:\n```json\n" +
				`{"action": "switch_agent", "agent": "coder-codex", "reasoning": "try the other coder"}` +
				"\n```\nGood luck.",
			want: Suggestion{Action: ActionSwitchAgent, Agent: "coder-codex", Reasoning: "try the other coder"},
		},
		{
			name: "fence without language tag",
			response: "```\n" +
				`{"action": "abort", "reasoning": "unrecoverable"}` +
				"\n```",
			want: Suggestion{Action: ActionAbort, Reasoning: "unrecoverable"},
		},
		{
			name:     "json embedded in prose",
			response: `I think the best option is {"action": "modify_task", "task": "be specific", "reasoning": "vague"} here.`,
			want:     Suggestion{Action: ActionModifyTask, Task: "be specific", Reasoning: "vague"},
		},
		{
			name:     "braces inside strings",
			response: `{"action": "modify_task", "task": "print {x} literally", "reasoning": "ok"}`,
			want:     Suggestion{Action: ActionModifyTask, Task: "print {x} literally", Reasoning: "ok"},
		},
		{
			name:     "no json at all",
			response: "I would simply retry.",
			wantErr:  true,
		},
		{
			name:     "json without action",
			response: `{"reasoning": "no idea"}`,
			wantErr:  true,
		},
		{
			name:     "empty response",
			response: "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSuggestion(tt.response)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSuggestion() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseSuggestion() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSuggestDegradesToRetry(t *testing.T) {
	roster := agent.DefaultRoster()

	tests := []struct {
		name     string
		complete CompletionFunc
	}{
		{
			name:     "nil completion",
			complete: nil,
		},
		{
			name: "completion error",
			complete: func(ctx context.Context, prompt string) (string, error) {
				return "", fmt.Errorf("model down")
			},
		},
		{
			name: "unparseable response",
			complete: func(ctx context.Context, prompt string) (string, error) {
				return "just retry it", nil
			},
		},
		{
			name: "unknown action",
			complete: func(ctx context.Context, prompt string) (string, error) {
				return `{"action": "escalate", "reasoning": "hm"}`, nil
			},
		},
		{
			name: "switch to unknown agent",
			complete: func(ctx context.Context, prompt string) (string, error) {
				return `{"action": "switch_agent", "agent": "coder-gemini", "reasoning": "hm"}`, nil
			},
		},
		{
			name: "modify without task",
			complete: func(ctx context.Context, prompt string) (string, error) {
				return `{"action": "modify_task", "reasoning": "hm"}`, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.complete, roster, nil)
			got := f.Suggest(context.Background(), "do a thing", "researcher", "it broke", 1)
			if got.Action != ActionRetrySame {
				t.Errorf("Suggest() action = %v, want retry_same", got.Action)
			}
			if got.Reasoning == "" {
				t.Error("degraded suggestion has no reasoning")
			}
		})
	}
}

func TestSuggestValidSuggestionsPassThrough(t *testing.T) {
	roster := agent.DefaultRoster()

	tests := []struct {
		name     string
		response string
		want     Suggestion
	}{
		{
			name:     "retry_same",
			response: `{"action": "retry_same", "reasoning": "flaky"}`,
			want:     Suggestion{Action: ActionRetrySame, Reasoning: "flaky"},
		},
		{
			name:     "abort",
			response: `{"action": "abort", "reasoning": "impossible"}`,
			want:     Suggestion{Action: ActionAbort, Reasoning: "impossible"},
		},
		{
			name:     "switch to known agent",
			response: `{"action": "switch_agent", "agent": "coder-claude", "reasoning": "other coder"}`,
			want:     Suggestion{Action: ActionSwitchAgent, Agent: "coder-claude", Reasoning: "other coder"},
		},
		{
			name:     "modify task",
			response: `{"action": "modify_task", "task": "narrower scope", "reasoning": "too broad"}`,
			want:     Suggestion{Action: ActionModifyTask, Task: "narrower scope", Reasoning: "too broad"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(func(ctx context.Context, prompt string) (string, error) {
				return tt.response, nil
			}, roster, nil)
			got := f.Suggest(context.Background(), "task", "researcher", "failure", 2)
			if got != tt.want {
				t.Errorf("Suggest() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBuildPromptContents(t *testing.T) {
	roster := agent.DefaultRoster()
	var captured string
	f := New(func(ctx context.Context, prompt string) (string, error) {
		captured = prompt
		return `{"action": "retry_same", "reasoning": "ok"}`, nil
	}, roster, nil)

	f.Suggest(context.Background(), "summarize the findings", "analyst", "timeout after 30s", 2)

	for _, want := range []string{
		"summarize the findings",
		"analyst",
		"timeout after 30s",
		"Attempt: 2",
		"coder-claude",
		"retry_same",
	} {
		if !strings.Contains(captured, want) {
			t.Errorf("prompt missing %q:\n%s", want, captured)
		}
	}
}

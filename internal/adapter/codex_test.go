package adapter

import (
	"errors"
	"testing"

	"github.com/stellarlinkco/agentrelay/internal/events"
)

func codexRaw(op string, extra map[string]any) map[string]any {
	raw := map[string]any{
		"agentId":       "agent-2",
		"sessionId":     "sess-2",
		"workspacePath": "/repo",
		"gitBranch":     "dev",
		"op":            op,
	}
	for k, v := range extra {
		raw[k] = v
	}
	return raw
}

func TestCodexParseMapsEveryOp(t *testing.T) {
	c := NewCodex()

	for op, want := range codexEventTypes {
		extra := map[string]any{}
		if op == "ExecApproval" {
			// The table entry is the approval-granted form.
			extra["approval"] = true
		}
		ev, err := c.Parse(codexRaw(op, extra))
		if err != nil {
			t.Fatalf("Parse(%s) error: %v", op, err)
		}
		if ev == nil {
			t.Fatalf("Parse(%s) = nil", op)
		}
		if ev.Type != want {
			t.Errorf("Parse(%s).Type = %q, want %q", op, ev.Type, want)
		}
		if _, ok := events.CategoryOf(ev.Type); !ok {
			t.Errorf("Parse(%s) produced uncategorized type %q", op, ev.Type)
		}
	}
}

func TestCodexExecApprovalBranchesOnDecision(t *testing.T) {
	c := NewCodex()

	tests := []struct {
		approval     bool
		wantType     string
		wantDecision string
	}{
		{true, "permission:approve", "allow"},
		{false, "permission:deny", "deny"},
	}

	for _, tt := range tests {
		ev, err := c.Parse(codexRaw("ExecApproval", map[string]any{
			"approval": tt.approval,
			"command":  "cargo build",
		}))
		if err != nil {
			t.Fatal(err)
		}
		if ev.Type != tt.wantType {
			t.Errorf("approval=%v: type = %q, want %q", tt.approval, ev.Type, tt.wantType)
		}
		p, ok := ev.Payload.(events.PermissionPayload)
		if !ok {
			t.Fatalf("payload = %T", ev.Payload)
		}
		if p.Decision != tt.wantDecision || p.Command != "cargo build" {
			t.Errorf("approval=%v: payload = %+v", tt.approval, p)
		}
	}
}

func TestCodexExecApprovalMissingBoolDefaultsToDeny(t *testing.T) {
	c := NewCodex()
	ev, err := c.Parse(codexRaw("ExecApproval", nil))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Type != "permission:deny" {
		t.Errorf("type = %q, want permission:deny when approval field is absent", ev.Type)
	}
}

func TestCodexParseMissingContext(t *testing.T) {
	c := NewCodex()

	for _, missing := range []string{"agentId", "sessionId", "workspacePath", "gitBranch"} {
		raw := codexRaw("AgentMessage", map[string]any{"message": "hi"})
		delete(raw, missing)

		_, err := c.Parse(raw)
		if !errors.Is(err, ErrMissingContext) {
			t.Errorf("Parse without %s: err = %v, want ErrMissingContext", missing, err)
		}
	}
}

func TestCodexParseUnrecognizedOp(t *testing.T) {
	c := NewCodex()
	ev, err := c.Parse(codexRaw("McpToolCallBegin", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev != nil {
		t.Errorf("expected nil for unrecognized op, got %+v", ev)
	}
}

func TestCodexExecCommandEndStatus(t *testing.T) {
	c := NewCodex()

	ev, err := c.Parse(codexRaw("ExecCommandEnd", map[string]any{
		"exit_code": float64(1),
		"stdout":    "boom",
	}))
	if err != nil {
		t.Fatal(err)
	}
	p := ev.Payload.(events.ToolPayload)
	if p.Status != events.ToolError {
		t.Errorf("status = %q, want error on nonzero exit", p.Status)
	}

	ev, err = c.Parse(codexRaw("ExecCommandEnd", map[string]any{
		"exit_code":   float64(0),
		"stdout":      "ok",
		"duration_ms": float64(42),
	}))
	if err != nil {
		t.Fatal(err)
	}
	p = ev.Payload.(events.ToolPayload)
	if p.Status != events.ToolSuccess || p.Duration != 42 || p.Output != "ok" {
		t.Errorf("payload = %+v", p)
	}
}

func TestCodexTerminalOutput(t *testing.T) {
	c := NewCodex()
	got := c.ParseTerminalOutput("Allow Codex to run \"npm test\"?\nexec npm test\n", events.Context{Agent: events.AgentCodex})
	if len(got) != 2 {
		t.Fatalf("events = %d, want 2", len(got))
	}
	if got[0].Type != "permission:request" || got[1].Type != "tool:start" {
		t.Errorf("types = %s, %s", got[0].Type, got[1].Type)
	}
	perm := got[0].Payload.(events.PermissionPayload)
	if perm.Command != "npm test" {
		t.Errorf("command = %q", perm.Command)
	}
}

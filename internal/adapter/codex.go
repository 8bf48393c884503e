package adapter

import (
	"regexp"

	"github.com/stellarlinkco/agentrelay/internal/events"
)

// codexEventTypes maps Codex app-server op names to canonical event types.
// ExecApproval maps here to its approval-granted form; Parse decodes the
// op's boolean decision field and rewrites the type for the denied case.
var codexEventTypes = map[string]string{
	"SessionConfigured":         "session:start",
	"ThreadStarted":             "session:start",
	"TaskComplete":              "session:stop",
	"ShutdownComplete":          "session:end",
	"AgentMessage":              "agent_output:message",
	"AgentReasoning":            "agent_output:reasoning",
	"ExecCommandBegin":          "tool:start",
	"ExecCommandEnd":            "tool:complete",
	"PatchApplyBegin":           "tool:start",
	"PatchApplyEnd":             "tool:complete",
	"ExecApprovalRequest":       "permission:request",
	"ApplyPatchApprovalRequest": "permission:request",
	"ExecApproval":              "permission:approve",
	"Compacted":                 "context:compact",
	"Error":                     "system:error",
	"TurnAborted":               "system:warning",
}

// execDecision is the decoded form of ExecApproval's boolean approval
// field. Decoding to an enum first keeps the type mapping exhaustive
// instead of branching on raw payload shape at the mapping site.
type execDecision int

const (
	decisionGranted execDecision = iota
	decisionDenied
)

func (d execDecision) eventType() string {
	if d == decisionDenied {
		return "permission:deny"
	}
	return "permission:approve"
}

// Codex translates Codex app-server ops. Ops arrive as JSON objects with the
// op name under "op" and op-specific fields at the top level, plus the
// caller's routing context.
type Codex struct{}

func NewCodex() *Codex { return &Codex{} }

func (c *Codex) AgentType() events.AgentType { return events.AgentCodex }

func (c *Codex) MapEventType(vendorType string) (string, bool) {
	t, ok := codexEventTypes[vendorType]
	return t, ok
}

func (c *Codex) Parse(raw map[string]any) (*events.AgentEvent, error) {
	ctx, err := contextFromRaw(events.AgentCodex, raw)
	if err != nil {
		return nil, err
	}

	op := rawString(raw, "op", "type")
	canonical, ok := codexEventTypes[op]
	if !ok {
		return nil, nil
	}

	if op == "ExecApproval" {
		// Two-step decode: the envelope names the op, then the boolean
		// approval field becomes a decision before the type is chosen.
		decision := decisionDenied
		if approved, _ := raw["approval"].(bool); approved {
			decision = decisionGranted
		}
		canonical = decision.eventType()
		return events.New(canonical, ctx, c.approvalPayload(raw, decision), raw), nil
	}

	return events.New(canonical, ctx, c.buildPayload(op, raw), raw), nil
}

func (c *Codex) approvalPayload(raw map[string]any, decision execDecision) events.Payload {
	verdict := "allow"
	if decision == decisionDenied {
		verdict = "deny"
	}
	return events.PermissionPayload{
		ToolName:  "exec",
		Command:   rawString(raw, "command"),
		Decision:  verdict,
		DecidedBy: rawString(raw, "decided_by", "decidedBy"),
	}
}

func (c *Codex) buildPayload(op string, raw map[string]any) events.Payload {
	switch op {
	case "SessionConfigured", "ThreadStarted":
		return events.SessionPayload{
			SessionID:    rawString(raw, "sessionId", "session_id"),
			AgentVersion: rawString(raw, "model"),
		}
	case "TaskComplete", "ShutdownComplete":
		return events.SessionPayload{
			SessionID: rawString(raw, "sessionId", "session_id"),
			Reason:    rawString(raw, "reason"),
		}
	case "AgentMessage":
		return events.AgentOutputPayload{
			Content:    rawString(raw, "message", "text"),
			OutputType: events.OutputText,
		}
	case "AgentReasoning":
		return events.AgentOutputPayload{
			Content:    rawString(raw, "text", "reasoning"),
			OutputType: events.OutputReasoning,
		}
	case "ExecCommandBegin":
		return events.ToolPayload{
			ToolName:     "exec",
			ToolCategory: events.ToolShell,
			Input:        map[string]any{"command": rawString(raw, "command")},
			Status:       events.ToolRunning,
		}
	case "ExecCommandEnd":
		status := events.ToolSuccess
		errText := rawString(raw, "error")
		if code := rawInt(raw, "exit_code", "exitCode"); code != 0 || errText != "" {
			status = events.ToolError
		}
		return events.ToolPayload{
			ToolName:     "exec",
			ToolCategory: events.ToolShell,
			Output:       rawString(raw, "stdout", "output"),
			Status:       status,
			Duration:     int64(rawInt(raw, "duration_ms", "durationMs")),
			Error:        errText,
		}
	case "PatchApplyBegin":
		return events.ToolPayload{
			ToolName:     "apply_patch",
			ToolCategory: events.ToolFileWrite,
			Status:       events.ToolRunning,
		}
	case "PatchApplyEnd":
		status := events.ToolSuccess
		if !rawBool(raw, "success") {
			status = events.ToolError
		}
		return events.ToolPayload{
			ToolName:     "apply_patch",
			ToolCategory: events.ToolFileWrite,
			Status:       status,
		}
	case "ExecApprovalRequest":
		return events.PermissionPayload{
			ToolName:         "exec",
			Command:          rawString(raw, "command"),
			WorkingDirectory: rawString(raw, "cwd", "workspacePath"),
			Reason:           rawString(raw, "reason"),
		}
	case "ApplyPatchApprovalRequest":
		return events.PermissionPayload{
			ToolName: "apply_patch",
			FilePath: rawString(raw, "path", "file_path"),
			Reason:   rawString(raw, "reason"),
		}
	case "Compacted":
		return events.ContextPayload{
			Operation:    events.ContextCompact,
			TokensBefore: rawInt(raw, "tokens_before", "tokensBefore"),
			TokensAfter:  rawInt(raw, "tokens_after", "tokensAfter"),
		}
	case "Error":
		return events.SystemPayload{
			Level:   events.SystemError,
			Message: rawString(raw, "message", "error"),
		}
	case "TurnAborted":
		return events.SystemPayload{
			Level:   events.SystemWarning,
			Message: rawString(raw, "reason"),
			Code:    "turn_aborted",
		}
	default:
		return nil
	}
}

var codexTerminalPatterns = []terminalPattern{
	{
		re: regexp.MustCompile(`(?m)Allow Codex to run\s+"?(.+?)"?\s*\?`),
		build: func(m []string, ctx events.Context, line string) *events.AgentEvent {
			return terminalEvent("permission:request", ctx, events.PermissionPayload{
				ToolName:  "exec",
				Command:   m[1],
				RawPrompt: line,
			}, line)
		},
	},
	{
		re: regexp.MustCompile(`(?m)^exec\s+(.+)$`),
		build: func(m []string, ctx events.Context, line string) *events.AgentEvent {
			return terminalEvent("tool:start", ctx, events.ToolPayload{
				ToolName:     "exec",
				ToolCategory: events.ToolShell,
				Input:        map[string]any{"command": m[1]},
				Status:       events.ToolRunning,
			}, line)
		},
	},
}

// ParseTerminalOutput scans Codex CLI terminal text. Best-effort only.
func (c *Codex) ParseTerminalOutput(text string, ctx events.Context) []*events.AgentEvent {
	return scanTerminal(text, ctx, codexTerminalPatterns)
}

func rawBool(raw map[string]any, keys ...string) bool {
	for _, k := range keys {
		if v, ok := raw[k].(bool); ok {
			return v
		}
	}
	return false
}

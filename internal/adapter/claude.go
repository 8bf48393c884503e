package adapter

import (
	"regexp"

	"github.com/stellarlinkco/agentrelay/internal/events"
)

// claudeEventTypes maps Claude hook names to canonical event types. The
// table is static; Parse never invents a type outside it.
var claudeEventTypes = map[string]string{
	"SessionStart":       "session:start",
	"SessionEnd":         "session:end",
	"Setup":              "session:setup",
	"Stop":               "session:stop",
	"UserPromptSubmit":   "user_input:prompt",
	"PreToolUse":         "tool:start",
	"PostToolUse":        "tool:complete",
	"PostToolUseFailure": "tool:error",
	"PermissionRequest":  "permission:request",
	"SubagentStart":      "delegation:start",
	"SubagentStop":       "delegation:stop",
	"PreCompact":         "context:compact",
	"Notification":       "system:notification",
}

// Claude translates Claude hook payloads and terminal output. Hook payloads
// arrive as the JSON the runtime feeds its hooks (snake_case keys, the hook
// name under hook_event_name) with the caller's routing context merged in.
type Claude struct{}

func NewClaude() *Claude { return &Claude{} }

func (c *Claude) AgentType() events.AgentType { return events.AgentClaude }

func (c *Claude) MapEventType(vendorType string) (string, bool) {
	t, ok := claudeEventTypes[vendorType]
	return t, ok
}

func (c *Claude) Parse(raw map[string]any) (*events.AgentEvent, error) {
	ctx, err := contextFromRaw(events.AgentClaude, raw)
	if err != nil {
		return nil, err
	}

	vendorType := rawString(raw, "hook_event_name", "hookEventName", "eventType")
	canonical, ok := claudeEventTypes[vendorType]
	if !ok {
		return nil, nil
	}

	return events.New(canonical, ctx, c.buildPayload(vendorType, ctx, raw), raw), nil
}

func (c *Claude) buildPayload(vendorType string, ctx events.Context, raw map[string]any) events.Payload {
	switch vendorType {
	case "SessionStart", "Setup":
		return events.SessionPayload{
			SessionID:     ctx.SessionID,
			WorkspacePath: ctx.WorkspacePath,
			AgentVersion:  rawString(raw, "version", "agent_version"),
			Reason:        rawString(raw, "source"),
		}
	case "SessionEnd", "Stop":
		return events.SessionPayload{
			SessionID: ctx.SessionID,
			Reason:    rawString(raw, "reason"),
		}
	case "UserPromptSubmit":
		return events.UserInputPayload{Content: rawString(raw, "prompt")}
	case "PreToolUse":
		toolName := rawString(raw, "tool_name", "toolName")
		return events.ToolPayload{
			ToolName:     toolName,
			ToolCategory: Categorize(toolName),
			Input:        rawMap(raw, "tool_input", "toolInput"),
			Status:       events.ToolPending,
		}
	case "PostToolUse":
		toolName := rawString(raw, "tool_name", "toolName")
		return events.ToolPayload{
			ToolName:     toolName,
			ToolCategory: Categorize(toolName),
			Input:        rawMap(raw, "tool_input", "toolInput"),
			Output:       rawString(raw, "tool_response", "toolResponse"),
			Status:       events.ToolSuccess,
		}
	case "PostToolUseFailure":
		toolName := rawString(raw, "tool_name", "toolName")
		return events.ToolPayload{
			ToolName:     toolName,
			ToolCategory: Categorize(toolName),
			Input:        rawMap(raw, "tool_input", "toolInput"),
			Status:       events.ToolError,
			Error:        rawString(raw, "error", "tool_error"),
		}
	case "PermissionRequest":
		toolName := rawString(raw, "tool_name", "toolName")
		input := rawMap(raw, "tool_input", "toolInput")
		return events.PermissionPayload{
			ToolName:         toolName,
			Command:          rawString(input, "command"),
			FilePath:         rawString(input, "file_path", "path"),
			WorkingDirectory: ctx.WorkspacePath,
			Reason:           rawString(raw, "reason"),
		}
	case "SubagentStart":
		return events.DelegationPayload{
			SubagentID:   rawString(raw, "agent_id", "agentId"),
			SubagentType: rawString(raw, "agent_type", "agentType"),
			Task:         rawString(raw, "task", "prompt"),
		}
	case "SubagentStop":
		return events.DelegationPayload{
			SubagentID:   rawString(raw, "agent_id", "agentId"),
			SubagentType: rawString(raw, "agent_type", "agentType"),
			Transcript:   rawString(raw, "transcript_path", "transcriptPath"),
		}
	case "PreCompact":
		return events.ContextPayload{
			Operation:    events.ContextCompact,
			TokensBefore: rawInt(raw, "estimated_tokens"),
		}
	case "Notification":
		return events.SystemPayload{
			Level:   events.SystemInfo,
			Message: rawString(raw, "message"),
		}
	default:
		return nil
	}
}

// Terminal scraping patterns for Claude's interactive CLI. These are
// heuristic by nature; every event they produce carries a terminal source
// marker in Raw so consumers can treat them as lower confidence.
var claudeTerminalPatterns = []terminalPattern{
	{
		re: regexp.MustCompile(`(?m)Allow command:\s*(.+?)\?`),
		build: func(m []string, ctx events.Context, line string) *events.AgentEvent {
			return terminalEvent("permission:request", ctx, events.PermissionPayload{
				ToolName:  "Bash",
				Command:   m[1],
				RawPrompt: line,
			}, line)
		},
	},
	{
		re: regexp.MustCompile(`(?m)Do you want to (?:proceed|allow) .*\?`),
		build: func(m []string, ctx events.Context, line string) *events.AgentEvent {
			return terminalEvent("permission:request", ctx, events.PermissionPayload{
				ToolName:  "unknown",
				RawPrompt: line,
			}, line)
		},
	},
	{
		re: regexp.MustCompile(`(?m)Running tool\s+([A-Za-z_][\w-]*)`),
		build: func(m []string, ctx events.Context, line string) *events.AgentEvent {
			return terminalEvent("tool:start", ctx, events.ToolPayload{
				ToolName:     m[1],
				ToolCategory: Categorize(m[1]),
				Status:       events.ToolRunning,
			}, line)
		},
	},
	{
		re: regexp.MustCompile(`(?mi)^\W*thinking\W*$`),
		build: func(m []string, ctx events.Context, line string) *events.AgentEvent {
			return terminalEvent("agent_output:thinking", ctx, events.AgentOutputPayload{
				OutputType:  events.OutputThinking,
				IsStreaming: true,
			}, line)
		},
	},
}

// ParseTerminalOutput scans freeform terminal text for recognizable Claude
// CLI output. It never fails; unmatched text yields no events.
func (c *Claude) ParseTerminalOutput(text string, ctx events.Context) []*events.AgentEvent {
	return scanTerminal(text, ctx, claudeTerminalPatterns)
}

func rawInt(raw map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case float64:
			return int(v)
		case int:
			return v
		}
	}
	return 0
}

// Package sideband is the out-of-process channel for CLI-spawned agents.
// Those agents cannot call back in-process, so a bootstrap script posts
// lifecycle reports over HTTP. Everything arriving here is untrusted:
// validation never panics and reports every problem in one pass so a
// caller gets a complete diagnostic from a single response.
package sideband

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// LifecycleEventType is the deliberately small event vocabulary of the
// sideband. CLI agents cannot supply rich payloads, so this model stays
// lighter than the canonical AgentEvent.
type LifecycleEventType string

const (
	LifecycleStart             LifecycleEventType = "Start"
	LifecycleStop              LifecycleEventType = "Stop"
	LifecyclePermissionRequest LifecycleEventType = "PermissionRequest"
	LifecyclePreToolUse        LifecycleEventType = "PreToolUse"
)

// LifecycleEvent is one validated sideband report.
type LifecycleEvent struct {
	ID            string             `json:"id"`
	Type          LifecycleEventType `json:"type"`
	TerminalID    string             `json:"terminalId"`
	WorkspacePath string             `json:"workspacePath"`
	GitBranch     string             `json:"gitBranch"`
	SessionID     string             `json:"sessionId"`
	AgentID       string             `json:"agentId"`
	Timestamp     time.Time          `json:"timestamp"`
	ToolName      string             `json:"toolName,omitempty"`
	ToolInput     map[string]any     `json:"toolInput,omitempty"`
	ToolUseID     string             `json:"toolUseId,omitempty"`
}

// lifecycleEventTypes normalizes the vendor event-name strings agents post
// into the four-value enum. Unlisted names are rejected upstream.
var lifecycleEventTypes = map[string]LifecycleEventType{
	"Start":             LifecycleStart,
	"SessionStart":      LifecycleStart,
	"UserPromptSubmit":  LifecycleStart,
	"Stop":              LifecycleStop,
	"SessionEnd":        LifecycleStop,
	"PermissionRequest": LifecyclePermissionRequest,
	"PreToolUse":        LifecyclePreToolUse,
}

// MapEventType normalizes a posted event-name string. ok is false for
// unrecognized or empty names; callers reject the request rather than
// guessing.
func MapEventType(name string) (LifecycleEventType, bool) {
	t, ok := lifecycleEventTypes[name]
	return t, ok
}

// ValidationResult is the outcome of validating one raw hook body. Invalid
// requests carry a human-readable reason plus the complete list of missing
// or unusable fields; validation never stops at the first problem.
type ValidationResult struct {
	Valid         bool
	Event         *LifecycleEvent
	Reason        string
	MissingFields []string
}

// Field labels use the documented alias notation for the two fields that
// accept a snake_case spelling.
const (
	fieldTerminalID    = "terminalId"
	fieldWorkspacePath = "workspacePath|cwd"
	fieldGitBranch     = "gitBranch"
	fieldSessionID     = "sessionId|session_id"
	fieldAgentID       = "agentId"
	fieldEventType     = "eventType"
)

// ValidateHookRequest checks an untrusted hook body and builds the
// lifecycle event on success.
func ValidateHookRequest(raw map[string]any) ValidationResult {
	var missing []string

	terminalID := stringField(raw, "terminalId", "terminal_id")
	if terminalID == "" {
		missing = append(missing, fieldTerminalID)
	}
	workspace := stringField(raw, "workspacePath", "cwd")
	if workspace == "" {
		missing = append(missing, fieldWorkspacePath)
	}
	branch := stringField(raw, "gitBranch", "git_branch")
	if branch == "" {
		missing = append(missing, fieldGitBranch)
	}
	sessionID := stringField(raw, "sessionId", "session_id")
	if sessionID == "" {
		missing = append(missing, fieldSessionID)
	}
	agentID := stringField(raw, "agentId", "agent_id")
	if agentID == "" {
		missing = append(missing, fieldAgentID)
	}

	eventName := stringField(raw, "eventType", "event_type", "hook_event_name")
	eventType, ok := MapEventType(eventName)
	if !ok {
		missing = append(missing, fieldEventType)
	}

	if len(missing) > 0 {
		return ValidationResult{
			Valid:         false,
			Reason:        "missing or unrecognized fields: " + strings.Join(missing, ", "),
			MissingFields: missing,
		}
	}

	ev := &LifecycleEvent{
		ID:            uuid.NewString(),
		Type:          eventType,
		TerminalID:    terminalID,
		WorkspacePath: workspace,
		GitBranch:     branch,
		SessionID:     sessionID,
		AgentID:       agentID,
		Timestamp:     time.Now(),
		ToolName:      stringField(raw, "toolName", "tool_name"),
		ToolUseID:     stringField(raw, "toolUseId", "tool_use_id"),
	}
	if input, ok := raw["toolInput"].(map[string]any); ok {
		ev.ToolInput = input
	} else if input, ok := raw["tool_input"].(map[string]any); ok {
		ev.ToolInput = input
	}

	return ValidationResult{Valid: true, Event: ev}
}

func stringField(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Package adapter translates vendor-native agent signals into canonical
// events. Each vendor gets one translator; structured payload parsing is
// trusted and fails hard on contract violations, while terminal-text
// scraping is best-effort and never errors.
package adapter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stellarlinkco/agentrelay/internal/events"
)

// ErrMissingContext marks a caller-supplied contract violation: the raw
// payload handed to Parse lacked one of the four required routing fields.
// Silently defaulting agentId/sessionId/workspacePath/gitBranch would
// corrupt downstream routing, so this must never be swallowed.
var ErrMissingContext = errors.New("missing required event context")

// MissingContextError reports exactly which required fields were absent.
type MissingContextError struct {
	Agent  events.AgentType
	Fields []string
}

func (e *MissingContextError) Error() string {
	return fmt.Sprintf("%s adapter: missing required context fields: %s", e.Agent, strings.Join(e.Fields, ", "))
}

func (e *MissingContextError) Unwrap() error { return ErrMissingContext }

// Adapter converts one vendor's native payloads into canonical events.
//
// Parse returns (nil, nil) for a recognized-shape payload whose vendor event
// type has no canonical mapping; callers skip such events. It returns a
// MissingContextError when the required routing fields are absent, because
// those are supplied by the caller, not the vendor.
type Adapter interface {
	AgentType() events.AgentType
	Parse(raw map[string]any) (*events.AgentEvent, error)
	MapEventType(vendorType string) (string, bool)
}

// TerminalParser is the optional lower-confidence event source: pattern
// matching over freeform terminal text. Implementations return zero or more
// events and never fail; unmatched text yields an empty result.
type TerminalParser interface {
	ParseTerminalOutput(text string, ctx events.Context) []*events.AgentEvent
}

// ForAgent returns the registered adapter for a vendor tag.
func ForAgent(a events.AgentType) (Adapter, bool) {
	switch a {
	case events.AgentClaude:
		return NewClaude(), true
	case events.AgentCodex:
		return NewCodex(), true
	default:
		return nil, false
	}
}

// All returns one adapter instance per supported vendor.
func All() []Adapter {
	return []Adapter{NewClaude(), NewCodex()}
}

// contextFromRaw extracts the required routing fields that the caller merges
// into every raw payload before Parse. Aliases follow each vendor's native
// casing: sessionId/session_id and workspacePath/cwd are both accepted.
func contextFromRaw(agent events.AgentType, raw map[string]any) (events.Context, error) {
	ctx := events.Context{Agent: agent}
	var missing []string

	if ctx.AgentID = rawString(raw, "agentId", "agent_id"); ctx.AgentID == "" {
		missing = append(missing, "agentId")
	}
	if ctx.SessionID = rawString(raw, "sessionId", "session_id"); ctx.SessionID == "" {
		missing = append(missing, "sessionId")
	}
	if ctx.WorkspacePath = rawString(raw, "workspacePath", "cwd"); ctx.WorkspacePath == "" {
		missing = append(missing, "workspacePath")
	}
	if ctx.GitBranch = rawString(raw, "gitBranch", "git_branch"); ctx.GitBranch == "" {
		missing = append(missing, "gitBranch")
	}

	if len(missing) > 0 {
		return events.Context{}, &MissingContextError{Agent: agent, Fields: missing}
	}
	return ctx, nil
}

func rawString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func rawMap(raw map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		if v, ok := raw[k].(map[string]any); ok {
			return v
		}
	}
	return nil
}

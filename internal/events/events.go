// Package events defines the canonical event model shared by every agent
// adapter. Vendor runtimes emit lifecycle signals in their own shapes; the
// rest of the system only ever sees these types.
package events

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AgentType tags which vendor runtime produced an event.
type AgentType string

const (
	AgentClaude AgentType = "claude"
	AgentCodex  AgentType = "codex"
)

// Category is the first segment of an event type string ("tool:start" ->
// "tool"). The set is closed: no event may exist with a type outside it.
type Category string

const (
	CategorySession     Category = "session"
	CategoryUserInput   Category = "user_input"
	CategoryAgentOutput Category = "agent_output"
	CategoryTool        Category = "tool"
	CategoryPermission  Category = "permission"
	CategoryDelegation  Category = "delegation"
	CategoryContext     Category = "context"
	CategorySystem      Category = "system"
)

// Categories returns the closed category set in declaration order.
func Categories() []Category {
	return []Category{
		CategorySession,
		CategoryUserInput,
		CategoryAgentOutput,
		CategoryTool,
		CategoryPermission,
		CategoryDelegation,
		CategoryContext,
		CategorySystem,
	}
}

// CategoryOf derives the category from a type string by splitting on ":".
// ok is false when the prefix is not a known category; callers construct
// event types from the tables in the adapter packages, so a false return
// indicates a programming error rather than bad input.
func CategoryOf(eventType string) (Category, bool) {
	prefix, _, found := strings.Cut(eventType, ":")
	if !found {
		return "", false
	}
	c := Category(prefix)
	for _, known := range Categories() {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// AgentEvent is the canonical unit routed through the registry. AgentID,
// SessionID, WorkspacePath and GitBranch are required; routing and display
// correctness depend on them, so adapters refuse to construct an event
// without all four.
type AgentEvent struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Agent         AgentType      `json:"agent"`
	AgentID       string         `json:"agentId"`
	SessionID     string         `json:"sessionId"`
	WorkspacePath string         `json:"workspacePath"`
	GitBranch     string         `json:"gitBranch"`
	Timestamp     time.Time      `json:"timestamp"`
	Payload       Payload        `json:"payload,omitempty"`
	Raw           map[string]any `json:"raw,omitempty"` // opaque vendor payload, diagnostics only
}

// Category returns the event's category. The type string is always built
// from the canonical tables, so the prefix is valid by construction.
func (e *AgentEvent) Category() Category {
	c, _ := CategoryOf(e.Type)
	return c
}

// Context carries the four required routing fields plus the vendor tag.
// Adapters and the hook bridge take it from their caller and stamp it onto
// every event they produce.
type Context struct {
	Agent         AgentType
	AgentID       string
	SessionID     string
	WorkspacePath string
	GitBranch     string
}

// New constructs an AgentEvent with a fresh ID and timestamp. It does not
// validate the context; adapters do that first so they can report which
// fields are missing.
func New(typ string, ctx Context, payload Payload, raw map[string]any) *AgentEvent {
	return &AgentEvent{
		ID:            uuid.NewString(),
		Type:          typ,
		Agent:         ctx.Agent,
		AgentID:       ctx.AgentID,
		SessionID:     ctx.SessionID,
		WorkspacePath: ctx.WorkspacePath,
		GitBranch:     ctx.GitBranch,
		Timestamp:     time.Now(),
		Payload:       payload,
		Raw:           raw,
	}
}

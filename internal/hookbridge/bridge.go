// Package hookbridge wires the agentsdk-go lifecycle hook surface to the
// event registry. The SDK invokes typed callbacks in-process (no network
// hop), so unlike the HTTP sideband this path trusts its caller: missing
// context is a hard failure, never a silent default.
package hookbridge

import (
	"context"
	"errors"
	"fmt"

	coreevents "github.com/cexll/agentsdk-go/pkg/core/events"
	corehooks "github.com/cexll/agentsdk-go/pkg/core/hooks"

	"github.com/stellarlinkco/agentrelay/internal/adapter"
	"github.com/stellarlinkco/agentrelay/internal/events"
	"github.com/stellarlinkco/agentrelay/internal/registry"
)

// Setup fires once when the runtime provisions a session environment. The
// embedded SDK does not enumerate it, so it is defined here alongside the
// SDK's own event names.
const Setup coreevents.EventType = "Setup"

// Hooks lists every hook name the bridge builds a callback for.
var Hooks = []coreevents.EventType{
	coreevents.SessionStart,
	coreevents.SessionEnd,
	coreevents.UserPromptSubmit,
	coreevents.PreToolUse,
	coreevents.PostToolUse,
	coreevents.PostToolUseFailure,
	coreevents.PermissionRequest,
	coreevents.SubagentStart,
	coreevents.SubagentStop,
	coreevents.PreCompact,
	coreevents.Stop,
	coreevents.Notification,
	Setup,
}

// ErrMissingBridgeContext reports construction without the caller context
// every event needs for routing.
var ErrMissingBridgeContext = errors.New("hookbridge: agent id and git branch are required")

// ErrMissingHookInput reports a hook invocation without session_id or cwd.
var ErrMissingHookInput = errors.New("hookbridge: hook input requires session_id and cwd")

// Context is the caller-supplied identity stamped onto every bridged event.
type Context struct {
	AgentID   string
	GitBranch string
}

// HookInput mirrors the JSON the runtime feeds its hooks. session_id and
// cwd are required on every invocation.
type HookInput struct {
	SessionID      string         `json:"session_id"`
	Cwd            string         `json:"cwd"`
	ToolName       string         `json:"tool_name,omitempty"`
	ToolInput      map[string]any `json:"tool_input,omitempty"`
	ToolUseID      string         `json:"tool_use_id,omitempty"`
	ToolResponse   string         `json:"tool_response,omitempty"`
	Error          string         `json:"error,omitempty"`
	Prompt         string         `json:"prompt,omitempty"`
	Message        string         `json:"message,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	Source         string         `json:"source,omitempty"`
	SubagentID     string         `json:"agent_id,omitempty"`
	SubagentType   string         `json:"agent_type,omitempty"`
	TranscriptPath string         `json:"transcript_path,omitempty"`
}

// Callback is one bridged hook. The returned HookOutput is the runtime's
// native response shape; a no-opinion result is "continue, no change".
type Callback func(ctx context.Context, in *HookInput) (*corehooks.HookOutput, error)

// Bridge builds callbacks that translate hook invocations into canonical
// events, emit them on the registry, and fold the ordered handler results
// back into the runtime's hook-response format.
type Bridge struct {
	reg     *registry.Registry
	bctx    Context
	adapter *adapter.Claude
}

// New fails when the caller context is incomplete; defaulting either field
// would corrupt routing for every event the bridge ever produces.
func New(reg *registry.Registry, bctx Context) (*Bridge, error) {
	if bctx.AgentID == "" || bctx.GitBranch == "" {
		return nil, ErrMissingBridgeContext
	}
	return &Bridge{reg: reg, bctx: bctx, adapter: adapter.NewClaude()}, nil
}

// Callback returns the bridged callback for one hook name.
func (b *Bridge) Callback(hook coreevents.EventType) (Callback, bool) {
	if _, ok := b.adapter.MapEventType(string(hook)); !ok {
		return nil, false
	}
	return func(ctx context.Context, in *HookInput) (*corehooks.HookOutput, error) {
		return b.invoke(ctx, hook, in)
	}, true
}

// Callbacks returns the full hook-name-to-callback table.
func (b *Bridge) Callbacks() map[coreevents.EventType]Callback {
	out := make(map[coreevents.EventType]Callback, len(Hooks))
	for _, hook := range Hooks {
		if cb, ok := b.Callback(hook); ok {
			out[hook] = cb
		}
	}
	return out
}

func (b *Bridge) invoke(ctx context.Context, hook coreevents.EventType, in *HookInput) (*corehooks.HookOutput, error) {
	if in == nil || in.SessionID == "" || in.Cwd == "" {
		return nil, ErrMissingHookInput
	}

	ev, err := b.adapter.Parse(b.rawPayload(hook, in))
	if err != nil {
		return nil, fmt.Errorf("hookbridge: %w", err)
	}
	if ev == nil {
		return continueOutput(), nil
	}

	results := b.reg.Emit(ctx, ev)
	return respond(hook, results), nil
}

// rawPayload assembles the vendor-shaped raw map the Claude adapter parses:
// the hook input fields plus the bridge's routing context.
func (b *Bridge) rawPayload(hook coreevents.EventType, in *HookInput) map[string]any {
	raw := map[string]any{
		"hook_event_name": string(hook),
		"session_id":      in.SessionID,
		"cwd":             in.Cwd,
		"agentId":         b.bctx.AgentID,
		"gitBranch":       b.bctx.GitBranch,
	}
	if in.ToolName != "" {
		raw["tool_name"] = in.ToolName
	}
	if in.ToolInput != nil {
		raw["tool_input"] = in.ToolInput
	}
	if in.ToolUseID != "" {
		raw["tool_use_id"] = in.ToolUseID
	}
	if in.ToolResponse != "" {
		raw["tool_response"] = in.ToolResponse
	}
	if in.Error != "" {
		raw["error"] = in.Error
	}
	if in.Prompt != "" {
		raw["prompt"] = in.Prompt
	}
	if in.Message != "" {
		raw["message"] = in.Message
	}
	if in.Reason != "" {
		raw["reason"] = in.Reason
	}
	if in.Source != "" {
		raw["source"] = in.Source
	}
	if in.SubagentID != "" {
		raw["agent_id"] = in.SubagentID
	}
	if in.SubagentType != "" {
		raw["agent_type"] = in.SubagentType
	}
	if in.TranscriptPath != "" {
		raw["transcript_path"] = in.TranscriptPath
	}
	return raw
}

// respond folds handler results into the runtime's response shape. The
// first deny wins; absent a deny, the first modify wins for the one hook
// that supports structured input replacement; otherwise continue unchanged.
func respond(hook coreevents.EventType, results []events.EventResult) *corehooks.HookOutput {
	for _, res := range results {
		if res.Action != events.ActionDeny {
			continue
		}
		if hook == coreevents.PreToolUse {
			// PreToolUse supports a structured permission decision.
			return &corehooks.HookOutput{
				HookSpecificOutput: &corehooks.HookSpecificOutput{
					HookEventName:            string(hook),
					PermissionDecision:       string(coreevents.PermissionDeny),
					PermissionDecisionReason: res.Message,
				},
			}
		}
		return stopOutput(res.Message)
	}

	if hook == coreevents.PreToolUse {
		for _, res := range results {
			if res.Action == events.ActionModify && res.ModifiedPayload != nil {
				return &corehooks.HookOutput{
					Continue: boolPtr(true),
					HookSpecificOutput: &corehooks.HookSpecificOutput{
						HookEventName: string(hook),
						UpdatedInput:  res.ModifiedPayload,
					},
				}
			}
		}
	}

	return continueOutput()
}

func continueOutput() *corehooks.HookOutput {
	return &corehooks.HookOutput{Continue: boolPtr(true)}
}

func stopOutput(reason string) *corehooks.HookOutput {
	return &corehooks.HookOutput{Continue: boolPtr(false), StopReason: reason}
}

func boolPtr(v bool) *bool { return &v }

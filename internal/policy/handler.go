package policy

import (
	"context"
	"fmt"

	"github.com/stellarlinkco/agentrelay/internal/events"
	"github.com/stellarlinkco/agentrelay/internal/registry"
)

// Source yields the policy to evaluate against. A Watcher's Current method
// satisfies it; so does a closure over a fixed policy.
type Source func() *Policy

// Fixed wraps an immutable policy as a Source.
func Fixed(p *Policy) Source {
	return func() *Policy { return p }
}

// Handler adapts policy evaluation to the event registry. Register it on the
// "permission:request" type; it ignores events without a PermissionPayload.
func Handler(src Source) registry.Handler {
	return func(ctx context.Context, ev *events.AgentEvent) (*events.EventResult, error) {
		req, ok := ev.Payload.(events.PermissionPayload)
		if !ok {
			if ptr, isPtr := ev.Payload.(*events.PermissionPayload); isPtr {
				req = *ptr
			} else {
				return nil, nil
			}
		}

		verdict := Evaluate(src(), req)
		switch verdict {
		case Allow:
			return &events.EventResult{Action: events.ActionAllow}, nil
		case Deny:
			return &events.EventResult{
				Action:  events.ActionDeny,
				Message: fmt.Sprintf("policy denies %s", describeRequest(req)),
			}, nil
		default:
			return &events.EventResult{
				Action:  events.ActionAsk,
				Message: fmt.Sprintf("confirmation required for %s", describeRequest(req)),
			}, nil
		}
	}
}

func describeRequest(req events.PermissionPayload) string {
	switch {
	case req.Command != "":
		return fmt.Sprintf("command %q", req.Command)
	case req.FilePath != "":
		return fmt.Sprintf("%s on %s", req.ToolName, req.FilePath)
	default:
		return fmt.Sprintf("tool %s", req.ToolName)
	}
}

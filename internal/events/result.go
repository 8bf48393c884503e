package events

// ResultAction is what a handler wants done with the event it just saw.
type ResultAction string

const (
	ActionAllow    ResultAction = "allow"
	ActionDeny     ResultAction = "deny"
	ActionContinue ResultAction = "continue"
	ActionModify   ResultAction = "modify"
	ActionAsk      ResultAction = "ask"
)

// EventResult is produced fresh per handler invocation and never persisted.
// ModifiedPayload is only meaningful with ActionModify.
type EventResult struct {
	Action          ResultAction   `json:"action"`
	Message         string         `json:"message,omitempty"`
	ModifiedPayload map[string]any `json:"modifiedPayload,omitempty"`
}

// Continue is the neutral result used when a handler has no opinion.
func Continue() EventResult {
	return EventResult{Action: ActionContinue}
}

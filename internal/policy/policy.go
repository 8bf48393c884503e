// Package policy decides whether a requested tool, command, or file
// operation is allowed, denied, or needs human confirmation. Evaluation is a
// pure function over an immutable declarative policy; nothing in this
// package executes anything.
package policy

// Action is a permission verdict.
type Action string

const (
	Allow Action = "allow"
	Deny  Action = "deny"
	Ask   Action = "ask"
)

// CommandRule matches a shell command against a glob pattern. Patterns are
// compiled to anchored, case-insensitive regular expressions where "*"
// becomes ".*" and "?" becomes ".". Rules are checked in list order; the
// first match wins.
type CommandRule struct {
	Pattern string `json:"pattern"`
	Action  Action `json:"action"`
	Reason  string `json:"reason,omitempty"`
}

// ToolRules lists tool names by verdict. Denied is checked before Allowed.
type ToolRules struct {
	Allowed []string `json:"allowed,omitempty"`
	Denied  []string `json:"denied,omitempty"`
}

// CommandRules holds ordered glob rule lists for shell commands.
type CommandRules struct {
	Allowed []CommandRule `json:"allowed,omitempty"`
	Denied  []CommandRule `json:"denied,omitempty"`
}

// PathRules holds glob lists for file operations. Globs support "**" for
// matching across path separators.
type PathRules struct {
	Writable  []string `json:"writable,omitempty"`
	Protected []string `json:"protected,omitempty"`
}

// Policy is the declarative permission configuration. It is immutable once
// loaded; Merge produces a new policy rather than mutating either input.
type Policy struct {
	Tools         ToolRules    `json:"tools,omitempty"`
	Commands      CommandRules `json:"commands,omitempty"`
	Paths         PathRules    `json:"paths,omitempty"`
	DefaultAction Action       `json:"defaultAction,omitempty"`
}

// Merge unions two policies. The override's scalar fields win when set; list
// fields are deduplicated unions with the base's entries first.
func Merge(base, override *Policy) *Policy {
	if base == nil && override == nil {
		return &Policy{}
	}
	if base == nil {
		base = &Policy{}
	}
	if override == nil {
		override = &Policy{}
	}

	merged := &Policy{
		Tools: ToolRules{
			Allowed: unionStrings(base.Tools.Allowed, override.Tools.Allowed),
			Denied:  unionStrings(base.Tools.Denied, override.Tools.Denied),
		},
		Commands: CommandRules{
			Allowed: unionRules(base.Commands.Allowed, override.Commands.Allowed),
			Denied:  unionRules(base.Commands.Denied, override.Commands.Denied),
		},
		Paths: PathRules{
			Writable:  unionStrings(base.Paths.Writable, override.Paths.Writable),
			Protected: unionStrings(base.Paths.Protected, override.Paths.Protected),
		},
		DefaultAction: base.DefaultAction,
	}
	if override.DefaultAction != "" {
		merged.DefaultAction = override.DefaultAction
	}
	return merged
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func unionRules(a, b []CommandRule) []CommandRule {
	seen := make(map[string]bool, len(a)+len(b))
	var out []CommandRule
	for _, r := range append(append([]CommandRule{}, a...), b...) {
		key := r.Pattern + "\x00" + string(r.Action)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

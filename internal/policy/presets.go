package policy

// Preset names accepted in configuration.
const (
	PresetPermissive  = "permissive"
	PresetRestrictive = "restrictive"
	PresetInteractive = "interactive"
	PresetReadOnly    = "readOnly"
	PresetDevelopment = "development"
)

var readSearchTools = []string{"Read", "Glob", "Grep", "LS", "NotebookRead", "WebSearch", "WebFetch", "TodoRead"}

// Presets are the fixed named policies. Callers must treat them as
// immutable; Merge copies, it never mutates.
var Presets = map[string]*Policy{
	// Everything goes unless it trips the built-in dangerous list; the only
	// explicit rule keeps privilege escalation out even here.
	PresetPermissive: {
		Commands: CommandRules{
			Denied: []CommandRule{
				{Pattern: "sudo *", Action: Deny, Reason: "privilege escalation"},
			},
		},
		DefaultAction: Allow,
	},

	// Deny by default; only non-destructive inspection tools pass.
	PresetRestrictive: {
		Tools: ToolRules{
			Allowed: []string{"Read", "Glob", "Grep", "LS"},
		},
		DefaultAction: Deny,
	},

	// The fallback when a workspace ships no policy file: inspection is
	// free, everything consequential asks a human.
	PresetInteractive: {
		Tools: ToolRules{
			Allowed: readSearchTools,
		},
		Commands: CommandRules{
			Denied: []CommandRule{
				{Pattern: "rm -rf *", Action: Deny, Reason: "recursive forced delete"},
				{Pattern: "sudo *", Action: Deny, Reason: "privilege escalation"},
			},
		},
		DefaultAction: Ask,
	},

	PresetReadOnly: {
		Tools: ToolRules{
			Allowed: readSearchTools,
			Denied:  []string{"Write", "Edit", "MultiEdit", "NotebookEdit", "Bash"},
		},
		DefaultAction: Deny,
	},

	// Day-to-day coding: read/search tools unconditional, the usual build
	// and VCS commands free, dependency installation confirmed by a human,
	// the destructive classics shut out before any allow rule is read.
	PresetDevelopment: {
		Tools: ToolRules{
			Allowed: readSearchTools,
		},
		Commands: CommandRules{
			Denied: []CommandRule{
				{Pattern: "rm -rf *", Action: Deny, Reason: "recursive forced delete"},
				{Pattern: "sudo *", Action: Deny, Reason: "privilege escalation"},
			},
			Allowed: []CommandRule{
				{Pattern: "npm install*", Action: Ask, Reason: "adds dependencies"},
				{Pattern: "git *", Action: Allow},
				{Pattern: "npm run *", Action: Allow},
				{Pattern: "npm test*", Action: Allow},
				{Pattern: "ls *", Action: Allow},
				{Pattern: "cat *", Action: Allow},
			},
		},
		Paths: PathRules{
			Protected: []string{"**/.env", "**/.env.*", "**/secrets/**", "**/.git/**"},
		},
		DefaultAction: Ask,
	},
}

// Preset returns the named preset, falling back to interactive for unknown
// names so a typo in configuration degrades to asking rather than allowing.
func Preset(name string) *Policy {
	if p, ok := Presets[name]; ok {
		return p
	}
	return Presets[PresetInteractive]
}

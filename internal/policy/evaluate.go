package policy

import (
	"regexp"
	"strings"
	"sync"

	"github.com/stellarlinkco/agentrelay/internal/adapter"
	"github.com/stellarlinkco/agentrelay/internal/events"
)

// Evaluate decides a permission request against a policy. It is a pure,
// synchronous function safe for unsynchronized concurrent use and it never
// errors: an unmatched request falls through to the policy's default action
// (Ask when unset).
//
// Precedence, first verdict wins:
//
//  1. tool name in Tools.Denied
//  2. tool name in Tools.Allowed, unless a command rides on a shell-class tool
//  3. Commands.Denied rules, in list order
//  4. built-in dangerous command patterns (always deny, not overridable)
//  5. Commands.Allowed rules, in list order (rules may mandate ask)
//  6. built-in safe command patterns, unless DefaultAction is deny
//  7. Paths.Protected (ask) then Paths.Writable (allow)
//  8. DefaultAction
//
// Deny checks, explicit and built-in, run before any allow rule is honored:
// an allow-list glob like "git *" must not slip "git push --force" past the
// dangerous-command list.
func Evaluate(p *Policy, req events.PermissionPayload) Action {
	if p == nil {
		p = &Policy{}
	}

	for _, name := range p.Tools.Denied {
		if name == req.ToolName {
			return Deny
		}
	}

	command := strings.TrimSpace(req.Command)

	for _, name := range p.Tools.Allowed {
		if name != req.ToolName {
			continue
		}
		if command == "" || adapter.Categorize(req.ToolName) != events.ToolShell {
			return Allow
		}
	}

	if command != "" {
		for _, rule := range p.Commands.Denied {
			if matchCommand(rule.Pattern, command) {
				return ruleAction(rule)
			}
		}
		if isDangerousCommand(command) {
			return Deny
		}
		for _, rule := range p.Commands.Allowed {
			if matchCommand(rule.Pattern, command) {
				return ruleAction(rule)
			}
		}
		if p.DefaultAction != Deny && isSafeCommand(command) {
			return Allow
		}
	}

	if req.FilePath != "" {
		for _, glob := range p.Paths.Protected {
			if matchPath(glob, req.FilePath) {
				return Ask
			}
		}
		for _, glob := range p.Paths.Writable {
			if matchPath(glob, req.FilePath) {
				return Allow
			}
		}
	}

	if p.DefaultAction != "" {
		return p.DefaultAction
	}
	return Ask
}

func ruleAction(rule CommandRule) Action {
	if rule.Action == "" {
		return Deny
	}
	return rule.Action
}

var commandPatternCache sync.Map // pattern string -> *regexp.Regexp

// matchCommand compiles a command glob to an anchored, case-insensitive
// regexp ("*" -> ".*", "?" -> ".") and tests the command against it.
func matchCommand(pattern, command string) bool {
	if cached, ok := commandPatternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp).MatchString(command)
	}
	re, err := regexp.Compile("(?i)^" + globToRegexp(pattern, false) + "$")
	if err != nil {
		return false
	}
	commandPatternCache.Store(pattern, re)
	return re.MatchString(command)
}

var pathPatternCache sync.Map

// matchPath tests a file path against a glob that supports "**" for
// crossing path separators; a single "*" or "?" stops at "/".
func matchPath(pattern, path string) bool {
	if cached, ok := pathPatternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp).MatchString(path)
	}
	re, err := regexp.Compile("^" + globToRegexp(pattern, true) + "$")
	if err != nil {
		return false
	}
	pathPatternCache.Store(pattern, re)
	return re.MatchString(path)
}

// globToRegexp translates a glob into regexp source. With pathMode, "*" and
// "?" refuse to cross "/" and "**" matches anything including separators.
func globToRegexp(glob string, pathMode bool) string {
	var sb strings.Builder
	for i := 0; i < len(glob); i++ {
		c := glob[i]
		switch c {
		case '*':
			if pathMode {
				if i+1 < len(glob) && glob[i+1] == '*' {
					sb.WriteString(".*")
					i++
					// Swallow a separator after "**" so "a/**/b" also
					// matches "a/b".
					if i+1 < len(glob) && glob[i+1] == '/' {
						sb.WriteString("/?")
						i++
					}
					continue
				}
				sb.WriteString("[^/]*")
			} else {
				sb.WriteString(".*")
			}
		case '?':
			if pathMode {
				sb.WriteString("[^/]")
			} else {
				sb.WriteString(".")
			}
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return sb.String()
}

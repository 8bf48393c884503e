package policy

import "regexp"

// Built-in command pattern lists. The dangerous list is consulted on every
// evaluation and cannot be overridden by a policy's allow rules; the safe
// list is skipped entirely when the policy's default action is deny.

var dangerousCommandPatterns = []*regexp.Regexp{
	// Recursive deletes anchored at root-ish paths.
	regexp.MustCompile(`(?i)\brm\s+(-[a-z]*r[a-z]*f|-[a-z]*f[a-z]*r|-r\s+-f|-f\s+-r)\s+(/(\s|$|[a-z*])|~|\$HOME)`),
	regexp.MustCompile(`(?i)\brm\s+(-[a-z]*r[a-z]*f|-[a-z]*f[a-z]*r)\s+\*`),
	// Privilege escalation.
	regexp.MustCompile(`(?i)^\s*(sudo|su|doas)\b`),
	// Destructive permission/ownership sweeps.
	regexp.MustCompile(`(?i)\bchmod\s+(-[a-z]*R[a-z]*\s+)?(000|777)\s+/`),
	regexp.MustCompile(`(?i)\bchmod\s+-[a-z]*R\b`),
	regexp.MustCompile(`(?i)\bchown\s+-[a-z]*R\b.*\b(root|/)\b`),
	// Raw device writes.
	regexp.MustCompile(`(?i)\bdd\b.*\bof=/dev/`),
	regexp.MustCompile(`(?i)\bmkfs(\.[a-z0-9]+)?\b`),
	regexp.MustCompile(`>\s*/dev/(sd|hd|nvme|disk)`),
	// Piping a download straight into a shell.
	regexp.MustCompile(`(?i)\b(curl|wget)\b[^|;]*\|\s*(ba|z|da|fi)?sh\b`),
	// Forced git operations that rewrite shared history.
	regexp.MustCompile(`(?i)\bgit\s+push\b.*(\s--force\b|\s-f\b)`),
	regexp.MustCompile(`(?i)\bgit\s+reset\s+--hard\b`),
	regexp.MustCompile(`(?i)\bgit\s+clean\s+-[a-z]*f`),
	// Killing processes by signal.
	regexp.MustCompile(`(?i)\b(kill|pkill|killall)\s+(-9|-KILL|-SIGKILL)\b`),
}

var safeCommandPatterns = []*regexp.Regexp{
	// Read-only git.
	regexp.MustCompile(`(?i)^git\s+(status|log|diff|show|branch|remote|blame|describe|stash\s+list)\b`),
	// Listing, reading and searching.
	regexp.MustCompile(`(?i)^(ls|tree|cat|head|tail|less|more|wc|file|stat|du|df)\b`),
	regexp.MustCompile(`(?i)^(grep|rg|ag|find|fd|locate)\b`),
	// Environment and identity introspection.
	regexp.MustCompile(`(?i)^(pwd|whoami|hostname|uname|id|date|uptime|which|whereis|type|env|printenv|echo)\b`),
	regexp.MustCompile(`(?i)^ps\b`),
	// Package listing, not installation.
	regexp.MustCompile(`(?i)^(npm|pnpm|yarn)\s+(ls|list|outdated|view|info|audit|why)\b`),
	regexp.MustCompile(`(?i)^pip3?\s+(list|show|freeze)\b`),
	regexp.MustCompile(`(?i)^(apt|apt-get|apt-cache|brew|dnf|yum)\s+(list|info|search|show)\b`),
	regexp.MustCompile(`(?i)^go\s+(version|env|list)\b`),
	regexp.MustCompile(`(?i)^cargo\s+(tree|metadata|--version)\b`),
}

func isDangerousCommand(command string) bool {
	for _, re := range dangerousCommandPatterns {
		if re.MatchString(command) {
			return true
		}
	}
	return false
}

func isSafeCommand(command string) bool {
	for _, re := range safeCommandPatterns {
		if re.MatchString(command) {
			return true
		}
	}
	return false
}

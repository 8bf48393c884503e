// Package bootstrap produces the environment contract and hook script for
// orchestrator-managed terminals. CLI agents spawned in those terminals
// cannot call back in-process, so the script reports lifecycle events to
// the sideband server over HTTP.
package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variable names injected into every managed terminal.
const (
	EnvMarker     = "AGENTRELAY_ACTIVE"
	EnvTerminalID = "AGENTRELAY_TERMINAL_ID"
	EnvWorkspace  = "AGENTRELAY_WORKSPACE"
	EnvGitBranch  = "AGENTRELAY_GIT_BRANCH"
	EnvAgentID    = "AGENTRELAY_AGENT_ID"
	EnvPort       = "AGENTRELAY_PORT"

	// MarkerValue gates the hook script. Without it the script is a no-op,
	// so sourcing it in an ordinary terminal is harmless.
	MarkerValue = "1"
)

// ScriptName is the file name the hook script is written under.
const ScriptName = "agentrelay-hook.sh"

// TerminalEnv is the per-terminal identity baked into the environment.
type TerminalEnv struct {
	TerminalID    string
	WorkspacePath string
	GitBranch     string
	AgentID       string
	Port          int
}

// Environ renders the contract as KEY=value pairs suitable for appending
// to a child process environment. The git branch entry is omitted entirely
// when the workspace is not a git repository; consumers treat absence as
// unknown rather than as an error.
func (e TerminalEnv) Environ() []string {
	env := []string{
		EnvMarker + "=" + MarkerValue,
		EnvTerminalID + "=" + e.TerminalID,
		EnvWorkspace + "=" + e.WorkspacePath,
		EnvAgentID + "=" + e.AgentID,
		fmt.Sprintf("%s=%d", EnvPort, e.Port),
	}
	if e.GitBranch != "" {
		env = append(env, EnvGitBranch+"="+e.GitBranch)
	}
	return env
}

// Script returns the POSIX hook script. The script resolves everything
// from the environment at run time, so the same text works for every
// terminal. Contract: no-op without the marker variable, event name from
// $1 or piped JSON, jq merge when available, fire-and-forget curl with a
// one second ceiling, always exits 0.
func Script() string {
	return hookScript
}

// WriteScript writes the hook script at dir/ScriptName with the execute
// bit set and returns the full path.
func WriteScript(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, ScriptName)
	if err := os.WriteFile(path, []byte(hookScript), 0755); err != nil {
		return "", err
	}
	return path, nil
}

const hookScript = `#!/bin/sh
# agentrelay terminal hook. Reports agent lifecycle events to the local
# sideband server. Inert unless the terminal was provisioned by agentrelay.

[ "$AGENTRELAY_ACTIVE" = "1" ] || exit 0
[ -n "$AGENTRELAY_PORT" ] || exit 0

EVENT="$1"
BODY=""
if [ -z "$EVENT" ] && [ ! -t 0 ]; then
    BODY=$(cat 2>/dev/null)
    EVENT=$(printf '%s' "$BODY" | sed -n 's/.*"hook_event_name"[[:space:]]*:[[:space:]]*"\([^"]*\)".*/\1/p')
fi
[ -n "$EVENT" ] || exit 0

SESSION="${CLAUDE_SESSION_ID:-$AGENTRELAY_TERMINAL_ID}"
PAYLOAD=$(printf '{"terminalId":"%s","workspacePath":"%s","gitBranch":"%s","sessionId":"%s","agentId":"%s","eventType":"%s"}' \
    "$AGENTRELAY_TERMINAL_ID" "$AGENTRELAY_WORKSPACE" "$AGENTRELAY_GIT_BRANCH" \
    "$SESSION" "$AGENTRELAY_AGENT_ID" "$EVENT")

# Fold vendor fields from piped JSON into the report when jq is present.
if [ -n "$BODY" ] && command -v jq >/dev/null 2>&1; then
    MERGED=$(printf '%s\n%s' "$BODY" "$PAYLOAD" | jq -c -s '.[0] * .[1]' 2>/dev/null)
    [ -n "$MERGED" ] && PAYLOAD="$MERGED"
fi

# Fire and forget. A slow or missing server must never delay the agent.
( curl -s -o /dev/null --connect-timeout 1 --max-time 1 \
    -X POST -H 'Content-Type: application/json' \
    -d "$PAYLOAD" \
    "http://127.0.0.1:${AGENTRELAY_PORT}/hook" >/dev/null 2>&1 & ) 2>/dev/null

exit 0
`

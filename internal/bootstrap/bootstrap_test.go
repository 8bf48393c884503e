package bootstrap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnvironIncludesContract(t *testing.T) {
	env := TerminalEnv{
		TerminalID:    "term-1",
		WorkspacePath: "/home/dev/project",
		GitBranch:     "main",
		AgentID:       "agent-1",
		Port:          4710,
	}.Environ()

	want := []string{
		"AGENTRELAY_ACTIVE=1",
		"AGENTRELAY_TERMINAL_ID=term-1",
		"AGENTRELAY_WORKSPACE=/home/dev/project",
		"AGENTRELAY_AGENT_ID=agent-1",
		"AGENTRELAY_PORT=4710",
		"AGENTRELAY_GIT_BRANCH=main",
	}
	for _, w := range want {
		found := false
		for _, e := range env {
			if e == w {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Environ() missing %q, got %v", w, env)
		}
	}
}

func TestEnvironOmitsBranchOutsideRepo(t *testing.T) {
	env := TerminalEnv{
		TerminalID:    "term-1",
		WorkspacePath: "/tmp/scratch",
		AgentID:       "agent-1",
		Port:          4710,
	}.Environ()

	for _, e := range env {
		if strings.HasPrefix(e, EnvGitBranch+"=") {
			t.Errorf("Environ() should omit %s outside a git repo, got %q", EnvGitBranch, e)
		}
	}
}

func TestScriptContract(t *testing.T) {
	script := Script()

	if !strings.HasPrefix(script, "#!/bin/sh\n") {
		t.Error("script must carry a POSIX shebang")
	}
	// Inert without the marker, never fails the caller.
	if !strings.Contains(script, `[ "$AGENTRELAY_ACTIVE" = "1" ] || exit 0`) {
		t.Error("script must no-op without the marker variable")
	}
	if !strings.HasSuffix(strings.TrimSpace(script), "exit 0") {
		t.Error("script must always exit 0")
	}
	// Event name from $1 with a stdin JSON fallback.
	if !strings.Contains(script, `EVENT="$1"`) || !strings.Contains(script, "hook_event_name") {
		t.Error("script must read the event from $1 or piped JSON")
	}
	// jq merge only when available.
	if !strings.Contains(script, "command -v jq") {
		t.Error("script must gate the JSON merge on jq being present")
	}
	// Short timeouts, detached delivery.
	if !strings.Contains(script, "--connect-timeout 1") || !strings.Contains(script, "--max-time 1") {
		t.Error("script must bound the network call to about one second")
	}
	if !strings.Contains(script, "& ) 2>/dev/null") {
		t.Error("script must background the network call")
	}
	if !strings.Contains(script, "/hook") {
		t.Error("script must post to the sideband hook endpoint")
	}
}

func TestWriteScript(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteScript(filepath.Join(dir, "nested"))
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0100 == 0 {
		t.Errorf("script mode = %v, want execute bit", info.Mode())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != Script() {
		t.Error("written script differs from Script()")
	}
}

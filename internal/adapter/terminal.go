package adapter

import (
	"regexp"
	"strings"

	"github.com/stellarlinkco/agentrelay/internal/events"
)

// TerminalSource is the marker stored in Raw["source"] on every event
// produced by terminal-output scraping, so consumers can distinguish the
// low-confidence scraped stream from structured hook events.
const TerminalSource = "terminal"

type terminalPattern struct {
	re    *regexp.Regexp
	build func(match []string, ctx events.Context, line string) *events.AgentEvent
}

// scanTerminal runs every pattern over each line of text and collects the
// produced events in line order. At most one pattern fires per line; the
// pattern lists are ordered most-specific first.
func scanTerminal(text string, ctx events.Context, patterns []terminalPattern) []*events.AgentEvent {
	var out []*events.AgentEvent
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(stripANSI(line))
		if line == "" {
			continue
		}
		for _, p := range patterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if ev := p.build(m, ctx, line); ev != nil {
				out = append(out, ev)
			}
			break
		}
	}
	return out
}

func terminalEvent(typ string, ctx events.Context, payload events.Payload, line string) *events.AgentEvent {
	return events.New(typ, ctx, payload, map[string]any{
		"source": TerminalSource,
		"line":   line,
	})
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)

func stripANSI(s string) string {
	if !strings.Contains(s, "\x1b") {
		return s
	}
	return ansiEscape.ReplaceAllString(s, "")
}

package adapter

import (
	"strings"

	"github.com/stellarlinkco/agentrelay/internal/events"
)

// toolKeywords drives the shared tool classifier. The first category whose
// keyword list contains a substring of the lowercased tool name wins, in the
// order listed here.
var toolKeywords = []struct {
	category events.ToolCategory
	keywords []string
}{
	{events.ToolFileRead, []string{"read", "cat", "view", "open_file"}},
	{events.ToolFileWrite, []string{"write", "edit", "create", "patch", "apply"}},
	{events.ToolFileSearch, []string{"glob", "grep", "search", "find", "list"}},
	{events.ToolShell, []string{"bash", "shell", "exec", "command", "terminal"}},
	{events.ToolWeb, []string{"web", "fetch", "http", "browser", "url"}},
	{events.ToolCodeIntel, []string{"lsp", "definition", "references", "symbol", "diagnostic", "hover"}},
	{events.ToolMCP, []string{"mcp"}},
}

// Categorize maps a tool name to its coarse category by case-insensitive
// keyword containment. Unmatched names classify as unknown rather than
// erroring; classification is a display/policy heuristic, not a gate.
func Categorize(toolName string) events.ToolCategory {
	name := strings.ToLower(toolName)
	if name == "" {
		return events.ToolUnknown
	}
	// "ls" is too short for containment matching without swallowing every
	// name that happens to contain the pair ("lsp_...", "tools").
	if name == "ls" || name == "dir" {
		return events.ToolFileSearch
	}
	for _, group := range toolKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(name, kw) {
				return group.category
			}
		}
	}
	return events.ToolUnknown
}

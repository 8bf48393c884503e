package events

// Payload is the closed union of per-category payload shapes. Exactly one
// payload type exists per category; consumers switch exhaustively on the
// concrete type so a new category is a compile-time-visible change.
type Payload interface {
	PayloadCategory() Category
}

// OutputType classifies agent output content.
type OutputType string

const (
	OutputText      OutputType = "text"
	OutputThinking  OutputType = "thinking"
	OutputReasoning OutputType = "reasoning"
	OutputCode      OutputType = "code"
)

// ToolStatus tracks a tool invocation through its lifecycle.
type ToolStatus string

const (
	ToolPending ToolStatus = "pending"
	ToolRunning ToolStatus = "running"
	ToolSuccess ToolStatus = "success"
	ToolError   ToolStatus = "error"
)

// ToolCategory is the coarse classification produced by the shared tool
// classifier in the adapter package.
type ToolCategory string

const (
	ToolFileRead   ToolCategory = "file_read"
	ToolFileWrite  ToolCategory = "file_write"
	ToolFileSearch ToolCategory = "file_search"
	ToolShell      ToolCategory = "shell"
	ToolWeb        ToolCategory = "web"
	ToolCodeIntel  ToolCategory = "code_intel"
	ToolMCP        ToolCategory = "mcp"
	ToolUnknown    ToolCategory = "unknown"
)

// ContextOperation names a context-window maintenance operation.
type ContextOperation string

const (
	ContextCompact   ContextOperation = "compact"
	ContextSummarize ContextOperation = "summarize"
	ContextClear     ContextOperation = "clear"
)

// SystemLevel grades system messages.
type SystemLevel string

const (
	SystemInfo    SystemLevel = "info"
	SystemWarning SystemLevel = "warning"
	SystemError   SystemLevel = "error"
)

type SessionPayload struct {
	SessionID     string `json:"sessionId"`
	WorkspacePath string `json:"workspacePath,omitempty"`
	AgentVersion  string `json:"agentVersion,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

func (SessionPayload) PayloadCategory() Category { return CategorySession }

type UserInputPayload struct {
	Content  string   `json:"content"`
	HasFiles bool     `json:"hasFiles,omitempty"`
	FileRefs []string `json:"fileRefs,omitempty"`
}

func (UserInputPayload) PayloadCategory() Category { return CategoryUserInput }

type AgentOutputPayload struct {
	Content     string     `json:"content"`
	OutputType  OutputType `json:"outputType"`
	IsStreaming bool       `json:"isStreaming,omitempty"`
}

func (AgentOutputPayload) PayloadCategory() Category { return CategoryAgentOutput }

type ToolPayload struct {
	ToolName     string         `json:"toolName"`
	ToolCategory ToolCategory   `json:"toolCategory"`
	Input        map[string]any `json:"input,omitempty"`
	Output       string         `json:"output,omitempty"`
	Status       ToolStatus     `json:"status"`
	Duration     int64          `json:"duration,omitempty"` // milliseconds
	Error        string         `json:"error,omitempty"`
}

func (ToolPayload) PayloadCategory() Category { return CategoryTool }

type PermissionPayload struct {
	ToolName         string   `json:"toolName"`
	Command          string   `json:"command,omitempty"`
	Args             []string `json:"args,omitempty"`
	FilePath         string   `json:"filePath,omitempty"`
	WorkingDirectory string   `json:"workingDirectory,omitempty"`
	Reason           string   `json:"reason,omitempty"`
	Decision         string   `json:"decision,omitempty"`
	DecidedBy        string   `json:"decidedBy,omitempty"`
	RawPrompt        string   `json:"rawPrompt,omitempty"`
}

func (PermissionPayload) PayloadCategory() Category { return CategoryPermission }

type DelegationPayload struct {
	SubagentID   string `json:"subagentId"`
	SubagentType string `json:"subagentType,omitempty"`
	Task         string `json:"task,omitempty"`
	Transcript   string `json:"transcript,omitempty"`
}

func (DelegationPayload) PayloadCategory() Category { return CategoryDelegation }

type ContextPayload struct {
	Operation    ContextOperation `json:"operation"`
	TokensBefore int              `json:"tokensBefore,omitempty"`
	TokensAfter  int              `json:"tokensAfter,omitempty"`
}

func (ContextPayload) PayloadCategory() Category { return CategoryContext }

type SystemPayload struct {
	Level   SystemLevel `json:"level"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
}

func (SystemPayload) PayloadCategory() Category { return CategorySystem }

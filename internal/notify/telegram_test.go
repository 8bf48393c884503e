package notify

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/stellarlinkco/agentrelay/internal/events"
	"github.com/stellarlinkco/agentrelay/internal/registry"
)

type mockBot struct {
	sent    []tgbotapi.MessageConfig
	sendErr error
}

func (m *mockBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.sent = append(m.sent, msg)
	}
	if m.sendErr != nil {
		return tgbotapi.Message{}, m.sendErr
	}
	return tgbotapi.Message{}, nil
}

func (m *mockBot) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "relay_test_bot"}
}

func newTestForwarder(t *testing.T) (*TelegramForwarder, *mockBot) {
	t.Helper()
	bot := &mockBot{}
	f, err := NewTelegramForwarderWithFactory(
		TelegramConfig{Token: "test-token", ChatID: 42},
		func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
			return bot, nil
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	f.SetBot(bot)
	return f, bot
}

func permissionEvent() *events.AgentEvent {
	return events.New("permission:request", events.Context{
		AgentID:       "agent-1",
		SessionID:     "sess-1",
		WorkspacePath: "/home/dev/project",
		GitBranch:     "main",
	}, events.PermissionPayload{
		ToolName: "Bash",
		Command:  "rm -rf build",
	}, nil)
}

func TestConfigValidation(t *testing.T) {
	if _, err := NewTelegramForwarder(TelegramConfig{ChatID: 42}); err == nil {
		t.Error("expected error for missing token")
	}
	if _, err := NewTelegramForwarder(TelegramConfig{Token: "x"}); err == nil {
		t.Error("expected error for missing chat id")
	}
}

func TestHandlerForwardsPermissionRequest(t *testing.T) {
	f, bot := newTestForwarder(t)

	res, err := f.Handler()(context.Background(), permissionEvent())
	if err != nil {
		t.Fatal(err)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil (continue)", res)
	}
	if len(bot.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(bot.sent))
	}
	msg := bot.sent[0]
	if msg.ChatID != 42 {
		t.Errorf("ChatID = %d, want 42", msg.ChatID)
	}
	if !strings.Contains(msg.Text, "rm -rf build") || !strings.Contains(msg.Text, "Bash") {
		t.Errorf("message omits request details: %q", msg.Text)
	}
	if !strings.Contains(msg.Text, "/home/dev/project") {
		t.Errorf("message omits workspace: %q", msg.Text)
	}
}

func TestHandlerForwardsSystemError(t *testing.T) {
	f, bot := newTestForwarder(t)

	ev := events.New("system:error", events.Context{
		AgentID:       "agent-1",
		SessionID:     "sess-1",
		WorkspacePath: "/home/dev/project",
		GitBranch:     "main",
	}, events.SystemPayload{Level: events.SystemError, Message: "runtime exited unexpectedly"}, nil)

	if _, err := f.Handler()(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if len(bot.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(bot.sent))
	}
	if !strings.Contains(bot.sent[0].Text, "runtime exited unexpectedly") {
		t.Errorf("message omits error text: %q", bot.sent[0].Text)
	}
}

func TestHandlerIgnoresOtherTypes(t *testing.T) {
	f, bot := newTestForwarder(t)

	ev := events.New("tool:start", events.Context{
		AgentID:       "agent-1",
		SessionID:     "sess-1",
		WorkspacePath: "/home/dev/project",
		GitBranch:     "main",
	}, events.ToolPayload{ToolName: "Read", ToolCategory: events.ToolFileRead, Status: events.ToolRunning}, nil)

	if _, err := f.Handler()(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if len(bot.sent) != 0 {
		t.Errorf("sent %d messages for unrelated event, want 0", len(bot.sent))
	}
}

func TestSendFailureDoesNotError(t *testing.T) {
	f, bot := newTestForwarder(t)
	bot.sendErr = errors.New("telegram unreachable")

	res, err := f.Handler()(context.Background(), permissionEvent())
	if err != nil {
		t.Errorf("handler error = %v, want nil (delivery is best effort)", err)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
}

func TestEscapesHTML(t *testing.T) {
	f, bot := newTestForwarder(t)

	ev := permissionEvent()
	p := ev.Payload.(events.PermissionPayload)
	p.Command = "echo '<script>'"
	ev.Payload = p

	if _, err := f.Handler()(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(bot.sent[0].Text, "<script>") {
		t.Errorf("command not escaped: %q", bot.sent[0].Text)
	}
	if !strings.Contains(bot.sent[0].Text, "&lt;script&gt;") {
		t.Errorf("expected escaped command, got %q", bot.sent[0].Text)
	}
}

func TestRegisterSubscribesAndUnsubscribes(t *testing.T) {
	f, bot := newTestForwarder(t)
	reg := registry.New()

	unsub := f.Register(reg)
	reg.Emit(context.Background(), permissionEvent())
	if len(bot.sent) != 1 {
		t.Fatalf("sent %d messages after register, want 1", len(bot.sent))
	}

	unsub()
	reg.Emit(context.Background(), permissionEvent())
	if len(bot.sent) != 1 {
		t.Errorf("sent %d messages after unsubscribe, want still 1", len(bot.sent))
	}
}

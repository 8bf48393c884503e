// Package notify forwards noteworthy agent events to an operator over
// Telegram. It is a delivery sink only: forwarding never influences the
// decision flow, every handler result is a continue.
package notify

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/stellarlinkco/agentrelay/internal/events"
	"github.com/stellarlinkco/agentrelay/internal/registry"
)

// TelegramBot is the slice of the bot API the forwarder needs (allows
// mocking in tests).
type TelegramBot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetSelf() tgbotapi.User
}

type tgBotWrapper struct {
	bot *tgbotapi.BotAPI
}

func (w *tgBotWrapper) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return w.bot.Send(c)
}

func (w *tgBotWrapper) GetSelf() tgbotapi.User {
	return w.bot.Self
}

// BotFactory creates TelegramBot instances (allows mocking)
type BotFactory func(token, apiEndpoint string, client *http.Client) (TelegramBot, error)

var defaultBotFactory BotFactory = func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, client)
	if err != nil {
		return nil, err
	}
	return &tgBotWrapper{bot: bot}, nil
}

type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
	Proxy  string `json:"proxy,omitempty"`
}

// TelegramForwarder relays permission requests and system errors to a
// fixed operator chat.
type TelegramForwarder struct {
	cfg        TelegramConfig
	bot        TelegramBot
	botFactory BotFactory
}

func NewTelegramForwarder(cfg TelegramConfig) (*TelegramForwarder, error) {
	return NewTelegramForwarderWithFactory(cfg, defaultBotFactory)
}

// NewTelegramForwarderWithFactory creates a forwarder with a custom bot
// factory (for testing).
func NewTelegramForwarderWithFactory(cfg TelegramConfig, factory BotFactory) (*TelegramForwarder, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	return &TelegramForwarder{cfg: cfg, botFactory: factory}, nil
}

func (f *TelegramForwarder) Start() error {
	client := http.DefaultClient
	if f.cfg.Proxy != "" {
		proxyURL, err := url.Parse(f.cfg.Proxy)
		if err != nil {
			return fmt.Errorf("parse proxy url: %w", err)
		}
		client = &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}

	bot, err := f.botFactory(f.cfg.Token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}
	f.bot = bot
	log.Printf("[notify] telegram authorized as @%s", bot.GetSelf().UserName)
	return nil
}

// SetBot sets the bot (for testing)
func (f *TelegramForwarder) SetBot(bot TelegramBot) {
	f.bot = bot
}

// Register subscribes the forwarder to the event types it relays. The
// returned function removes both subscriptions.
func (f *TelegramForwarder) Register(reg *registry.Registry) func() {
	h := f.Handler()
	unsubPerm := reg.OnType("permission:request", h)
	unsubErr := reg.OnType("system:error", h)
	return func() {
		unsubPerm()
		unsubErr()
	}
}

// Handler returns the registry handler. Delivery failures are logged and
// swallowed; a broken notifier must not block the event chain.
func (f *TelegramForwarder) Handler() registry.Handler {
	return func(ctx context.Context, ev *events.AgentEvent) (*events.EventResult, error) {
		text := formatEvent(ev)
		if text == "" {
			return nil, nil
		}
		if err := f.send(text); err != nil {
			log.Printf("[notify] telegram send failed: %v", err)
		}
		return nil, nil
	}
}

func (f *TelegramForwarder) send(text string) error {
	if f.bot == nil {
		return fmt.Errorf("telegram bot not initialized")
	}

	msg := tgbotapi.NewMessage(f.cfg.ChatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := f.bot.Send(msg); err != nil {
		// Retry without HTML parse mode
		msg.ParseMode = ""
		if _, err2 := f.bot.Send(msg); err2 != nil {
			return fmt.Errorf("send telegram message: %w", err2)
		}
	}
	return nil
}

func formatEvent(ev *events.AgentEvent) string {
	switch ev.Type {
	case "permission:request":
		p, ok := permissionPayload(ev)
		if !ok {
			return ""
		}
		var b strings.Builder
		b.WriteString("<b>Permission request</b>\n")
		fmt.Fprintf(&b, "Tool: <code>%s</code>\n", escapeHTML(p.ToolName))
		if p.Command != "" {
			fmt.Fprintf(&b, "Command: <code>%s</code>\n", escapeHTML(p.Command))
		}
		if p.FilePath != "" {
			fmt.Fprintf(&b, "Path: <code>%s</code>\n", escapeHTML(p.FilePath))
		}
		fmt.Fprintf(&b, "Workspace: %s (%s)", escapeHTML(ev.WorkspacePath), escapeHTML(ev.GitBranch))
		return b.String()
	case "system:error":
		p, ok := ev.Payload.(*events.SystemPayload)
		if !ok {
			if v, okv := ev.Payload.(events.SystemPayload); okv {
				p = &v
				ok = true
			}
		}
		if !ok {
			return ""
		}
		return fmt.Sprintf("<b>Agent error</b>\n%s\nWorkspace: %s (%s)",
			escapeHTML(p.Message), escapeHTML(ev.WorkspacePath), escapeHTML(ev.GitBranch))
	default:
		return ""
	}
}

func permissionPayload(ev *events.AgentEvent) (events.PermissionPayload, bool) {
	switch p := ev.Payload.(type) {
	case events.PermissionPayload:
		return p, true
	case *events.PermissionPayload:
		return *p, true
	}
	return events.PermissionPayload{}, false
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

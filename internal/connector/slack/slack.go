package slackconn

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/relaydesk-io/relaydesk/internal/connector"
)

// Config holds Slack connector configuration.
type Config struct {
	BotToken string   // xoxb-... Bot User OAuth Token
	AppToken string   // xapp-... App-Level Token (for Socket Mode)
	Channels []string // Optional: only accept messages in these channels (empty = all)
}

// Connector implements connector.Connector for Slack via Socket Mode.
type Connector struct {
	api     *slack.Client
	socket  *socketmode.Client
	config  Config
	handler connector.InboundHandler
	logger  *slog.Logger
	cancel  context.CancelFunc
	botID   string

	mu    sync.Mutex
	names map[string]string // user ID → display name
}

// New creates a new Slack connector.
func New(cfg Config, handler connector.InboundHandler, logger *slog.Logger) (*Connector, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("slack: bot_token is required")
	}
	if cfg.AppToken == "" {
		return nil, fmt.Errorf("slack: app_token is required (Socket Mode)")
	}

	if logger == nil {
		logger = slog.Default()
	}

	api := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))

	// Test auth and get bot user ID
	authResp, err := api.AuthTest()
	if err != nil {
		return nil, fmt.Errorf("slack: auth test: %w", err)
	}

	logger.Info("slack bot authorized", "user", authResp.User, "team", authResp.Team)

	socket := socketmode.New(api)

	return &Connector{
		api:     api,
		socket:  socket,
		config:  cfg,
		handler: handler,
		logger:  logger,
		botID:   authResp.UserID,
		names:   make(map[string]string),
	}, nil
}

func (c *Connector) Name() string { return "slack" }

// Start begins listening for events via Socket Mode. Blocks until context is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	go c.handleEvents(ctx)

	c.logger.Info("slack connector started (socket mode)")
	return c.socket.RunContext(ctx)
}

// Stop gracefully shuts down the connector.
func (c *Connector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// Send delivers a message to a Slack channel. Markdown content is rendered
// to Slack's mrkdwn dialect; plain content goes out untouched.
func (c *Connector) Send(_ context.Context, msg connector.OutboundMessage) error {
	text := msg.Content
	if msg.Format == connector.FormatMarkdown {
		text = MarkdownToMrkdwn(text)
	}

	channel := msg.ChatID
	var opts []slack.MsgOption
	if ch, ts, ok := strings.Cut(msg.ChatID, ":"); ok {
		channel = ch
		opts = append(opts, slack.MsgOptionTS(ts))
	}
	opts = append(opts, slack.MsgOptionText(text, msg.Format == connector.FormatPlain))

	_, _, err := c.api.PostMessage(channel, opts...)
	if err != nil {
		return fmt.Errorf("slack: send message: %w", err)
	}
	return nil
}

func (c *Connector) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-c.socket.Events:
			if event.Type != socketmode.EventTypeEventsAPI {
				continue
			}
			eventsAPIEvent, ok := event.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			c.socket.Ack(*event.Request)

			switch ev := eventsAPIEvent.InnerEvent.Data.(type) {
			case *slackevents.MessageEvent:
				c.handleMessage(ctx, ev)
			case *slackevents.AppMentionEvent:
				c.handleMention(ctx, ev)
			}
		}
	}
}

func (c *Connector) handleMessage(ctx context.Context, ev *slackevents.MessageEvent) {
	// Ignore bot messages (including our own)
	if ev.BotID != "" || ev.User == "" || ev.User == c.botID {
		return
	}
	// Ignore message subtypes (edits, deletes, etc.)
	if ev.SubType != "" {
		return
	}
	if !c.isAllowedChannel(ev.Channel) {
		return
	}
	if ev.Text == "" {
		return
	}

	c.forward(ctx, ev.User, chatID(ev.Channel, ev.ThreadTimeStamp), ev.Text)
}

func (c *Connector) handleMention(ctx context.Context, ev *slackevents.AppMentionEvent) {
	if ev.User == c.botID {
		return
	}

	text := StripMention(ev.Text, c.botID)
	if text == "" {
		return
	}

	c.forward(ctx, ev.User, chatID(ev.Channel, ev.ThreadTimeStamp), text)
}

func (c *Connector) forward(ctx context.Context, user, chat, text string) {
	inbound := connector.InboundMessage{
		Channel:    "slack",
		SenderID:   user,
		SenderName: c.displayName(user),
		ChatID:     chat,
		Content:    text,
	}
	if err := c.handler(ctx, inbound); err != nil {
		c.logger.Error("slack inbound handler error",
			"chat", chat,
			"user", user,
			"error", err,
		)
	}
}

// displayName resolves a user ID to a human-readable name, cached for the
// connector's lifetime. Falls back to the raw ID on lookup failure.
func (c *Connector) displayName(userID string) string {
	c.mu.Lock()
	name, ok := c.names[userID]
	c.mu.Unlock()
	if ok {
		return name
	}

	name = userID
	if info, err := c.api.GetUserInfo(userID); err == nil {
		if info.RealName != "" {
			name = info.RealName
		} else if info.Name != "" {
			name = info.Name
		}
	}

	c.mu.Lock()
	c.names[userID] = name
	c.mu.Unlock()
	return name
}

func (c *Connector) isAllowedChannel(channel string) bool {
	if len(c.config.Channels) == 0 {
		return true
	}
	for _, ch := range c.config.Channels {
		if ch == channel {
			return true
		}
	}
	return false
}

// chatID groups thread replies under one chat: "channel:thread_ts" inside a
// thread, the bare channel otherwise.
func chatID(channel, threadTS string) string {
	if threadTS != "" {
		return channel + ":" + threadTS
	}
	return channel
}

// StripMention removes the <@BOTID> mention from message text.
func StripMention(text, botID string) string {
	mention := fmt.Sprintf("<@%s>", botID)
	text = strings.Replace(text, mention, "", 1)
	return strings.TrimSpace(text)
}

// MarkdownToMrkdwn converts the relay's Markdown subset to Slack's mrkdwn.
func MarkdownToMrkdwn(md string) string {
	result := convertEmphasis(md)
	result = convertLinks(result)
	return result
}

// convertEmphasis handles both bold (**text** → *text*) and italic (*text* → _text_)
// in a single pass, distinguishing the two by marker length.
func convertEmphasis(s string) string {
	var b strings.Builder
	inCode := false
	i := 0
	for i < len(s) {
		ch := s[i]
		if ch == '`' {
			inCode = !inCode
			b.WriteByte(ch)
			i++
		} else if ch == '*' && !inCode {
			if i+1 < len(s) && s[i+1] == '*' {
				b.WriteByte('*')
				i += 2
			} else {
				b.WriteByte('_')
				i++
			}
		} else {
			b.WriteByte(ch)
			i++
		}
	}
	return b.String()
}

// convertLinks converts [text](url) to <url|text>.
func convertLinks(s string) string {
	var b strings.Builder
	i := 0
	for i < len(s) {
		if s[i] == '[' {
			closeB := strings.Index(s[i:], "](")
			if closeB == -1 {
				b.WriteByte(s[i])
				i++
				continue
			}
			closeB += i
			closeP := strings.Index(s[closeB:], ")")
			if closeP == -1 {
				b.WriteByte(s[i])
				i++
				continue
			}
			closeP += closeB

			text := s[i+1 : closeB]
			url := s[closeB+2 : closeP]
			fmt.Fprintf(&b, "<%s|%s>", url, text)
			i = closeP + 1
		} else {
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String()
}

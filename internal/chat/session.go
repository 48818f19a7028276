// Package chat keeps a multi-turn conversation with the assistant on the
// client side.
package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"vibestack/internal/models"
)

const (
	Greeting = "Hello! I'm your AI assistant. How can I help you today?"
	Fallback = "Sorry, I ran into a problem. Please try again later."

	// quick replies are offered while the history is shorter than this
	quickReplyLimit = 5
)

var quickReplies = []string{
	"Help me plan a simple TODO app",
	"Explain the best practices for React hooks",
	"Help me find the performance bottleneck in this code",
}

var (
	ErrBusy  = errors.New("a reply is still pending")
	ErrEmpty = errors.New("message is empty")
)

// Chatter sends one chat turn. *client.Client satisfies it.
type Chatter interface {
	Chat(ctx context.Context, text string, history []models.Message) (string, error)
}

// Session is an ordered conversation. At most one call to the Chatter is in
// flight at a time.
type Session struct {
	chatter Chatter
	md      goldmark.Markdown

	mu       sync.Mutex
	messages []models.Message
	pending  bool
}

func NewSession(chatter Chatter) *Session {
	return &Session{
		chatter:  chatter,
		md:       goldmark.New(goldmark.WithExtensions(extension.GFM)),
		messages: []models.Message{{Role: models.RoleAssistant, Content: Greeting}},
	}
}

// Send appends text as a user message, asks for a reply with the earlier
// history as context, and appends exactly one assistant message: the reply
// or Fallback. The returned error is the Chatter's, after Fallback has been
// appended.
func (s *Session) Send(ctx context.Context, text string) (models.Message, error) {
	s.mu.Lock()
	if strings.TrimSpace(text) == "" {
		s.mu.Unlock()
		return models.Message{}, ErrEmpty
	}
	if s.pending {
		s.mu.Unlock()
		return models.Message{}, ErrBusy
	}
	history := append([]models.Message(nil), s.messages...)
	s.messages = append(s.messages, models.Message{Role: models.RoleUser, Content: text})
	s.pending = true
	s.mu.Unlock()

	reply, err := s.chatter.Chat(ctx, text, history)

	msg := models.Message{Role: models.RoleAssistant, Content: reply}
	if err != nil {
		msg.Content = Fallback
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.pending = false
	s.mu.Unlock()
	return msg, err
}

// Pending reports whether a reply is outstanding.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Messages returns a copy of the history.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.messages...)
}

// QuickReplies returns suggested prompts, or nil once the conversation has
// grown or while a reply is pending.
func (s *Session) QuickReplies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending || len(s.messages) >= quickReplyLimit {
		return nil
	}
	return append([]string(nil), quickReplies...)
}

// Render returns the history as HTML. Assistant messages are rendered as
// Markdown; user messages are escaped text.
func (s *Session) Render() (string, error) {
	msgs := s.Messages()
	var buf bytes.Buffer
	for _, m := range msgs {
		switch m.Role {
		case models.RoleAssistant:
			buf.WriteString(`<div class="message assistant"><div class="markdown-content">`)
			if err := s.md.Convert([]byte(m.Content), &buf); err != nil {
				return "", fmt.Errorf("render markdown: %w", err)
			}
			buf.WriteString("</div></div>\n")
		default:
			fmt.Fprintf(&buf, `<div class="message %s">%s</div>`+"\n", html.EscapeString(string(m.Role)), html.EscapeString(m.Content))
		}
	}
	return buf.String(), nil
}

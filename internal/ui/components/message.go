// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/quillchat/quill/internal/model"
	"github.com/quillchat/quill/internal/session"
	"github.com/quillchat/quill/internal/ui/styles"
	"github.com/quillchat/quill/internal/util"
)

// =============================================================================
// MESSAGE BUBBLE COMPONENT
// =============================================================================

// MessageBubble renders one transcript message.
type MessageBubble struct {
	Message model.Message
	Width   int

	// Rendered, when set, replaces the raw content as the assistant
	// message body. The chat view passes pre-rendered markdown here.
	Rendered string

	ShowTimestamp bool
	Streaming     bool

	theme *styles.Theme
}

// NewMessageBubble creates a bubble for the given message.
func NewMessageBubble(msg model.Message, theme *styles.Theme) *MessageBubble {
	return &MessageBubble{
		Message:   msg,
		Width:     80,
		Streaming: msg.Open,
		theme:     theme,
	}
}

// SetWidth sets the bubble width.
func (b *MessageBubble) SetWidth(width int) {
	b.Width = width
}

// View renders the message bubble.
func (b *MessageBubble) View() string {
	switch b.Message.Role {
	case model.RoleUser:
		return b.renderUser()
	case model.RoleAssistant:
		return b.renderAssistant()
	default:
		return b.Message.DisplayContent()
	}
}

func (b *MessageBubble) renderUser() string {
	content := b.Message.DisplayContent()
	if content == "" {
		content = "..."
	}

	maxContentWidth := b.contentWidth()
	wrapped := wordWrap(content, maxContentWidth)

	bubble := b.theme.UserBubble.Render(wrapped)
	header := b.header(b.theme.UserLabel.Render(b.Message.Role.DisplayName()))

	return lipgloss.JoinVertical(lipgloss.Left, header, bubble)
}

func (b *MessageBubble) renderAssistant() string {
	content := b.Rendered
	if content == "" {
		content = wordWrap(b.Message.DisplayContent(), b.contentWidth())
	}

	if b.Streaming {
		content += b.theme.Spinner.Render("_")
	}
	if strings.TrimSpace(content) == "" {
		content = "..."
	}

	// Failed turns carry the fixed error text; style them as errors.
	bubbleStyle := b.theme.AssistantBubble
	if b.Message.Content == session.ResponseErrorText {
		bubbleStyle = b.theme.ErrorBubble
	}

	bubble := bubbleStyle.Render(strings.TrimRight(content, "\n"))
	header := b.header(b.theme.AssistantLabel.Render(b.Message.Role.DisplayName()))

	return lipgloss.JoinVertical(lipgloss.Left, header, bubble)
}

// header combines the role label with an optional timestamp.
func (b *MessageBubble) header(label string) string {
	if !b.ShowTimestamp || b.Message.Timestamp.IsZero() {
		return label
	}
	return label + " " + b.theme.Timestamp.Render(formatClock(b.Message.Timestamp))
}

func (b *MessageBubble) contentWidth() int {
	w := b.Width - 6
	if w < 20 {
		w = 20
	}
	return w
}

// =============================================================================
// MESSAGE LIST COMPONENT
// =============================================================================

// MessageList renders the whole transcript.
type MessageList struct {
	Messages       []model.Message
	Width          int
	ShowTimestamps bool

	// RenderAssistant, when set, is applied to closed assistant message
	// content before display (markdown pipeline).
	RenderAssistant func(string) string

	// RenderStreaming, when set, is applied to the open assistant message
	// instead. It should be cheap; it runs on every refresh tick.
	RenderStreaming func(string) string

	theme *styles.Theme
}

// NewMessageList creates an empty message list.
func NewMessageList(theme *styles.Theme) *MessageList {
	return &MessageList{
		Width: 80,
		theme: theme,
	}
}

// SetMessages sets the messages to display.
func (ml *MessageList) SetMessages(messages []model.Message) {
	ml.Messages = messages
}

// SetWidth sets the list width.
func (ml *MessageList) SetWidth(width int) {
	ml.Width = width
}

// View renders all messages separated by blank lines.
func (ml *MessageList) View() string {
	if len(ml.Messages) == 0 {
		empty := lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Italic(true).
			Width(ml.Width).
			Align(lipgloss.Center).
			Padding(2, 0)
		return empty.Render("No messages yet. Type something to start.")
	}

	var bubbles []string
	for _, msg := range ml.Messages {
		bubble := NewMessageBubble(msg, ml.theme)
		bubble.SetWidth(ml.Width)
		bubble.ShowTimestamp = ml.ShowTimestamps

		if msg.Role == model.RoleAssistant {
			switch {
			case !msg.Open && ml.RenderAssistant != nil:
				bubble.Rendered = ml.RenderAssistant(msg.DisplayContent())
			case msg.Open && ml.RenderStreaming != nil:
				bubble.Rendered = ml.RenderStreaming(msg.DisplayContent())
			}
		}

		bubbles = append(bubbles, bubble.View())
	}

	return strings.Join(bubbles, "\n\n")
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// wordWrap wraps text to fit within the specified display width.
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	for lineIdx, line := range strings.Split(text, "\n") {
		if lineIdx > 0 {
			result.WriteString("\n")
		}

		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}

		currentLine := words[0]
		for _, word := range words[1:] {
			if util.StringWidth(currentLine)+1+util.StringWidth(word) <= width {
				currentLine += " " + word
			} else {
				result.WriteString(currentLine)
				result.WriteString("\n")
				currentLine = word
			}
		}
		result.WriteString(currentLine)
	}

	return result.String()
}

// formatClock formats a time as "3:04 PM" without fmt.
func formatClock(t time.Time) string {
	hour := t.Hour()
	minute := t.Minute()
	ampm := "AM"

	if hour >= 12 {
		ampm = "PM"
		if hour > 12 {
			hour -= 12
		}
	}
	if hour == 0 {
		hour = 12
	}

	minuteStr := itoa(minute)
	if minute < 10 {
		minuteStr = "0" + minuteStr
	}

	return itoa(hour) + ":" + minuteStr + " " + ampm
}

// itoa converts a small non-negative int to string without fmt.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

package notify

import (
	"context"
	"errors"
)

var (
	ErrRecipientOffline = errors.New("recipient has no open connection")
	ErrRecipientBusy    = errors.New("recipient send buffer is full")
)

// Button is an inline action attached to a message. Data is echoed back by
// the gateway when the user presses it.
type Button struct {
	Text string `json:"text"`
	Data string `json:"data,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Message is the envelope written to the chat gateway.
type Message struct {
	Type    string     `json:"type"`
	ChatID  int64      `json:"chat_id"`
	Text    string     `json:"text"`
	Buttons [][]Button `json:"buttons,omitempty"`
}

const TypeChatMessage = "CHAT_MESSAGE"

// Sender delivers one message to one user.
type Sender interface {
	Send(ctx context.Context, userID int64, msg Message) error
}

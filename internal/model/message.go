package model

import "time"

// MessageType distinguishes user and bot chat messages
type MessageType string

const (
	MessageUser MessageType = "user"
	MessageBot  MessageType = "bot"
)

// Message is one entry of the chat transcript. LinksResolved is set once
// the content has been run through the link grammar so it is never
// tokenized twice.
type Message struct {
	ID            int64       `json:"id"`
	Type          MessageType `json:"type"`
	Content       string      `json:"content"`
	RawContent    string      `json:"rawContent,omitempty"`
	LinksResolved bool        `json:"linksResolved"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// WelcomeMessage is the bot greeting every session starts with
const WelcomeMessage = "I can help you search properties, track market trends, set preferences, and answer legal questions. What would you like to know?"

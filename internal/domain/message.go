package domain

import "time"

// DeliveryStatus tracks the lifecycle of a locally-originated message.
type DeliveryStatus string

const (
	StatusSending   DeliveryStatus = "sending"
	StatusDelivered DeliveryStatus = "delivered"
	StatusFailed    DeliveryStatus = "failed"
)

// Message is a server-confirmed chat message. Messages are immutable and
// owned by the backend; the client never edits a confirmed message.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Content        string    `json:"content"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	Read           bool      `json:"read,omitempty"`
	ClientTag      string    `json:"clientTag,omitempty"` // correlation tag echoed by the server when supported
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt,omitempty"`
}

// LocalMessage is a client-only record of a send in flight. It is created
// the instant a user submits, mutated in place as the send resolves, and
// removed once a matching confirmed Message is observed.
type LocalMessage struct {
	TempID         string         `json:"tempId"`
	ConversationID string         `json:"conversationId"`
	SenderID       string         `json:"senderId"`
	Content        string         `json:"content"`
	ImageURL       string         `json:"imageUrl,omitempty"`
	ClientTag      string         `json:"clientTag"`
	Status         DeliveryStatus `json:"status"`
	Attempts       int            `json:"attempts"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// TypingSignal reports that a participant started or stopped typing.
type TypingSignal struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	IsTyping       bool   `json:"isTyping"`
}

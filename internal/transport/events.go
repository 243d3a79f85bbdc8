package transport

import "encoding/json"

// Push event names delivered by the server.
const (
	EventNewMessage = "new-message"
	EventTyping     = "typing"
)

// Commands emitted by the client over the push channel.
const (
	CmdJoinUserRoom      = "join-user-room"
	CmdJoinConversation  = "join-conversation"
	CmdLeaveConversation = "leave-conversation"
	CmdTyping            = "typing"
)

// Frame is the envelope for all push-channel traffic in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewFrame builds a frame with a marshaled payload.
func NewFrame(event string, payload any) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Data: raw}, nil
}

type joinUserRoomPayload struct {
	UserID string `json:"userId"`
}

type conversationRoomPayload struct {
	ConversationID string `json:"conversationId"`
}

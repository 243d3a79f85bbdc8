package transport

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/petwell/pawchat/internal/domain"
	"github.com/petwell/pawchat/internal/logging"
)

// MessageHandler receives server-pushed confirmed messages.
type MessageHandler func(msg domain.Message)

// TypingHandler receives typing signals.
type TypingHandler func(sig domain.TypingSignal)

// ConnHandler receives connection state transitions.
type ConnHandler func(connected bool)

type namedMessageHandler struct {
	name string
	fn   MessageHandler
}

type namedTypingHandler struct {
	name string
	fn   TypingHandler
}

type namedConnHandler struct {
	name string
	fn   ConnHandler
}

// Socket is the push half of the transport. It is a long-lived injected
// instance with an explicit lifecycle: Connect once per session, Close at
// logout. Connection state is informational only; the client degrades to
// pure polling when the socket is down.
type Socket struct {
	url string
	log *logging.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	userID    string

	onMessage []namedMessageHandler
	onTyping  []namedTypingHandler
	onConn    []namedConnHandler
}

// NewSocket creates a socket client for the given ws(s) URL.
func NewSocket(url string, log *logging.Logger) *Socket {
	return &Socket{url: url, log: log.Sub("socket")}
}

// Connect establishes the persistent connection scoped to the user and
// joins the user room so server-pushed events addressed to this user are
// received. Calling while already connected is a no-op.
func (s *Socket) Connect(ctx context.Context, userID string) error {
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return &NetworkError{Op: "socket connect", Err: err}
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.userID = userID
	s.mu.Unlock()

	if err := s.send(CmdJoinUserRoom, joinUserRoomPayload{UserID: userID}); err != nil {
		s.log.Warn().Err(err).Msg("join-user-room failed")
	}

	s.log.Info().Str("userId", userID).Msg("socket connected")
	s.emitConn(true)

	go s.readLoop(conn)
	return nil
}

// Connected reports whether the push connection is up. Used purely for
// status display; it never gates correctness.
func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// JoinConversation scopes push delivery to a conversation.
// No-op when not connected.
func (s *Socket) JoinConversation(conversationID string) {
	if !s.Connected() {
		return
	}
	if err := s.send(CmdJoinConversation, conversationRoomPayload{ConversationID: conversationID}); err != nil {
		s.log.Warn().Err(err).Str("conversationId", conversationID).Msg("join failed")
	}
}

// LeaveConversation undoes JoinConversation. No-op when not connected.
func (s *Socket) LeaveConversation(conversationID string) {
	if !s.Connected() {
		return
	}
	if err := s.send(CmdLeaveConversation, conversationRoomPayload{ConversationID: conversationID}); err != nil {
		s.log.Warn().Err(err).Str("conversationId", conversationID).Msg("leave failed")
	}
}

// Typing emits a typing signal for the active conversation.
// No-op when not connected.
func (s *Socket) Typing(conversationID string, isTyping bool) {
	if !s.Connected() {
		return
	}
	sig := domain.TypingSignal{ConversationID: conversationID, UserID: s.userID, IsTyping: isTyping}
	if err := s.send(CmdTyping, sig); err != nil {
		s.log.Debug().Err(err).Msg("typing signal failed")
	}
}

// OnNewMessage registers a named handler for new-message events.
// Registrations are additive.
func (s *Socket) OnNewMessage(name string, fn MessageHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMessage = append(s.onMessage, namedMessageHandler{name: name, fn: fn})
}

// OnTyping registers a named handler for typing events.
func (s *Socket) OnTyping(name string, fn TypingHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTyping = append(s.onTyping, namedTypingHandler{name: name, fn: fn})
}

// OnConnectionChange registers a named handler for connect/disconnect
// transitions.
func (s *Socket) OnConnectionChange(name string, fn ConnHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConn = append(s.onConn, namedConnHandler{name: name, fn: fn})
}

// Off removes only the handlers registered under the given name for the
// given event ("new-message", "typing", or "connection").
func (s *Socket) Off(event, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch event {
	case EventNewMessage:
		kept := s.onMessage[:0]
		for _, h := range s.onMessage {
			if h.name != name {
				kept = append(kept, h)
			}
		}
		s.onMessage = kept
	case EventTyping:
		kept := s.onTyping[:0]
		for _, h := range s.onTyping {
			if h.name != name {
				kept = append(kept, h)
			}
		}
		s.onTyping = kept
	case "connection":
		kept := s.onConn[:0]
		for _, h := range s.onConn {
			if h.name != name {
				kept = append(kept, h)
			}
		}
		s.onConn = kept
	}
}

// Close tears down the connection. Safe to call when not connected.
func (s *Socket) Close() error {
	s.mu.Lock()
	conn := s.conn
	wasConnected := s.connected
	s.conn = nil
	s.connected = false
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	if wasConnected {
		s.log.Info().Msg("socket closed")
		s.emitConn(false)
	}
	return err
}

func (s *Socket) send(event string, payload any) error {
	frame, err := NewFrame(event, payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return &NetworkError{Op: "socket send", Err: errClosed}
	}
	return s.conn.WriteJSON(frame)
}

func (s *Socket) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			stillCurrent := s.conn == conn
			if stillCurrent {
				s.conn = nil
				s.connected = false
			}
			s.mu.Unlock()
			if stillCurrent {
				s.log.Warn().Err(err).Msg("socket read failed, degrading to polling")
				s.emitConn(false)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.log.Debug().Err(err).Msg("dropping malformed frame")
			continue
		}
		s.dispatch(frame)
	}
}

// dispatch routes one inbound frame to the registered handlers.
func (s *Socket) dispatch(frame Frame) {
	switch frame.Event {
	case EventNewMessage:
		var msg domain.Message
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			s.log.Debug().Err(err).Msg("dropping malformed new-message payload")
			return
		}
		for _, h := range s.messageHandlers() {
			h.fn(msg)
		}
	case EventTyping:
		var sig domain.TypingSignal
		if err := json.Unmarshal(frame.Data, &sig); err != nil {
			s.log.Debug().Err(err).Msg("dropping malformed typing payload")
			return
		}
		for _, h := range s.typingHandlers() {
			h.fn(sig)
		}
	default:
		s.log.Debug().Str("event", frame.Event).Msg("ignoring unknown event")
	}
}

func (s *Socket) messageHandlers() []namedMessageHandler {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]namedMessageHandler, len(s.onMessage))
	copy(out, s.onMessage)
	return out
}

func (s *Socket) typingHandlers() []namedTypingHandler {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]namedTypingHandler, len(s.onTyping))
	copy(out, s.onTyping)
	return out
}

func (s *Socket) emitConn(connected bool) {
	s.mu.Lock()
	handlers := make([]namedConnHandler, len(s.onConn))
	copy(handlers, s.onConn)
	s.mu.Unlock()

	for _, h := range handlers {
		h.fn(connected)
	}
}

var errClosed = &closedError{}

type closedError struct{}

func (*closedError) Error() string { return "connection closed" }

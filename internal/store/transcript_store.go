package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/petwell/pawchat/internal/domain"
)

// TranscriptStore caches confirmed history per conversation so a chat view
// can render instantly and degrade gracefully while offline. Like the
// in-memory store, a conversation's cached messages are replaced wholesale
// on every successful fetch.
type TranscriptStore struct {
	db *DB
}

// NewTranscriptStore creates a transcript store using the given database.
func NewTranscriptStore(db *DB) *TranscriptStore {
	return &TranscriptStore{db: db}
}

// SaveConversation upserts conversation metadata.
func (s *TranscriptStore) SaveConversation(conv domain.Conversation) {
	var participants, lastMessage sql.NullString
	if len(conv.Participants) > 0 {
		if data, err := json.Marshal(conv.Participants); err == nil {
			participants = sql.NullString{String: string(data), Valid: true}
		}
	}
	if conv.LastMessage != nil {
		if data, err := json.Marshal(conv.LastMessage); err == nil {
			lastMessage = sql.NullString{String: string(data), Valid: true}
		}
	}

	closed := 0
	if conv.Closed {
		closed = 1
	}

	_, err := s.db.sql.Exec(
		`INSERT INTO conversations (id, appointment_id, clinic_id, closed, participants, last_message, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			closed = excluded.closed,
			participants = excluded.participants,
			last_message = excluded.last_message,
			updated_at = excluded.updated_at`,
		conv.ID, conv.AppointmentID, conv.ClinicID, closed, participants, lastMessage,
		conv.CreatedAt.UTC().Format(time.RFC3339Nano), conv.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		s.db.log.Error().Err(err).Str("conversation", conv.ID).Msg("failed to cache conversation")
	}
}

// Conversations returns all cached conversations, most recently updated first.
func (s *TranscriptStore) Conversations() []domain.Conversation {
	rows, err := s.db.sql.Query(
		`SELECT id, appointment_id, clinic_id, closed, participants, last_message, created_at, updated_at
		 FROM conversations ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		var closed int
		var participants, lastMessage sql.NullString
		var createdAt, updatedAt string

		if err := rows.Scan(&conv.ID, &conv.AppointmentID, &conv.ClinicID, &closed,
			&participants, &lastMessage, &createdAt, &updatedAt); err != nil {
			continue
		}
		conv.Closed = closed != 0
		if participants.Valid {
			_ = json.Unmarshal([]byte(participants.String), &conv.Participants)
		}
		if lastMessage.Valid {
			_ = json.Unmarshal([]byte(lastMessage.String), &conv.LastMessage)
		}
		conv.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		conv.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		convs = append(convs, conv)
	}
	return convs
}

// ReplaceMessages swaps a conversation's cached transcript for the latest
// fetched history.
func (s *TranscriptStore) ReplaceMessages(conversationID string, msgs []domain.Message) {
	tx, err := s.db.sql.Begin()
	if err != nil {
		s.db.log.Error().Err(err).Msg("failed to begin transcript replace")
		return
	}

	if _, err := tx.Exec(`DELETE FROM transcript_messages WHERE conversation_id = ?`, conversationID); err != nil {
		tx.Rollback()
		s.db.log.Error().Err(err).Str("conversation", conversationID).Msg("failed to clear transcript")
		return
	}

	for _, m := range msgs {
		read := 0
		if m.Read {
			read = 1
		}
		if _, err := tx.Exec(
			`INSERT INTO transcript_messages (id, conversation_id, sender_id, content, image_url, read, client_tag, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, conversationID, m.SenderID, m.Content, m.ImageURL, read, m.ClientTag,
			m.CreatedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			tx.Rollback()
			s.db.log.Error().Err(err).Str("conversation", conversationID).Msg("failed to cache message")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		s.db.log.Error().Err(err).Str("conversation", conversationID).Msg("failed to commit transcript")
	}
}

// Messages loads a conversation's cached transcript in timestamp order.
func (s *TranscriptStore) Messages(conversationID string) []domain.Message {
	rows, err := s.db.sql.Query(
		`SELECT id, sender_id, content, image_url, read, client_tag, created_at
		 FROM transcript_messages WHERE conversation_id = ? ORDER BY created_at, id`,
		conversationID,
	)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		var read int
		var createdAt string

		if err := rows.Scan(&m.ID, &m.SenderID, &m.Content, &m.ImageURL, &read, &m.ClientTag, &createdAt); err != nil {
			continue
		}
		m.ConversationID = conversationID
		m.Read = read != 0
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		msgs = append(msgs, m)
	}
	return msgs
}

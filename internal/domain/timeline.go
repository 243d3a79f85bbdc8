package domain

import "time"

// TimelineEntry is the read-only projection consumed by renderers: the
// union of confirmed and local messages normalized to one shape.
type TimelineEntry struct {
	ID        string         `json:"id"`
	SenderID  string         `json:"senderId"`
	Content   string         `json:"content"`
	ImageURL  string         `json:"imageUrl,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Status    DeliveryStatus `json:"status"`
	Local     bool           `json:"local"`
}

// FromMessage projects a confirmed message into a timeline entry.
func FromMessage(m Message) TimelineEntry {
	return TimelineEntry{
		ID:        m.ID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		ImageURL:  m.ImageURL,
		Timestamp: m.CreatedAt,
		Status:    StatusDelivered,
		Local:     false,
	}
}

// FromLocal projects an optimistic local message into a timeline entry.
func FromLocal(m LocalMessage) TimelineEntry {
	return TimelineEntry{
		ID:        m.TempID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		ImageURL:  m.ImageURL,
		Timestamp: m.CreatedAt,
		Status:    m.Status,
		Local:     true,
	}
}

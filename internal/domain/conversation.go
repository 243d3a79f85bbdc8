package domain

import "time"

// Role classifies a conversation participant.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleDoctor   Role = "doctor"
	RoleStaff    Role = "staff"
)

// Participant is a member of a conversation.
type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Role   Role   `json:"role,omitempty"`
}

// LastMessage is the cached summary of the newest message in a conversation.
type LastMessage struct {
	SenderID  string    `json:"senderId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Conversation ties a customer and a doctor together for an appointment.
// Conversations are created get-or-create style on first contact and are
// never deleted by the client; only new messages extend UpdatedAt.
type Conversation struct {
	ID            string        `json:"id"`
	Participants  []Participant `json:"participants"`
	AppointmentID string        `json:"appointmentId,omitempty"`
	ClinicID      string        `json:"clinicId,omitempty"`
	Closed        bool          `json:"closed,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	LastMessage   *LastMessage  `json:"lastMessage,omitempty"`
}

// Peer returns the first participant that is not the given user, or nil.
func (c *Conversation) Peer(userID string) *Participant {
	for i := range c.Participants {
		if c.Participants[i].ID != userID {
			return &c.Participants[i]
		}
	}
	return nil
}

package messages

import "time"

// Message es un mensaje directo entre un paciente y un médico.
// Read solo lo modifica el receptor al abrir la conversación.
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Content    string
	SentAt     time.Time
	Read       bool
}

// Contact es alguien con quien el usuario puede escribir ahora.
type Contact struct {
	UserID string
	Name   string
	Role   string
	Unread int
}

// Conversation resume el último intercambio con un par.
type Conversation struct {
	UserID        string
	Name          string
	Role          string
	LastMessage   string
	LastMessageAt time.Time
	Unread        int
}

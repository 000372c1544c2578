package audit

import "time"

// Action identifica qué pasó sobre los datos de un paciente.
type Action string

const (
	ActionAccessGranted   Action = "ACCESS_GRANTED"
	ActionAccessRefreshed Action = "ACCESS_REFRESHED"
	ActionAccessExtended  Action = "ACCESS_EXTENDED"
	ActionAccessRevoked   Action = "ACCESS_REVOKED"
	ActionAccessExpired   Action = "ACCESS_EXPIRED"
	ActionRecordAdded     Action = "RECORD_ADDED"
	ActionRecordViewed    Action = "RECORD_VIEWED"
	ActionFileUploaded    Action = "FILE_UPLOADED"
)

// Entry es inmutable una vez escrita.
type Entry struct {
	ID string

	PatientID   string
	PatientName string

	ActorID   string
	ActorName string
	ActorRole string

	Action Action

	RecordID    string // opcional
	RecordTitle string // opcional
	Details     string

	CreatedAt time.Time
}

package client

import "time"

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Grant es un acceso visto por el paciente.
type Grant struct {
	ID          string     `json:"id"`
	PatientID   string     `json:"patientId"`
	DoctorID    string     `json:"doctorId"`
	DoctorName  string     `json:"doctorName,omitempty"`
	DoctorEmail string     `json:"doctorEmail"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	RevokedAt   *time.Time `json:"revokedAt,omitempty"`
	DaysLeft    int        `json:"daysLeft"`
	ExpiryClass string     `json:"expiryClass"`
}

// PatientAccess es un paciente visto por el médico.
type PatientAccess struct {
	AccessID     string    `json:"accessId"`
	PatientID    string    `json:"patientId"`
	PatientName  string    `json:"patientName"`
	PatientEmail string    `json:"patientEmail"`
	GrantedAt    time.Time `json:"grantedAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	DaysLeft     int       `json:"daysLeft"`
	ExpiryClass  string    `json:"expiryClass"`
}

type Page[T any] struct {
	Content       []T  `json:"content"`
	Page          int  `json:"page"`
	Size          int  `json:"size"`
	TotalElements int  `json:"totalElements"`
	TotalPages    int  `json:"totalPages"`
	Last          bool `json:"last"`
}

type Record struct {
	ID            string    `json:"id"`
	PatientID     string    `json:"patientId"`
	Type          string    `json:"type"`
	Title         string    `json:"title"`
	Diagnosis     string    `json:"diagnosis,omitempty"`
	Content       string    `json:"content"`
	CreatedByID   string    `json:"createdById"`
	CreatedByName string    `json:"createdByName"`
	CreatedAt     time.Time `json:"createdAt"`
}

type NewRecord struct {
	Type      string `json:"type,omitempty"`
	Title     string `json:"title"`
	Diagnosis string `json:"diagnosis,omitempty"`
	Content   string `json:"content"`
}

// RecordQuery: Page base 0; Size 0 usa el default del servidor.
type RecordQuery struct {
	Type string
	Page int
	Size int
}

type Attachment struct {
	ID         string    `json:"id"`
	RecordID   string    `json:"recordId"`
	FileName   string    `json:"fileName"`
	FileType   string    `json:"fileType"`
	FileSize   int64     `json:"fileSize"`
	UploadedBy string    `json:"uploadedBy"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type Download struct {
	URL       string    `json:"downloadUrl"`
	FileName  string    `json:"fileName"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	SentAt     time.Time `json:"sentAt"`
	Read       bool      `json:"read"`
}

type Contact struct {
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	UnreadCount int    `json:"unreadCount"`
}

type Conversation struct {
	UserID        string    `json:"userId"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	LastMessage   string    `json:"lastMessage"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	UnreadCount   int       `json:"unreadCount"`
}

type AuditEntry struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patientId"`
	PatientName string    `json:"patientName,omitempty"`
	ActorID     string    `json:"actorId"`
	ActorName   string    `json:"actorName,omitempty"`
	ActorRole   string    `json:"actorRole,omitempty"`
	Action      string    `json:"action"`
	RecordID    string    `json:"recordId,omitempty"`
	RecordTitle string    `json:"recordTitle,omitempty"`
	Details     string    `json:"details,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

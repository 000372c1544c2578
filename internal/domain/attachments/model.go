package attachments

import "time"

// Attachment pertenece a un único registro; el contenido vive en el blob store.
type Attachment struct {
	ID        string
	RecordID  string
	PatientID string

	FileName    string
	ContentType string
	Size        int64
	BlobKey     string

	UploadedBy string
	UploadedAt time.Time
}

// Download es una URL temporal para bajar el archivo.
type Download struct {
	URL       string
	FileName  string
	ExpiresAt time.Time
}

package records

import (
	"strings"
	"time"
)

// RecordType es un enum cerrado.
// @Enum NOTE, DIAGNOSIS, PRESCRIPTION, LAB_RESULT, IMAGING, VITALS, PROCEDURE
type RecordType string

const (
	TypeNote         RecordType = "NOTE"
	TypeDiagnosis    RecordType = "DIAGNOSIS"
	TypePrescription RecordType = "PRESCRIPTION"
	TypeLabResult    RecordType = "LAB_RESULT"
	TypeImaging      RecordType = "IMAGING"
	TypeVitals       RecordType = "VITALS"
	TypeProcedure    RecordType = "PROCEDURE"
)

var recordTypes = map[RecordType]struct{}{
	TypeNote:         {},
	TypeDiagnosis:    {},
	TypePrescription: {},
	TypeLabResult:    {},
	TypeImaging:      {},
	TypeVitals:       {},
	TypeProcedure:    {},
}

// ParseRecordType: vacío es NOTE; cualquier otro valor fuera del enum es error.
func ParseRecordType(s string) (RecordType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return TypeNote, nil
	}
	t := RecordType(s)
	if _, ok := recordTypes[t]; !ok {
		return "", ErrInvalidType
	}
	return t, nil
}

// Record es inmutable una vez creado y no se borra al terminar un grant.
type Record struct {
	ID        string
	PatientID string

	CreatedByDoctorID string
	CreatedByName     string

	Type      RecordType
	Title     string
	Diagnosis string // opcional
	Content   string

	CreatedAt time.Time
}

// ListFilter: Type vacío no filtra.
type ListFilter struct {
	Type   RecordType
	Offset int
	Limit  int
}

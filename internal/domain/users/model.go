package users

import (
	"strings"
	"time"
)

// Role define el rol de la cuenta.
// @Enum PATIENT, DOCTOR, HOSPITAL, PHARMACY, LAB, AMBULANCE
type Role string

const (
	RolePatient   Role = "PATIENT"
	RoleDoctor    Role = "DOCTOR"
	RoleHospital  Role = "HOSPITAL"
	RolePharmacy  Role = "PHARMACY"
	RoleLab       Role = "LAB"
	RoleAmbulance Role = "AMBULANCE"
)

var roles = map[Role]struct{}{
	RolePatient:   {},
	RoleDoctor:    {},
	RoleHospital:  {},
	RolePharmacy:  {},
	RoleLab:       {},
	RoleAmbulance: {},
}

// ParseRole acepta el rol sin importar mayúsculas. Vacío o desconocido es error.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := roles[r]; !ok {
		return "", ErrInvalidRole
	}
	return r, nil
}

// User es la cuenta registrada (paciente, médico u otro rol).
type User struct {
	ID    string
	Name  string
	Email string // único, en minúsculas

	PasswordHash string
	Role         Role

	CreatedAt time.Time
	UpdatedAt time.Time
}

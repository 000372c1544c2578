package accessgrants

import (
	"math"
	"time"
)

// Status se deriva de RevokedAt/ExpiresAt contra el reloj; no se persiste.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusExpired Status = "EXPIRED"
	StatusRevoked Status = "REVOKED"
)

const Day = 24 * time.Hour

// Grant es el consentimiento de un paciente para que un médico vea y agregue registros.
type Grant struct {
	ID string

	PatientID   string // quien comparte
	DoctorID    string // quien recibe acceso
	DoctorEmail string // email usado al otorgar

	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time

	// ExpiryLoggedAt lo marca el sweeper cuando ya auditó la expiración.
	ExpiryLoggedAt *time.Time
}

// StatusAt: REVOKED gana sobre EXPIRED.
func (g Grant) StatusAt(now time.Time) Status {
	if g.RevokedAt != nil {
		return StatusRevoked
	}
	if !now.Before(g.ExpiresAt) {
		return StatusExpired
	}
	return StatusActive
}

// ActiveAt es el chequeo de autorización: no revocado y now < ExpiresAt.
func (g Grant) ActiveAt(now time.Time) bool {
	return g.RevokedAt == nil && now.Before(g.ExpiresAt)
}

// ExpiryClass es solo presentación; nunca se usa para autorizar.
type ExpiryClass string

const (
	ExpiryHealthy ExpiryClass = "healthy"
	ExpiringSoon  ExpiryClass = "expiring_soon"
	ExpiresToday  ExpiryClass = "expires_today"
	ExpiryExpired ExpiryClass = "expired"
)

// ExpiringSoonWindow en días.
const ExpiringSoonWindow = 7

type Expiry struct {
	DaysLeft int         `json:"daysLeft"`
	Class    ExpiryClass `json:"class"`
}

// Evaluate calcula días restantes redondeando hacia arriba.
func Evaluate(expiresAt, now time.Time) Expiry {
	d := int(math.Ceil(float64(expiresAt.Sub(now)) / float64(Day)))
	var c ExpiryClass
	switch {
	case d < 0:
		c = ExpiryExpired
	case d == 0:
		c = ExpiresToday
	case d <= ExpiringSoonWindow:
		c = ExpiringSoon
	default:
		c = ExpiryHealthy
	}
	return Expiry{DaysLeft: d, Class: c}
}

// Package validation agrupa las reglas de formularios que comparten el servidor
// y el cliente (pkg/client). El cliente las aplica antes de cualquier request.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinExtendDays = 1
	MaxExtendDays = 365

	MinPasswordLength = 6
	MinNameLength     = 2
)

var (
	ErrEmailRequired    = errors.New("email is required")
	ErrEmailInvalid     = errors.New("please enter a valid email address")
	ErrNameRequired     = errors.New("full name is required")
	ErrNameTooShort     = fmt.Errorf("name must be at least %d characters", MinNameLength)
	ErrNameInvalid      = errors.New("name can only contain letters and spaces")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordWeak     = errors.New("password must contain both letters and numbers")
	ErrDaysOutOfRange   = fmt.Errorf("days must be between %d and %d", MinExtendDays, MaxExtendDays)
)

var (
	// local-part@domain.tld, sin espacios.
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nameRe  = regexp.MustCompile(`^[a-zA-Z\s]+$`)

	upperRe  = regexp.MustCompile(`[A-Z]`)
	lowerRe  = regexp.MustCompile(`[a-z]`)
	letterRe = regexp.MustCompile(`[A-Za-z]`)
	digitRe  = regexp.MustCompile(`[0-9]`)
	symbolRe = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// NormalizeEmail recorta y pasa a minúsculas.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailRequired
	}
	if !emailRe.MatchString(email) {
		return ErrEmailInvalid
	}
	return nil
}

func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	if utf8.RuneCountInString(name) < MinNameLength {
		return ErrNameTooShort
	}
	if !nameRe.MatchString(name) {
		return ErrNameInvalid
	}
	return nil
}

func ValidatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if !letterRe.MatchString(password) || !digitRe.MatchString(password) {
		return ErrPasswordWeak
	}
	return nil
}

// ValidateExtendDays exige days en [1, 365].
func ValidateExtendDays(days int) error {
	if days < MinExtendDays || days > MaxExtendDays {
		return ErrDaysOutOfRange
	}
	return nil
}

// PasswordStrength devuelve un puntaje de 0 a 6.
func PasswordStrength(password string) int {
	score := 0
	if len(password) >= 6 {
		score++
	}
	if len(password) >= 8 {
		score++
	}
	for _, re := range []*regexp.Regexp{upperRe, lowerRe, digitRe, symbolRe} {
		if re.MatchString(password) {
			score++
		}
	}
	return score
}

type Strength string

const (
	StrengthWeak   Strength = "Weak"
	StrengthMedium Strength = "Medium"
	StrengthStrong Strength = "Strong"
)

func StrengthLabel(score int) Strength {
	switch {
	case score <= 2:
		return StrengthWeak
	case score <= 4:
		return StrengthMedium
	default:
		return StrengthStrong
	}
}

// FieldErrors junta errores por campo, como los muestra un formulario.
type FieldErrors map[string]error

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return ""
	}
	parts := make([]string, 0, len(fe))
	for _, k := range []string{"name", "email", "password", "role"} {
		if err, ok := fe[k]; ok {
			parts = append(parts, k+": "+err.Error())
		}
	}
	for k, err := range fe {
		switch k {
		case "name", "email", "password", "role":
			continue
		}
		parts = append(parts, k+": "+err.Error())
	}
	return strings.Join(parts, "; ")
}

// Err devuelve nil si no hay errores.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// ValidateRegistration aplica las reglas del formulario de alta.
func ValidateRegistration(name, email, password string) FieldErrors {
	fe := FieldErrors{}
	if err := ValidateName(name); err != nil {
		fe["name"] = err
	}
	if err := ValidateEmail(email); err != nil {
		fe["email"] = err
	}
	if err := ValidatePassword(password); err != nil {
		fe["password"] = err
	}
	return fe
}

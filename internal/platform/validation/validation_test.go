package validation

import (
	"errors"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	cases := []struct {
		in   string
		want error
	}{
		{"doctor@example.com", nil},
		{"  doctor@example.com  ", nil},
		{"", ErrEmailRequired},
		{"doctor@example", ErrEmailInvalid},
		{"doctor example@x.com", ErrEmailInvalid},
		{"@example.com", ErrEmailInvalid},
	}
	for _, tc := range cases {
		if got := ValidateEmail(tc.in); !errors.Is(got, tc.want) {
			t.Fatalf("ValidateEmail(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("abc123"); err != nil {
		t.Fatalf("expected valid password, got %v", err)
	}
	if err := ValidatePassword("ab1"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected too short, got %v", err)
	}
	if err := ValidatePassword("abcdefgh"); !errors.Is(err, ErrPasswordWeak) {
		t.Fatalf("expected weak, got %v", err)
	}
	if err := ValidatePassword(""); !errors.Is(err, ErrPasswordRequired) {
		t.Fatalf("expected required, got %v", err)
	}
}

func TestValidateName(t *testing.T) {
	if err := ValidateName("Ana Maria"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateName("A"); !errors.Is(err, ErrNameTooShort) {
		t.Fatalf("expected too short, got %v", err)
	}
	if err := ValidateName("R2D2"); !errors.Is(err, ErrNameInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}
}

func TestValidateExtendDays_Bounds(t *testing.T) {
	for _, d := range []int{1, 30, 365} {
		if err := ValidateExtendDays(d); err != nil {
			t.Fatalf("days=%d should be valid, got %v", d, err)
		}
	}
	for _, d := range []int{-1, 0, 366} {
		if err := ValidateExtendDays(d); !errors.Is(err, ErrDaysOutOfRange) {
			t.Fatalf("days=%d should be rejected, got %v", d, err)
		}
	}
}

func TestPasswordStrength(t *testing.T) {
	cases := []struct {
		in    string
		score int
		label Strength
	}{
		{"", 0, StrengthWeak},
		{"abcdef", 2, StrengthWeak},
		{"abcdef12", 4, StrengthMedium},
		{"Abcdef1!", 6, StrengthStrong},
	}
	for _, tc := range cases {
		s := PasswordStrength(tc.in)
		if s != tc.score {
			t.Fatalf("PasswordStrength(%q) = %d, want %d", tc.in, s, tc.score)
		}
		if l := StrengthLabel(s); l != tc.label {
			t.Fatalf("StrengthLabel(%d) = %s, want %s", s, l, tc.label)
		}
	}
}

func TestValidateRegistration_CollectsFields(t *testing.T) {
	fe := ValidateRegistration("", "bad", "short")
	if len(fe) != 3 {
		t.Fatalf("expected 3 field errors, got %d (%v)", len(fe), fe)
	}
	if fe.Err() == nil {
		t.Fatalf("expected non-nil Err()")
	}
	if ValidateRegistration("Ana", "ana@example.com", "abc123").Err() != nil {
		t.Fatalf("expected valid registration")
	}
}

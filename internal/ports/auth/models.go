package auth

import "strings"

// Claims representa la información extraída del token.
type Claims struct {
	UserID string
	Email  string
	Role   string
}

// HasRole compara el rol del token sin importar mayúsculas.
func (c Claims) HasRole(role string) bool {
	return strings.TrimSpace(c.Role) != "" && strings.EqualFold(strings.TrimSpace(c.Role), role)
}

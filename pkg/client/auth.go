package client

import (
	"context"
	"net/http"
	"strings"
	"time"

	"consent-records/internal/platform/validation"
)

type loginResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Register valida el formulario localmente antes de enviarlo.
func (c *Client) Register(ctx context.Context, in Registration) (User, error) {
	if fe := validation.ValidateRegistration(in.Name, in.Email, in.Password); len(fe) > 0 {
		for _, f := range []string{"name", "email", "password"} {
			if err, ok := fe[f]; ok {
				return User{}, &ValidationError{Field: f, Err: err}
			}
		}
	}
	in.Email = validation.NormalizeEmail(in.Email)
	in.Role = strings.ToUpper(strings.TrimSpace(in.Role))

	var out User
	if err := c.sendJSON(ctx, http.MethodPost, "/api/users", in, &out); err != nil {
		return User{}, err
	}
	return out, nil
}

// Login abre la sesión del cliente.
func (c *Client) Login(ctx context.Context, email, password string) (Identity, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return Identity{}, &ValidationError{Field: "email", Err: err}
	}
	if password == "" {
		return Identity{}, &ValidationError{Field: "password", Err: validation.ErrPasswordRequired}
	}

	var out loginResponse
	in := map[string]string{"email": validation.NormalizeEmail(email), "password": password}
	if err := c.sendJSON(ctx, http.MethodPost, "/api/users/login", in, &out); err != nil {
		return Identity{}, err
	}

	id := Identity{UserID: out.UserID, Name: out.Name, Email: out.Email, Role: out.Role}
	c.session.set(out.Token, out.ExpiresAt, id)
	return id, nil
}

// Logout es local: el token JWT no se invalida en el servidor.
func (c *Client) Logout() {
	c.session.Clear()
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var out User
	if err := c.getJSON(ctx, "/api/users/me", &out); err != nil {
		return User{}, err
	}
	return out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, name string) (User, error) {
	if err := validation.ValidateName(name); err != nil {
		return User{}, &ValidationError{Field: "name", Err: err}
	}
	var out User
	if err := c.sendJSON(ctx, http.MethodPut, "/api/users/me", map[string]string{"name": strings.TrimSpace(name)}, &out); err != nil {
		return User{}, err
	}
	return out, nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	if current == "" {
		return &ValidationError{Field: "currentPassword", Err: validation.ErrPasswordRequired}
	}
	if err := validation.ValidatePassword(next); err != nil {
		return &ValidationError{Field: "newPassword", Err: err}
	}
	in := map[string]string{"currentPassword": current, "newPassword": next}
	return c.sendJSON(ctx, http.MethodPut, "/api/users/me/password", in, nil)
}

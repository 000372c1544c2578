package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"consent-records/internal/domain/accessgrants"
	"consent-records/internal/platform/validation"
)

// ExpiryAt recalcula días restantes y clase a now, para refrescar la vista sin pedir de nuevo.
// Solo presentación: el servidor decide el acceso.
func (g Grant) ExpiryAt(now time.Time) (daysLeft int, class string) {
	e := accessgrants.Evaluate(g.ExpiresAt, now)
	return e.DaysLeft, string(e.Class)
}

// GrantAccess da acceso al médico con ese email (30 días por default del servidor).
func (c *Client) GrantAccess(ctx context.Context, doctorEmail string) (Grant, error) {
	if err := validation.ValidateEmail(doctorEmail); err != nil {
		return Grant{}, &ValidationError{Field: "doctorEmail", Err: err}
	}
	var out Grant
	in := map[string]string{"doctorEmail": validation.NormalizeEmail(doctorEmail)}
	if err := c.sendJSON(ctx, http.MethodPost, "/api/records/access", in, &out); err != nil {
		return Grant{}, err
	}
	return out, nil
}

// Accesses lista los accesos activos del paciente.
func (c *Client) Accesses(ctx context.Context) ([]Grant, error) {
	var out []Grant
	if err := c.getJSON(ctx, "/api/records/accesses", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RevokeAccess(ctx context.Context, grantID string) (Grant, error) {
	if strings.TrimSpace(grantID) == "" {
		return Grant{}, &ValidationError{Field: "grantId", Err: errors.New("grant id is required")}
	}
	var out Grant
	if err := c.do(ctx, requestFor(http.MethodDelete, "/api/records/access/"+url.PathEscape(grantID)), &out); err != nil {
		return Grant{}, err
	}
	return out, nil
}

// ExtendAccess suma days (1 a 365) al vencimiento actual.
func (c *Client) ExtendAccess(ctx context.Context, grantID string, days int) (Grant, error) {
	if strings.TrimSpace(grantID) == "" {
		return Grant{}, &ValidationError{Field: "grantId", Err: errors.New("grant id is required")}
	}
	if err := validation.ValidateExtendDays(days); err != nil {
		return Grant{}, &ValidationError{Field: "days", Err: err}
	}
	var out Grant
	path := "/api/records/access/" + url.PathEscape(grantID) + "/extend"
	if err := c.sendJSON(ctx, http.MethodPut, path, map[string]int{"days": days}, &out); err != nil {
		return Grant{}, err
	}
	return out, nil
}

// Patients lista los pacientes con acceso activo al médico autenticado.
func (c *Client) Patients(ctx context.Context, page, size int) (Page[PatientAccess], error) {
	var out Page[PatientAccess]
	if err := c.getJSON(ctx, withQuery("/api/records/patients", pageQuery(page, size)), &out); err != nil {
		return Page[PatientAccess]{}, err
	}
	return out, nil
}

package client

import (
	"errors"
	"fmt"
	"net/http"

	"consent-records/internal/platform/httpclient"
)

// ValidationError: el formulario no pasó la validación local, no se envió nada.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// AuthError: 401. La sesión ya fue limpiada.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return "session expired, please sign in again: " + e.Message }

// AuthorizationError: 403 (acceso vencido, revocado o rol incorrecto).
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return "not allowed: " + e.Message }

// AccessRequired indica que falta un acceso activo del paciente.
func (e *AuthorizationError) AccessRequired() bool { return e.Message == "access required" }

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return "not found: " + e.Message }

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return "conflict: " + e.Message }

// PartialFailure: el registro se creó pero falló la subida de adjuntos.
type PartialFailure struct {
	RecordID string
	Err      error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("record %s created but attachments failed: %v", e.RecordID, e.Err)
}

func (e *PartialFailure) Unwrap() error { return e.Err }

// NetworkError: no hubo respuesta del servidor. No se reintenta.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network error, check your connection: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// APIError cubre cualquier otra respuesta no-2xx.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed (%d)", e.StatusCode)
	}
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Message)
}

// translate convierte errores del transporte en los tipos del SDK.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var te *httpclient.TransportError
	if errors.As(err, &te) {
		return &NetworkError{Err: te.Err}
	}

	var he *httpclient.HTTPError
	if !errors.As(err, &he) {
		return err
	}
	switch he.StatusCode {
	case http.StatusUnauthorized:
		return &AuthError{Message: he.Body}
	case http.StatusForbidden:
		return &AuthorizationError{Message: he.Body}
	case http.StatusNotFound:
		return &NotFoundError{Message: he.Body}
	case http.StatusConflict:
		return &ConflictError{Message: he.Body}
	default:
		return &APIError{StatusCode: he.StatusCode, Message: he.Body}
	}
}

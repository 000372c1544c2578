package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

var recordTypes = map[string]struct{}{
	"NOTE": {}, "DIAGNOSIS": {}, "PRESCRIPTION": {}, "LAB_RESULT": {},
	"IMAGING": {}, "VITALS": {}, "PROCEDURE": {},
}

func validRecordType(t string) bool {
	if t == "" {
		return true
	}
	_, ok := recordTypes[t]
	return ok
}

func recordQuery(q RecordQuery) (url.Values, error) {
	t := strings.ToUpper(strings.TrimSpace(q.Type))
	if !validRecordType(t) {
		return nil, &ValidationError{Field: "type", Err: errors.New("invalid record type")}
	}
	v := pageQuery(q.Page, q.Size)
	if t != "" {
		v.Set("type", t)
	}
	return v, nil
}

// MyRecords lista los registros del paciente autenticado.
func (c *Client) MyRecords(ctx context.Context, q RecordQuery) (Page[Record], error) {
	v, err := recordQuery(q)
	if err != nil {
		return Page[Record]{}, err
	}
	var out Page[Record]
	if err := c.getJSON(ctx, withQuery("/api/records/me", v), &out); err != nil {
		return Page[Record]{}, err
	}
	return out, nil
}

// PatientRecords exige acceso activo; si no, *AuthorizationError con AccessRequired().
func (c *Client) PatientRecords(ctx context.Context, patientID string, q RecordQuery) (Page[Record], error) {
	if strings.TrimSpace(patientID) == "" {
		return Page[Record]{}, &ValidationError{Field: "patientId", Err: errors.New("patient id is required")}
	}
	v, err := recordQuery(q)
	if err != nil {
		return Page[Record]{}, err
	}
	var out Page[Record]
	if err := c.getJSON(ctx, withQuery("/api/records/"+url.PathEscape(patientID), v), &out); err != nil {
		return Page[Record]{}, err
	}
	return out, nil
}

// CreateRecord devuelve el ID del registro creado.
func (c *Client) CreateRecord(ctx context.Context, patientID string, in NewRecord) (string, error) {
	if strings.TrimSpace(patientID) == "" {
		return "", &ValidationError{Field: "patientId", Err: errors.New("patient id is required")}
	}
	in.Type = strings.ToUpper(strings.TrimSpace(in.Type))
	if !validRecordType(in.Type) {
		return "", &ValidationError{Field: "type", Err: errors.New("invalid record type")}
	}
	if strings.TrimSpace(in.Title) == "" {
		return "", &ValidationError{Field: "title", Err: errors.New("title is required")}
	}
	if strings.TrimSpace(in.Content) == "" {
		return "", &ValidationError{Field: "content", Err: errors.New("content is required")}
	}

	var out struct {
		RecordID string `json:"recordId"`
	}
	if err := c.sendJSON(ctx, http.MethodPost, "/api/records/"+url.PathEscape(patientID), in, &out); err != nil {
		return "", err
	}
	return out.RecordID, nil
}

// CreateRecordWithFiles crea el registro y después sube los adjuntos.
// Si falla la subida devuelve *PartialFailure: el registro ya existe y no se reintenta.
func (c *Client) CreateRecordWithFiles(ctx context.Context, patientID string, in NewRecord, files []File) (string, []Attachment, error) {
	id, err := c.CreateRecord(ctx, patientID, in)
	if err != nil {
		return "", nil, err
	}
	if len(files) == 0 {
		return id, nil, nil
	}

	atts, err := c.UploadFiles(ctx, id, files)
	if err != nil {
		return id, nil, &PartialFailure{RecordID: id, Err: err}
	}
	return id, atts, nil
}

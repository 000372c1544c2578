package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"consent-records/internal/domain/attachments"
)

type AttachmentsRepo struct {
	db *sql.DB
}

func NewAttachmentsRepo(db *sql.DB) *AttachmentsRepo {
	return &AttachmentsRepo{db: db}
}

const attachmentColumns = `
	id, record_id, patient_id, file_name, content_type,
	size_bytes, blob_key, uploaded_by, uploaded_at`

func (r *AttachmentsRepo) Create(ctx context.Context, a attachments.Attachment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO record_attachments (`+attachmentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		a.ID,
		a.RecordID,
		a.PatientID,
		a.FileName,
		a.ContentType,
		a.Size,
		a.BlobKey,
		a.UploadedBy,
		a.UploadedAt,
	)
	return err
}

func (r *AttachmentsRepo) GetByID(ctx context.Context, id string) (attachments.Attachment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return attachments.Attachment{}, attachments.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+attachmentColumns+` FROM record_attachments WHERE id = $1`, id)
	a, err := scanAttachment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return attachments.Attachment{}, attachments.ErrNotFound
	}
	return a, err
}

func (r *AttachmentsRepo) ListByRecord(ctx context.Context, recordID string) ([]attachments.Attachment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+attachmentColumns+`
		FROM record_attachments
		WHERE record_id = $1
		ORDER BY uploaded_at ASC, id ASC
	`, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]attachments.Attachment, 0)
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AttachmentsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM record_attachments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return attachments.ErrNotFound
	}
	return nil
}

func scanAttachment(s scanner) (attachments.Attachment, error) {
	var a attachments.Attachment
	err := s.Scan(
		&a.ID,
		&a.RecordID,
		&a.PatientID,
		&a.FileName,
		&a.ContentType,
		&a.Size,
		&a.BlobKey,
		&a.UploadedBy,
		&a.UploadedAt,
	)
	return a, err
}

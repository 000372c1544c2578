package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"consent-records/internal/domain/records"
)

type RecordsRepo struct {
	db *sql.DB
}

func NewRecordsRepo(db *sql.DB) *RecordsRepo {
	return &RecordsRepo{db: db}
}

const recordColumns = `
	id, patient_id, created_by_doctor_id, created_by_name,
	type, title, diagnosis, content, created_at`

func (r *RecordsRepo) Create(ctx context.Context, rec records.Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medical_records (`+recordColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		rec.ID,
		rec.PatientID,
		rec.CreatedByDoctorID,
		rec.CreatedByName,
		string(rec.Type),
		rec.Title,
		rec.Diagnosis,
		rec.Content,
		rec.CreatedAt,
	)
	return err
}

func (r *RecordsRepo) GetByID(ctx context.Context, id string) (records.Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return records.Record{}, records.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM medical_records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return records.Record{}, records.ErrNotFound
	}
	return rec, err
}

func (r *RecordsRepo) ListByPatient(ctx context.Context, patientID string, f records.ListFilter) ([]records.Record, int, error) {
	where := `WHERE patient_id = $1`
	args := []any{patientID}
	if f.Type != "" {
		where += ` AND type = $2`
		args = append(args, string(f.Type))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM medical_records `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = total
	}
	n := len(args)
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM medical_records `+where+`
		ORDER BY created_at DESC, seq DESC
		LIMIT $`+strconv.Itoa(n+1)+` OFFSET $`+strconv.Itoa(n+2),
		append(args, limit, f.Offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]records.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func scanRecord(s scanner) (records.Record, error) {
	var rec records.Record
	var t string
	if err := s.Scan(
		&rec.ID,
		&rec.PatientID,
		&rec.CreatedByDoctorID,
		&rec.CreatedByName,
		&t,
		&rec.Title,
		&rec.Diagnosis,
		&rec.Content,
		&rec.CreatedAt,
	); err != nil {
		return records.Record{}, err
	}
	rec.Type = records.RecordType(t)
	return rec, nil
}

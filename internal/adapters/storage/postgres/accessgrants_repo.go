package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"consent-records/internal/domain/accessgrants"
)

type AccessGrantsRepo struct {
	db *sql.DB
}

func NewAccessGrantsRepo(db *sql.DB) *AccessGrantsRepo {
	return &AccessGrantsRepo{db: db}
}

const grantColumns = `
	id, patient_id, doctor_id, doctor_email,
	created_at, updated_at, expires_at, revoked_at, expiry_logged_at`

// GrantOrRefresh toma un advisory lock por par dentro de la transacción:
// dos instancias no pueden crear dos grants activos para el mismo par.
func (r *AccessGrantsRepo) GrantOrRefresh(ctx context.Context, g accessgrants.Grant, now time.Time) (accessgrants.Grant, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return accessgrants.Grant{}, false, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		g.PatientID+":"+g.DoctorID,
	); err != nil {
		return accessgrants.Grant{}, false, err
	}

	// La condición se repite afuera del subselect: si un Revoke gana el lock
	// de la fila, la re-evaluación descarta la fila y se crea un grant nuevo.
	row := tx.QueryRowContext(ctx, `
		UPDATE access_grants
		SET
			expires_at = GREATEST(expires_at, $3),
			doctor_email = $4,
			updated_at = $5
		WHERE id = (
			SELECT id FROM access_grants
			WHERE patient_id = $1 AND doctor_id = $2
			  AND revoked_at IS NULL AND expires_at > $6
			ORDER BY expires_at DESC
			LIMIT 1
		)
		  AND revoked_at IS NULL
		  AND expires_at > $6
		RETURNING `+grantColumns,
		g.PatientID,
		g.DoctorID,
		g.ExpiresAt,
		g.DoctorEmail,
		g.UpdatedAt,
		now,
	)
	refreshed, err := scanGrant(row)
	switch {
	case err == nil:
		if err := tx.Commit(); err != nil {
			return accessgrants.Grant{}, false, err
		}
		return refreshed, true, nil
	case !errors.Is(err, sql.ErrNoRows):
		return accessgrants.Grant{}, false, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO access_grants (`+grantColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		g.ID,
		g.PatientID,
		g.DoctorID,
		g.DoctorEmail,
		g.CreatedAt,
		g.UpdatedAt,
		g.ExpiresAt,
		toNullTime(g.RevokedAt),
		toNullTime(g.ExpiryLoggedAt),
	); err != nil {
		return accessgrants.Grant{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return accessgrants.Grant{}, false, err
	}
	return g, false, nil
}

func (r *AccessGrantsRepo) Extend(ctx context.Context, id string, by time.Duration, now time.Time) (accessgrants.Grant, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE access_grants
		SET
			expires_at = expires_at + make_interval(secs => $2),
			updated_at = $3
		WHERE id = $1
		  AND revoked_at IS NULL
		  AND expires_at > $3
		RETURNING `+grantColumns,
		id,
		by.Seconds(),
		now,
	)
	return r.conditional(ctx, id, row)
}

func (r *AccessGrantsRepo) Revoke(ctx context.Context, id string, now time.Time) (accessgrants.Grant, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE access_grants
		SET
			revoked_at = $2,
			updated_at = $2
		WHERE id = $1
		  AND revoked_at IS NULL
		  AND expires_at > $2
		RETURNING `+grantColumns,
		id,
		now,
	)
	return r.conditional(ctx, id, row)
}

func (r *AccessGrantsRepo) MarkExpiryLogged(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE access_grants
		SET expiry_logged_at = $2
		WHERE id = $1 AND expiry_logged_at IS NULL
	`, id, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// conditional: sin filas es ErrNotFound si el grant no existe, si no ErrBadState.
func (r *AccessGrantsRepo) conditional(ctx context.Context, id string, row *sql.Row) (accessgrants.Grant, error) {
	g, err := scanGrant(row)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return accessgrants.Grant{}, err
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return accessgrants.Grant{}, err
	}
	return accessgrants.Grant{}, accessgrants.ErrBadState
}

func (r *AccessGrantsRepo) GetByID(ctx context.Context, id string) (accessgrants.Grant, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return accessgrants.Grant{}, accessgrants.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+grantColumns+` FROM access_grants WHERE id = $1`, id)
	g, err := scanGrant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return accessgrants.Grant{}, accessgrants.ErrNotFound
	}
	return g, err
}

func (r *AccessGrantsRepo) ListByPatient(ctx context.Context, patientID string) ([]accessgrants.Grant, error) {
	return r.query(ctx, `WHERE patient_id = $1 ORDER BY seq ASC`, patientID)
}

func (r *AccessGrantsRepo) ListByDoctor(ctx context.Context, doctorID string) ([]accessgrants.Grant, error) {
	return r.query(ctx, `WHERE doctor_id = $1 ORDER BY seq ASC`, doctorID)
}

func (r *AccessGrantsRepo) ListByPair(ctx context.Context, patientID, doctorID string) ([]accessgrants.Grant, error) {
	return r.query(ctx, `WHERE patient_id = $1 AND doctor_id = $2 ORDER BY seq ASC`, patientID, doctorID)
}

func (r *AccessGrantsRepo) ListExpiredUnlogged(ctx context.Context, now time.Time) ([]accessgrants.Grant, error) {
	return r.query(ctx, `
		WHERE revoked_at IS NULL
		  AND expiry_logged_at IS NULL
		  AND expires_at <= $1
		ORDER BY seq ASC`, now)
}

func (r *AccessGrantsRepo) query(ctx context.Context, where string, args ...any) ([]accessgrants.Grant, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+grantColumns+` FROM access_grants `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]accessgrants.Grant, 0)
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGrant(s scanner) (accessgrants.Grant, error) {
	var g accessgrants.Grant
	var revokedAt, loggedAt sql.NullTime

	if err := s.Scan(
		&g.ID,
		&g.PatientID,
		&g.DoctorID,
		&g.DoctorEmail,
		&g.CreatedAt,
		&g.UpdatedAt,
		&g.ExpiresAt,
		&revokedAt,
		&loggedAt,
	); err != nil {
		return accessgrants.Grant{}, err
	}

	g.RevokedAt = fromNullTime(revokedAt)
	g.ExpiryLoggedAt = fromNullTime(loggedAt)
	return g, nil
}

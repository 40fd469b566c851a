package land

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"landregistry/pkg/domain"
	"landregistry/pkg/platform/sentinel"
	"landregistry/pkg/platform/tx"
)

const landColumns = `
	land_id, owner_name, national_id, title_number, location, size, land_type,
	current_owner, registered, rejected, reject_reason, requested_at, decided_at
`

// Postgres persists land records. ORDER BY land_id on every listing keeps
// the audit order stable across backends.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (p *Postgres) querier(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return p.db
}

func (p *Postgres) Create(ctx context.Context, record *Record) error {
	query := `
		INSERT INTO land_records (` + landColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := p.querier(ctx).ExecContext(ctx, query,
		record.ID.Int64(),
		record.OwnerName,
		record.NationalID.String(),
		record.TitleNumber,
		record.Location,
		record.Size,
		record.LandType,
		record.CurrentOwner.String(),
		record.Registered,
		record.Rejected,
		record.RejectReason,
		record.RequestedAt,
		record.DecidedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create land record: %w", err)
	}
	return nil
}

func (p *Postgres) FindByID(ctx context.Context, id domain.LandID) (*Record, error) {
	query := `SELECT ` + landColumns + ` FROM land_records WHERE land_id = $1`
	rec, err := scanRecord(p.querier(ctx).QueryRowContext(ctx, query, id.Int64()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find land record: %w", err)
	}
	return rec, nil
}

func (p *Postgres) Update(ctx context.Context, record *Record) error {
	query := `
		UPDATE land_records
		SET current_owner = $2, registered = $3, rejected = $4,
		    reject_reason = $5, decided_at = $6
		WHERE land_id = $1
	`
	res, err := p.querier(ctx).ExecContext(ctx, query,
		record.ID.Int64(),
		record.CurrentOwner.String(),
		record.Registered,
		record.Rejected,
		record.RejectReason,
		record.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("update land record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update land record: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (p *Postgres) ListIDs(ctx context.Context) ([]domain.LandID, error) {
	rows, err := p.querier(ctx).QueryContext(ctx, `SELECT land_id FROM land_records ORDER BY land_id`)
	if err != nil {
		return nil, fmt.Errorf("list land ids: %w", err)
	}
	defer rows.Close()

	var ids []domain.LandID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list land ids: %w", err)
		}
		ids = append(ids, domain.LandID(id))
	}
	return ids, rows.Err()
}

func (p *Postgres) ListByStatus(ctx context.Context, status Status) ([]*Record, error) {
	var clause string
	switch status {
	case StatusRegistered:
		clause = "registered"
	case StatusRejected:
		clause = "rejected"
	default:
		clause = "NOT registered AND NOT rejected"
	}
	query := `SELECT ` + landColumns + ` FROM land_records WHERE ` + clause + ` ORDER BY land_id`
	return p.list(ctx, query)
}

func (p *Postgres) ListByOwner(ctx context.Context, cred domain.Credential) ([]*Record, error) {
	query := `SELECT ` + landColumns + ` FROM land_records WHERE current_owner = $1 ORDER BY land_id`
	return p.list(ctx, query, cred.String())
}

func (p *Postgres) list(ctx context.Context, query string, args ...any) ([]*Record, error) {
	rows, err := p.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list land records: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list land records: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec        Record
		id         int64
		nationalID string
		owner      string
		decidedAt  sql.NullTime
	)
	err := row.Scan(
		&id, &rec.OwnerName, &nationalID, &rec.TitleNumber, &rec.Location,
		&rec.Size, &rec.LandType, &owner, &rec.Registered, &rec.Rejected,
		&rec.RejectReason, &rec.RequestedAt, &decidedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.ID = domain.LandID(id)
	rec.NationalID = domain.NationalID(nationalID)
	rec.CurrentOwner = domain.Credential(owner)
	if decidedAt.Valid {
		rec.DecidedAt = &decidedAt.Time
	}
	return &rec, nil
}

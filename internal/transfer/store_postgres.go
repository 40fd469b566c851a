package transfer

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

// Postgres persists transfer requests. A partial unique index on
// (land_id) WHERE decision = 'open' enforces the one-open-request invariant
// at the storage layer, so a bad load cannot resurrect a violation.
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

func (p *Postgres) Create(ctx context.Context, request *Request) error {
	query := `
		INSERT INTO transfer_requests
			(land_id, from_owner, to_national_id, proposed_owner_name, decision, requested_at, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := p.querier(ctx).ExecContext(ctx, query,
		request.LandID.Int64(),
		request.FromOwner.String(),
		request.ToNationalID.String(),
		request.ProposedOwnerName,
		string(request.Decision),
		request.RequestedAt,
		request.DecidedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create transfer request: %w", err)
	}
	return nil
}

func (p *Postgres) FindOpen(ctx context.Context, landID domain.LandID) (*Request, error) {
	query := `
		SELECT land_id, from_owner, to_national_id, proposed_owner_name, decision, requested_at, decided_at
		FROM transfer_requests
		WHERE land_id = $1 AND decision = 'open'
	`
	row := p.querier(ctx).QueryRowContext(ctx, query, landID.Int64())

	var (
		req        Request
		id         int64
		fromOwner  string
		toNational string
		decision   string
		decidedAt  sql.NullTime
	)
	err := row.Scan(&id, &fromOwner, &toNational, &req.ProposedOwnerName, &decision, &req.RequestedAt, &decidedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find open transfer: %w", err)
	}
	req.LandID = domain.LandID(id)
	req.FromOwner = domain.Credential(fromOwner)
	req.ToNationalID = domain.NationalID(toNational)
	req.Decision = Decision(decision)
	if decidedAt.Valid {
		req.DecidedAt = &decidedAt.Time
	}
	return &req, nil
}

func (p *Postgres) Resolve(ctx context.Context, request *Request) error {
	if request.IsOpen() {
		return sentinel.ErrInvalidState
	}
	query := `
		UPDATE transfer_requests
		SET decision = $2, decided_at = $3
		WHERE land_id = $1 AND decision = 'open'
	`
	res, err := p.querier(ctx).ExecContext(ctx, query,
		request.LandID.Int64(),
		string(request.Decision),
		request.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("resolve transfer request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve transfer request: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (p *Postgres) ListDecided(ctx context.Context, landID domain.LandID) ([]*Request, error) {
	query := `
		SELECT land_id, from_owner, to_national_id, proposed_owner_name, decision, requested_at, decided_at
		FROM transfer_requests
		WHERE land_id = $1 AND decision <> 'open'
		ORDER BY decided_at, id
	`
	rows, err := p.querier(ctx).QueryContext(ctx, query, landID.Int64())
	if err != nil {
		return nil, fmt.Errorf("list decided transfers: %w", err)
	}
	defer rows.Close()

	var history []*Request
	for rows.Next() {
		var (
			req        Request
			id         int64
			fromOwner  string
			toNational string
			decision   string
			decidedAt  sql.NullTime
		)
		err := rows.Scan(&id, &fromOwner, &toNational, &req.ProposedOwnerName, &decision, &req.RequestedAt, &decidedAt)
		if err != nil {
			return nil, fmt.Errorf("list decided transfers: %w", err)
		}
		req.LandID = domain.LandID(id)
		req.FromOwner = domain.Credential(fromOwner)
		req.ToNationalID = domain.NationalID(toNational)
		req.Decision = Decision(decision)
		if decidedAt.Valid {
			req.DecidedAt = &decidedAt.Time
		}
		history = append(history, &req)
	}
	return history, rows.Err()
}

func (p *Postgres) ListOpenIDs(ctx context.Context) ([]domain.LandID, error) {
	query := `SELECT land_id FROM transfer_requests WHERE decision = 'open' ORDER BY land_id`
	rows, err := p.querier(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list open transfers: %w", err)
	}
	defer rows.Close()

	var ids []domain.LandID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list open transfers: %w", err)
		}
		ids = append(ids, domain.LandID(id))
	}
	return ids, rows.Err()
}

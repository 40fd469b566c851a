package identity

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

// Postgres persists profiles in the identities table. The primary key on
// credential and the unique index on national_id mirror the in-memory
// store's invariants, so a reload cannot resurrect a violated constraint.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// querier picks the command transaction when one is in flight.
func (p *Postgres) querier(ctx context.Context) interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
} {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return p.db
}

func (p *Postgres) Create(ctx context.Context, profile *Profile) error {
	query := `
		INSERT INTO identities (credential, name, national_id, role, registered_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := p.querier(ctx).ExecContext(ctx, query,
		profile.Credential.String(),
		profile.Name,
		profile.NationalID.String(),
		profile.Role.String(),
		profile.RegisteredAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			if pqErr.Constraint == "identities_national_id_key" {
				return ErrNationalIDTaken
			}
			return ErrCredentialTaken
		}
		return fmt.Errorf("create identity: %w", err)
	}
	return nil
}

func (p *Postgres) FindByCredential(ctx context.Context, cred domain.Credential) (*Profile, error) {
	query := `
		SELECT credential, name, national_id, role, registered_at
		FROM identities
		WHERE credential = $1
	`
	return p.scanProfile(p.querier(ctx).QueryRowContext(ctx, query, cred.String()))
}

func (p *Postgres) FindByNationalID(ctx context.Context, nationalID domain.NationalID) (*Profile, error) {
	query := `
		SELECT credential, name, national_id, role, registered_at
		FROM identities
		WHERE national_id = $1
	`
	return p.scanProfile(p.querier(ctx).QueryRowContext(ctx, query, nationalID.String()))
}

func (p *Postgres) scanProfile(row *sql.Row) (*Profile, error) {
	var (
		profile    Profile
		cred       string
		nationalID string
		role       string
	)
	err := row.Scan(&cred, &profile.Name, &nationalID, &role, &profile.RegisteredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	profile.Credential = domain.Credential(cred)
	profile.NationalID = domain.NationalID(nationalID)
	profile.Role = domain.Role(role)
	return &profile, nil
}

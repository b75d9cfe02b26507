package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/dbx"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
)

// table describes where a variant's accounts live. Ops accounts carry no
// verification column and are reported as verified.
type table struct {
	name     string
	column   string
	verified string
}

var tables = map[models.Variant]table{
	models.VariantOps:    {name: "ops_users", column: "username", verified: "TRUE"},
	models.VariantClient: {name: "client_users", column: "email", verified: "verified"},
}

func tableFor(v models.Variant) (table, error) {
	t, ok := tables[v]
	if !ok {
		return table{}, fmt.Errorf("unknown variant %q: %w", v, common.ErrValidation)
	}
	return t, nil
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByIdentifier(ctx context.Context, variant models.Variant, identifier string) (*models.Principal, error) {
	t, err := tableFor(variant)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT id, %s, password_hash, %s, created_at FROM %s
		 WHERE %s = $1`, t.column, t.verified, t.name, t.column)

	p := &models.Principal{Variant: variant}
	err = r.db.QueryRowContext(ctx, query, identifier).
		Scan(&p.ID, &p.Identifier, &p.PasswordHash, &p.Verified, &p.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

// InsertIfAbsent relies on the UNIQUE constraint of the identifier column:
// a conflicting insert returns no row instead of failing.
func (r *PostgresRepository) InsertIfAbsent(ctx context.Context, p *models.Principal) (string, error) {
	t, err := tableFor(p.Variant)
	if err != nil {
		return "", err
	}

	var (
		query string
		args  []any
	)
	if p.Variant == models.VariantClient {
		query = `INSERT INTO client_users (email, password_hash, verified)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO NOTHING
		 RETURNING id, created_at`
		args = []any{p.Identifier, p.PasswordHash, p.Verified}
	} else {
		query = fmt.Sprintf(
			`INSERT INTO %s (%s, password_hash)
		 VALUES ($1, $2)
		 ON CONFLICT (%s) DO NOTHING
		 RETURNING id, created_at`, t.name, t.column, t.column)
		args = []any{p.Identifier, p.PasswordHash}
	}

	err = r.db.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrDuplicateIdentifier
		}
		return "", fmt.Errorf("db error: %w", err)
	}

	if p.Variant == models.VariantOps {
		p.Verified = true
	}
	return p.ID, nil
}

func (r *PostgresRepository) SetVerified(ctx context.Context, id string) error {
	query :=
		`UPDATE client_users SET verified = TRUE
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

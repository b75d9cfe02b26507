package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/dbx"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, file *models.File) error {
	query :=
		`INSERT INTO uploaded_files (id, filename, storage_key, content_type, size, uploaded_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING uploaded_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		file.ID, file.Filename, file.StorageKey, file.ContentType, file.Size, file.UploadedBy).Scan(&file.UploadedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query :=
		`SELECT id, filename, storage_key, content_type, size, uploaded_by, uploaded_at FROM uploaded_files
		 WHERE id = $1
		 `

	f := &models.File{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&f.ID, &f.Filename, &f.StorageKey, &f.ContentType, &f.Size, &f.UploadedBy, &f.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrFileNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return f, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.File, error) {
	query :=
		`SELECT id, filename, storage_key, content_type, size, uploaded_by, uploaded_at FROM uploaded_files
		 ORDER BY uploaded_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		f := &models.File{}
		if err := rows.Scan(&f.ID, &f.Filename, &f.StorageKey, &f.ContentType, &f.Size, &f.UploadedBy, &f.UploadedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM uploaded_files WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrFileNotFound
	}
	return nil
}

package principals

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-hr/odyssey-hr/internal/access"
)

// DBTX is the subset of pgxpool.Pool used by the repository.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Finder loads principal records.
type Finder interface {
	FindPrincipal(ctx context.Context, id int64) (Record, error)
}

// Repository reads accounts, roles and role grants from PostgreSQL.
type Repository struct {
	db DBTX
}

// NewRepository constructs a repository over db.
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

const findAccountSQL = `SELECT u.id, u.status, COALESCE(r.name, '')
FROM users u
LEFT JOIN roles r ON r.id = u.role_id
WHERE u.id = $1`

const listGrantsSQL = `SELECT p.module, p.action, p.resource
FROM users u
JOIN role_permissions rp ON rp.role_id = u.role_id
JOIN permissions p ON p.id = rp.permission_id
WHERE u.id = $1
ORDER BY p.module, p.action, p.resource`

// FindPrincipal loads the account with its role label and granted permissions.
func (r *Repository) FindPrincipal(ctx context.Context, id int64) (Record, error) {
	rec := Record{ID: id}
	if err := r.db.QueryRow(ctx, findAccountSQL, id).Scan(&rec.ID, &rec.Status, &rec.Role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("principals: find account: %w", err)
	}

	rows, err := r.db.Query(ctx, listGrantsSQL, id)
	if err != nil {
		return Record{}, fmt.Errorf("principals: list grants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p access.RawPermission
		if err := rows.Scan(&p.Module, &p.Action, &p.Resource); err != nil {
			return Record{}, fmt.Errorf("principals: scan grant: %w", err)
		}
		rec.Permissions = append(rec.Permissions, p)
	}
	if err := rows.Err(); err != nil {
		return Record{}, fmt.Errorf("principals: list grants: %w", err)
	}
	return rec, nil
}

var _ Finder = (*Repository)(nil)

// Package store persists saved mappings.
//
// PostgresStore keeps them in one table with the details as JSONB.
// MemoryStore is used when no database is configured and in tests.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/sheetmap/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Schema creates the mapping table. Migrate runs it. Tables created before
// departments existed gain the column and the wider unique key.
const Schema = `
CREATE TABLE IF NOT EXISTS mapping_configs (
    id                 UUID PRIMARY KEY,
    name               TEXT NOT NULL,
    catalog_key        TEXT NOT NULL,
    department_id      INTEGER NOT NULL DEFAULT 0,
    template_file_name TEXT NOT NULL DEFAULT '',
    header_mode        BOOLEAN NOT NULL DEFAULT FALSE,
    details            JSONB NOT NULL,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
ALTER TABLE mapping_configs ADD COLUMN IF NOT EXISTS department_id INTEGER NOT NULL DEFAULT 0;
ALTER TABLE mapping_configs DROP CONSTRAINT IF EXISTS mapping_configs_catalog_name_unique;
CREATE UNIQUE INDEX IF NOT EXISTS mapping_configs_catalog_dept_name_unique
    ON mapping_configs (catalog_key, department_id, name);
CREATE INDEX IF NOT EXISTS mapping_configs_catalog_idx ON mapping_configs (catalog_key);
`

const selectColumns = `id, name, catalog_key, department_id, template_file_name, header_mode, details, created_at, updated_at`

// PostgresStore implements core.MappingStore on PostgreSQL.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore wraps a pool or connection.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the table and index if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate mapping_configs: %w", err)
	}
	return nil
}

// Create inserts m with a fresh ID.
func (s *PostgresStore) Create(ctx context.Context, m core.SavedMapping) (core.SavedMapping, error) {
	details, err := json.Marshal(m.Details)
	if err != nil {
		return core.SavedMapping{}, fmt.Errorf("marshal details: %w", err)
	}

	id := uuid.New()
	row := s.db.QueryRow(ctx, `
		INSERT INTO mapping_configs (id, name, catalog_key, department_id, template_file_name, header_mode, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+selectColumns,
		toPgUUID(id), m.Name, m.CatalogKey, m.Department, m.TemplateFileName, m.HeaderMode, details,
	)

	saved, err := scanMapping(row)
	if err != nil {
		return core.SavedMapping{}, translate(err, m.Name)
	}
	return saved, nil
}

// Get returns the mapping with the given ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (core.SavedMapping, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return core.SavedMapping{}, fmt.Errorf("%w: %s", core.ErrMappingNotFound, id)
	}

	row := s.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM mapping_configs WHERE id = $1`, toPgUUID(uid))
	m, err := scanMapping(row)
	if err != nil {
		return core.SavedMapping{}, translate(err, id)
	}
	return m, nil
}

// List returns mappings passing f ordered by catalog, name then department.
func (s *PostgresStore) List(ctx context.Context, f core.MappingFilter) ([]core.SavedMapping, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+selectColumns+`
		FROM mapping_configs
		WHERE ($1 = '' OR catalog_key = $1)
		  AND ($2 = 0 OR department_id = $2 OR department_id = 0)
		ORDER BY catalog_key, name, department_id`,
		f.CatalogKey, f.Department,
	)
	if err != nil {
		return nil, fmt.Errorf("query mappings: %w", err)
	}
	defer rows.Close()

	out := []core.SavedMapping{}
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mappings: %w", err)
	}
	return out, nil
}

// Update replaces the mutable columns of m.
func (s *PostgresStore) Update(ctx context.Context, m core.SavedMapping) (core.SavedMapping, error) {
	uid, err := uuid.Parse(m.ID)
	if err != nil {
		return core.SavedMapping{}, fmt.Errorf("%w: %s", core.ErrMappingNotFound, m.ID)
	}

	details, err := json.Marshal(m.Details)
	if err != nil {
		return core.SavedMapping{}, fmt.Errorf("marshal details: %w", err)
	}

	row := s.db.QueryRow(ctx, `
		UPDATE mapping_configs
		SET name = $2, department_id = $3, template_file_name = $4, header_mode = $5, details = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+selectColumns,
		toPgUUID(uid), m.Name, m.Department, m.TemplateFileName, m.HeaderMode, details,
	)

	saved, err := scanMapping(row)
	if err != nil {
		return core.SavedMapping{}, translate(err, m.ID)
	}
	return saved, nil
}

// Delete removes the mapping with the given ID.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %s", core.ErrMappingNotFound, id)
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM mapping_configs WHERE id = $1`, toPgUUID(uid))
	if err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", core.ErrMappingNotFound, id)
	}
	return nil
}

// scanMapping reads one row in selectColumns order.
func scanMapping(row pgx.Row) (core.SavedMapping, error) {
	var (
		m         core.SavedMapping
		id        pgtype.UUID
		details   []byte
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &m.Name, &m.CatalogKey, &m.Department, &m.TemplateFileName, &m.HeaderMode, &details, &createdAt, &updatedAt); err != nil {
		return core.SavedMapping{}, err
	}
	if err := json.Unmarshal(details, &m.Details); err != nil {
		return core.SavedMapping{}, fmt.Errorf("unmarshal details: %w", err)
	}

	m.ID = pgUUIDToString(id)
	m.CreatedAt = createdAt
	m.UpdatedAt = updatedAt
	return m, nil
}

// translate maps driver errors onto the core sentinels.
func translate(err error, ref string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", core.ErrMappingNotFound, ref)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", core.ErrDuplicateMapping, ref)
	}
	return err
}

func toPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

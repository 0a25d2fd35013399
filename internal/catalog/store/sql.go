package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Dialect define os placeholders do driver
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// SQL guarda cada coleção como uma linha de catalog_collections
// O upsert da linha é um único comando, atômico para leitores
type SQL struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQL cria a tabela se necessário
func NewSQL(ctx context.Context, db *sql.DB, dialect Dialect) (*SQL, error) {
	s := &SQL{db: db, dialect: dialect}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate catalog_collections: %w", err)
	}
	return s, nil
}

func (s *SQL) migrate(ctx context.Context) error {
	itemsType := "TEXT"
	if s.dialect == Postgres {
		itemsType = "JSONB"
	}
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS catalog_collections (
			name       TEXT PRIMARY KEY,
			items      `+itemsType+` NOT NULL,
			updated_at TEXT NOT NULL
		)`)
	return err
}

func (s *SQL) bind(q string) string {
	if s.dialect == Postgres {
		return q
	}
	// sqlite: $1.. => ?
	out := make([]byte, 0, len(q))
	for i := 0; i < len(q); i++ {
		if q[i] == '$' {
			out = append(out, '?')
			for i+1 < len(q) && q[i+1] >= '0' && q[i+1] <= '9' {
				i++
			}
			continue
		}
		out = append(out, q[i])
	}
	return string(out)
}

func (s *SQL) Load(ctx context.Context, name string) ([]byte, error) {
	var items string
	err := s.db.QueryRowContext(ctx, s.bind(`SELECT items FROM catalog_collections WHERE name = $1`), name).Scan(&items)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(items), nil
}

func (s *SQL) Save(ctx context.Context, name string, data []byte) error {
	const q = `
		INSERT INTO catalog_collections (name, items, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET
		  items      = EXCLUDED.items,
		  updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, s.bind(q), name, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQL) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Package postgres implements the document-store contract on top of
// JSONB tables, one table per collection. It serves the server
// profile; semantics match the memory driver.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/medrec/clinic-api/internal/store"
)

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type Store struct {
	db *sqlx.DB
}

func New(cfg Config) (*Store, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Store{db: db}, nil
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

// collectionTables maps collection names to their backing tables. Only
// names in this allowlist ever reach SQL text.
var collectionTables = map[string]string{
	store.CollPatients:   "patients",
	store.CollVisits:     "visits",
	store.CollHistories:  "medical_histories",
	store.CollUsers:      "users",
	store.CollPrivileges: "privileges",
	store.CollFiles:      "files",
	store.CollCanvases:   "canvases",
	store.CollAudit:      "audit_log",
}

func (s *Store) Collection(name string) store.Collection {
	table, ok := collectionTables[name]
	if !ok {
		panic(fmt.Sprintf("postgres: unknown collection %q", name))
	}
	return &collection{db: s.db, table: table}
}

func (s *Store) Blobs() store.BlobStore {
	return &blobStore{db: s.db}
}

// Migrate creates the JSONB tables and the unique indexes the access
// layer relies on.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{}
	for _, table := range collectionTables {
		stmts = append(stmts,
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				doc JSONB NOT NULL
			)`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_created_at_idx ON %s (((doc->>'createdAt')::bigint))`, table, table),
		)
	}
	stmts = append(stmts,
		`CREATE UNIQUE INDEX IF NOT EXISTS patients_social_id_idx ON patients ((doc->>'socialId'))`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_username_idx ON users ((doc->>'username'))`,
		`CREATE TABLE IF NOT EXISTS blobs (
			id TEXT PRIMARY KEY,
			content BYTEA NOT NULL
		)`,
	)
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

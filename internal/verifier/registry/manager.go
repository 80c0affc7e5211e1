package registry

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/photolock/photolock/internal/verifier/migrations"
	"github.com/pressly/goose/v3"
)

// Manager vends PostgreSQL-backed repository implementations over one
// connection pool and exposes a schema migration hook.
type Manager struct {
	db *sql.DB
}

func (m *Manager) Conn() *sql.DB {
	return m.db
}

func (m *Manager) Cameras() CameraRepository {
	return NewPostgresCameraRepository(m.db)
}

func (m *Manager) Records() RecordRepository {
	return NewPostgresRecordRepository(m.db)
}

func (m *Manager) Contacts() ContactRepository {
	return NewPostgresContactRepository(m.db)
}

// gooseUpContext is a seam for testing RunMigrations.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the pool.
func (m *Manager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, m.db, "."); err != nil {
		return err
	}
	return nil
}

// NewManager opens the pool and migrates the schema.
func NewManager(dsn string) (*Manager, error) {

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := &Manager{db: db}

	if err := m.RunMigrations(context.Background()); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}

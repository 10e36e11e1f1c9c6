package nvs

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SQLStore keeps namespaces in a SQLite database, one row per key.
type SQLStore struct {
	db  *sqlx.DB
	log *zap.Logger
}

// OpenSQLStore connects to (or creates) the SQLite database at dbName.
func OpenSQLStore(dbName string, log *zap.Logger) (*SQLStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sqlx.Connect("sqlite3", dbName)
	if err != nil {
		log.Error("Failed to connect to database", zap.String("db", dbName), zap.Error(err))
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}

	s := &SQLStore{db: db, log: log}
	if err := s.createTable(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) createTable() error {
	schema := `
    CREATE TABLE IF NOT EXISTS nvs (
        namespace TEXT NOT NULL,
        key TEXT NOT NULL,
        value TEXT NOT NULL,
        PRIMARY KEY (namespace, key)
    );
`
	if _, err := s.db.Exec(schema); err != nil {
		s.log.Error("Failed to create nvs table", zap.Error(err))
		return fmt.Errorf("failed to create nvs table: %w", err)
	}
	return nil
}

func (s *SQLStore) Open(namespace string, mode Mode) (Handle, error) {
	return openHandle(s, s.log, namespace, mode)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) get(namespace, key string) (string, error) {
	var value string
	err := s.db.Get(&value, `SELECT value FROM nvs WHERE namespace = ? AND key = ?`, namespace, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query key: %w", err)
	}
	return value, nil
}

func (s *SQLStore) exists(namespace string) (bool, error) {
	var n int
	if err := s.db.Get(&n, `SELECT COUNT(*) FROM nvs WHERE namespace = ?`, namespace); err != nil {
		return false, fmt.Errorf("failed to query namespace: %w", err)
	}
	return n > 0, nil
}

func (s *SQLStore) put(namespace string, entries map[string]string) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for k, v := range entries {
		_, err := tx.Exec(`INSERT INTO nvs (namespace, key, value) VALUES (?, ?, ?)
            ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value`, namespace, k, v)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to write key %q: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

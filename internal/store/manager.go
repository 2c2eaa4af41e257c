package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Ning0612/Explorer/internal/domain"
)

// DatabaseName is the file created inside the data directory
const DatabaseName = "explorer.db"

// Edit statuses
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Manager persists the resource collections and the edit history
type Manager struct {
	db *sql.DB
}

// EditRecord represents a single recorded edit
type EditRecord struct {
	ID          int64
	Operation   string // "rename", "move", "copy", "trash", "restore", "import"
	Target      string
	Destination string
	StartTime   time.Time
	EndTime     time.Time
	Status      string // "success", "failed"
	Changed     int
	Error       string
}

// NewManager opens (or creates) the store in dataDir
func NewManager(dataDir string) (*Manager, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataDir, DatabaseName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection avoids "database is locked" between writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode and busy timeout: %w", err)
	}

	manager := &Manager{db: db}
	if err := manager.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return manager, nil
}

func (m *Manager) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS resources (
		path TEXT NOT NULL,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		empty INTEGER NOT NULL DEFAULT 0,
		trashed INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL,
		PRIMARY KEY (path, trashed)
	);

	CREATE INDEX IF NOT EXISTS idx_resources_trashed ON resources(trashed, position);

	CREATE TABLE IF NOT EXISTS edits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		operation TEXT NOT NULL,
		target TEXT NOT NULL,
		destination TEXT,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		changed INTEGER DEFAULT 0,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_edits_time ON edits(start_time DESC);
	`

	_, err := m.db.Exec(schema)
	return err
}

// LoadResources returns the active collection in stored order
func (m *Manager) LoadResources() ([]domain.Resource, error) {
	return m.load(false)
}

// LoadTrash returns the trashed collection in stored order
func (m *Manager) LoadTrash() ([]domain.Resource, error) {
	return m.load(true)
}

func (m *Manager) load(trashed bool) ([]domain.Resource, error) {
	rows, err := m.db.Query(`
		SELECT id, name, path, type, empty
		FROM resources
		WHERE trashed = ?
		ORDER BY position
	`, trashed)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}
	defer rows.Close()

	resources := []domain.Resource{}
	for rows.Next() {
		var r domain.Resource
		var typ string
		if err := rows.Scan(&r.ID, &r.Name, &r.Path, &typ, &r.Empty); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		r.Type = domain.ResourceType(typ)
		resources = append(resources, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resources: %w", err)
	}

	return resources, nil
}

// ReplaceResources rewrites both collections in one transaction. Paths must
// be unique within each collection; a trashed path may be active again.
func (m *Manager) ReplaceResources(active, trashed []domain.Resource) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM resources"); err != nil {
		return fmt.Errorf("failed to clear resources: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO resources (path, id, name, type, empty, trashed, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	insert := func(resources []domain.Resource, isTrashed bool) error {
		for i, r := range resources {
			if !r.Type.IsValid() {
				return fmt.Errorf("invalid type %q for %s", r.Type, r.Path)
			}
			if _, err := stmt.Exec(r.Path, r.ID, r.Name, string(r.Type), r.Empty, isTrashed, i); err != nil {
				return fmt.Errorf("failed to insert %s: %w", r.Path, err)
			}
		}
		return nil
	}

	if err := insert(active, false); err != nil {
		return err
	}
	if err := insert(trashed, true); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit resources: %w", err)
	}
	return nil
}

// SaveEdit records an edit
func (m *Manager) SaveEdit(record EditRecord) error {
	if record.Status != StatusSuccess && record.Status != StatusFailed {
		return fmt.Errorf("invalid status: %s (must be 'success' or 'failed')", record.Status)
	}

	_, err := m.db.Exec(`
		INSERT INTO edits (operation, target, destination, start_time, end_time, status, changed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.Operation,
		record.Target,
		record.Destination,
		record.StartTime,
		record.EndTime,
		record.Status,
		record.Changed,
		record.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save edit record: %w", err)
	}

	return nil
}

// GetHistory returns the most recent edits, newest first
func (m *Manager) GetHistory(limit int) ([]EditRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	rows, err := m.db.Query(`
		SELECT id, operation, target, destination, start_time, end_time, status, changed, error
		FROM edits
		ORDER BY start_time DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []EditRecord
	for rows.Next() {
		record, err := scanEdit(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

// GetLastEdit returns the most recent edit, or nil when there is none
func (m *Manager) GetLastEdit() (*EditRecord, error) {
	row := m.db.QueryRow(`
		SELECT id, operation, target, destination, start_time, end_time, status, changed, error
		FROM edits
		ORDER BY start_time DESC, id DESC
		LIMIT 1
	`)

	record, err := scanEdit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &record, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEdit(s scanner) (EditRecord, error) {
	var record EditRecord
	var destination, errText sql.NullString
	err := s.Scan(
		&record.ID,
		&record.Operation,
		&record.Target,
		&destination,
		&record.StartTime,
		&record.EndTime,
		&record.Status,
		&record.Changed,
		&errText,
	)
	if err == sql.ErrNoRows {
		return record, err
	}
	if err != nil {
		return record, fmt.Errorf("failed to scan record: %w", err)
	}
	record.Destination = destination.String
	record.Error = errText.String
	return record, nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

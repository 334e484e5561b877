package repository

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/abrezinsky/gatecheck/internal/models"
)

// Journal list bounds
const (
	DefaultScanLimit = 50
	MaxScanLimit     = 500
)

// Repository provides data access methods
type Repository struct {
	db *sql.DB
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// SQLite works best with a single connection; it also keeps :memory: databases shared
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

// DB returns the underlying database connection
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS scans (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			code TEXT NOT NULL,
			raw_text TEXT,
			format TEXT,
			source TEXT NOT NULL DEFAULT 'camera',
			kind TEXT NOT NULL,
			message TEXT,
			attendee TEXT,
			event_title TEXT,
			checked_in_at TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_code ON scans(code)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_kind ON scans(kind)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}

	// checkin_url stays empty here; app seeds it from configuration on first start
	defaultSettings := map[string]string{
		SettingCheckInURL:  "",
		SettingEventLabel:  "",
		SettingTicketQRURL: "",
	}

	for key, value := range defaultSettings {
		_, err := r.db.Exec(`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`, key, value)
		if err != nil {
			return err
		}
	}

	return nil
}

// ==================== Scan Methods ====================

// RecordScan appends an answered validation to the journal
func (r *Repository) RecordScan(ctx context.Context, rec models.ScanRecord) (int64, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO scans (session_id, code, raw_text, format, source, kind, message, attendee, event_title, checked_in_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.SessionID, rec.Code, rec.RawText, rec.Format, rec.Source, string(rec.Kind), rec.Message,
		rec.Attendee, rec.EventTitle, rec.CheckedInAt, rec.CreatedAt.UTC())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ListScans returns the newest journal entries first. limit is clamped to MaxScanLimit;
// zero or negative means DefaultScanLimit.
func (r *Repository) ListScans(ctx context.Context, limit int) ([]models.ScanRecord, error) {
	if limit <= 0 {
		limit = DefaultScanLimit
	}
	if limit > MaxScanLimit {
		limit = MaxScanLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, code, raw_text, format, source, kind, message, attendee, event_title, checked_in_at, created_at
		FROM scans
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scans := []models.ScanRecord{}
	for rows.Next() {
		var rec models.ScanRecord
		var kind string
		var rawText, format, message, attendee, eventTitle, checkedInAt sql.NullString
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Code, &rawText, &format, &rec.Source, &kind,
			&message, &attendee, &eventTitle, &checkedInAt, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Kind = models.OutcomeKind(kind)
		rec.RawText = rawText.String
		rec.Format = format.String
		rec.Message = message.String
		rec.Attendee = attendee.String
		rec.EventTitle = eventTitle.String
		rec.CheckedInAt = checkedInAt.String
		scans = append(scans, rec)
	}
	return scans, rows.Err()
}

// ScanStats counts journal entries per outcome kind. Every kind is present in the result.
func (r *Repository) ScanStats(ctx context.Context) (models.ScanStats, error) {
	stats := models.ScanStats{ByKind: make(map[models.OutcomeKind]int, len(models.OutcomeKinds))}
	for _, k := range models.OutcomeKinds {
		stats.ByKind[k] = 0
	}

	rows, err := r.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM scans GROUP BY kind`)
	if err != nil {
		return models.ScanStats{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return models.ScanStats{}, err
		}
		stats.ByKind[models.OutcomeKind(kind)] = count
		stats.Total += count
	}
	return stats, rows.Err()
}

// CountScansForCode returns how many journal entries exist for a ticket code
func (r *Repository) CountScansForCode(ctx context.Context, code string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scans WHERE code = ?`, code).Scan(&count)
	return count, err
}

// ClearScans empties the journal
func (r *Repository) ClearScans(ctx context.Context) error {
	return r.ClearTable(ctx, "scans")
}

// ==================== Settings Methods ====================

// GetSetting retrieves a setting value
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// SetSetting updates a setting value
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}

// ListSettings returns every stored setting
func (r *Repository) ListSettings(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

// validTables defines which tables can be safely cleared
var validTables = map[string]bool{
	"scans": true, "settings": true,
}

// ClearTable clears all data from a table
// Only allows clearing whitelisted tables to prevent SQL injection
func (r *Repository) ClearTable(ctx context.Context, table string) error {
	if !validTables[table] {
		return ErrInvalidTable
	}

	// Safe to use string concatenation now that we've validated the table name
	_, err := r.db.ExecContext(ctx, "DELETE FROM "+table)
	return err
}

package pilot

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS pilot_indicators (
	id           TEXT PRIMARY KEY,
	category     TEXT NOT NULL,
	observed_at  TEXT NOT NULL,
	pass         INTEGER NOT NULL,
	score        REAL NOT NULL,
	evidence_ref TEXT
);

CREATE INDEX IF NOT EXISTS idx_pilot_category_time
	ON pilot_indicators (category, observed_at);
`

// tsFormat keeps a fixed-width fractional second so the TEXT column compares
// lexically in true time order; RFC3339Nano trims trailing zeros and breaks
// sub-second ordering.
const tsFormat = "2006-01-02T15:04:05.000000000Z07:00"

// #endregion schema

// #region store
// Store is the append-only SQLite log of pilot indicator records.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion store

// #region append
// Append stores one indicator record. Records are never updated or deleted.
func (s *Store) Append(rec IndicatorRecord) (IndicatorRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Category == "" {
		return IndicatorRecord{}, fmt.Errorf("pilot append: empty category")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	pass := 0
	if rec.Pass {
		pass = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO pilot_indicators (id, category, observed_at, pass, score, evidence_ref)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Category), rec.Timestamp.UTC().Format(tsFormat),
		pass, rec.Score, rec.EvidenceRef,
	)
	if err != nil {
		return IndicatorRecord{}, fmt.Errorf("insert indicator: %w", err)
	}
	return rec, nil
}

// #endregion append

// #region list
// ListWindow returns a category's records with observed_at in [from, to],
// oldest first.
func (s *Store) ListWindow(cat Category, from, to time.Time) ([]IndicatorRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, category, observed_at, pass, score, evidence_ref
		 FROM pilot_indicators
		 WHERE category = ? AND observed_at >= ? AND observed_at <= ?
		 ORDER BY observed_at ASC`,
		string(cat), from.UTC().Format(tsFormat), to.UTC().Format(tsFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("list indicators: %w", err)
	}
	defer rows.Close()

	var out []IndicatorRecord
	for rows.Next() {
		var rec IndicatorRecord
		var cat string
		var ts string
		var pass int
		var evidence sql.NullString
		if err := rows.Scan(&rec.ID, &cat, &ts, &pass, &rec.Score, &evidence); err != nil {
			return nil, fmt.Errorf("scan indicator: %w", err)
		}
		rec.Category = Category(cat)
		rec.Pass = pass != 0
		if evidence.Valid {
			rec.EvidenceRef = evidence.String
		}
		rec.Timestamp, err = time.Parse(tsFormat, ts)
		if err != nil {
			return nil, fmt.Errorf("parse observed_at: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// #endregion list

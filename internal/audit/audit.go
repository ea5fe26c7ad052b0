// Package audit keeps an operator-facing log of rule store operations in
// sqlite. The rule store itself is memory-only; the audit trail records
// who asked for what and how it went, it is never replayed into state.
package audit

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	ts      DATETIME NOT NULL,
	op      TEXT NOT NULL,
	uid     INTEGER NOT NULL,
	rule    TEXT NOT NULL,
	outcome TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_log_ts ON audit_log (ts);
`

// Entry is one recorded operation.
type Entry struct {
	ID        int64     `db:"id" json:"id"`
	Timestamp time.Time `db:"ts" json:"ts"`
	Op        string    `db:"op" json:"op"`
	UID       uint32    `db:"uid" json:"uid"`
	Rule      string    `db:"rule" json:"rule"`
	Outcome   string    `db:"outcome" json:"outcome"`
}

// Logger writes audit entries to a sqlite database.
type Logger struct {
	db *sqlx.DB
}

// New creates the audit schema and returns a logger over db. The logger
// does not own the connection; callers close it on shutdown.
func New(db *sqlx.DB) (*Logger, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	return &Logger{db: db}, nil
}

// Record stores one operation. Auditing is best-effort: a failed insert
// is logged and dropped, it never fails the operation being audited.
func (l *Logger) Record(op string, uid uint32, rule string, outcome string) {
	_, err := l.db.Exec(
		`INSERT INTO audit_log (ts, op, uid, rule, outcome) VALUES (?, ?, ?, ?, ?)`,
		time.Now().UTC(), op, uid, rule, outcome,
	)
	if err != nil {
		slog.Error("audit record error", "op", op, "uid", uid, "error", err)
	}
}

// Recent returns up to limit entries, newest first.
func (l *Logger) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []Entry
	err := l.db.Select(&entries,
		`SELECT id, ts, op, uid, rule, outcome FROM audit_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	return entries, nil
}

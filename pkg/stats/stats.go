// Package stats keeps a sqlite ledger of what a run produced: every
// folder, file, and metadata sidecar with how long it took, plus a
// localized end-of-run summary.
package stats

import (
	"database/sql"
	"fmt"
	"io"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/arbordoc/arbordoc/pkg/locale"
)

// Item kinds recorded in the ledger.
const (
	KindFolder  = "folder"
	KindFile    = "file"
	KindSidecar = "sidecar"
)

// Tracker records run items. A nil Tracker is valid and records nothing,
// so callers do not have to guard every Record call.
type Tracker struct {
	db      *sql.DB
	runID   int64
	started time.Time
}

// Open creates or reuses the ledger database at dbPath and starts a new run.
func Open(dbPath string) (*Tracker, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open stats ledger: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TIMESTAMP,
		industry TEXT,
		language TEXT
	);

	CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER REFERENCES runs(id),
		kind TEXT,
		path TEXT,
		duration_ms INTEGER,
		created_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_items_run_kind ON items(run_id, kind);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init stats schema: %w", err)
	}

	t := &Tracker{db: db, started: time.Now()}
	return t, nil
}

// Begin stamps the run row. Safe to call once, before any Record.
func (t *Tracker) Begin(industry, language string) error {
	if t == nil {
		return nil
	}
	res, err := t.db.Exec(
		"INSERT INTO runs (started_at, industry, language) VALUES (?, ?, ?)",
		t.started, industry, language,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	t.runID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Record adds one produced item to the ledger. Failures are logged, not
// returned: bookkeeping must never break generation.
func (t *Tracker) Record(kind, path string, duration time.Duration) {
	if t == nil {
		return
	}
	_, err := t.db.Exec(
		"INSERT INTO items (run_id, kind, path, duration_ms, created_at) VALUES (?, ?, ?, ?, ?)",
		t.runID, kind, path, duration.Milliseconds(), time.Now(),
	)
	if err != nil {
		logrus.Warnf("stats: could not record %s %s: %v", kind, path, err)
	}
}

// Count returns how many items of one kind this run recorded.
func (t *Tracker) Count(kind string) int {
	if t == nil {
		return 0
	}
	var n int
	err := t.db.QueryRow(
		"SELECT COUNT(*) FROM items WHERE run_id = ? AND kind = ?", t.runID, kind,
	).Scan(&n)
	if err != nil {
		logrus.Warnf("stats: count %s: %v", kind, err)
		return 0
	}
	return n
}

// Summary writes the localized end-of-run report to w.
func (t *Tracker) Summary(w io.Writer, lang string) {
	if t == nil {
		return
	}
	line := func(key string, vars map[string]string) {
		template, err := locale.Get(key, lang)
		if err != nil {
			logrus.Warnf("stats: %v", err)
			return
		}
		fmt.Fprintln(w, locale.Render(template, vars))
	}

	header, err := locale.Get("statistics.summary_header", lang)
	if err == nil {
		fmt.Fprintln(w, header)
	}
	line("statistics.folders_created", map[string]string{"count": fmt.Sprint(t.Count(KindFolder))})
	line("statistics.files_created", map[string]string{"count": fmt.Sprint(t.Count(KindFile))})
	line("statistics.sidecars_written", map[string]string{"count": fmt.Sprint(t.Count(KindSidecar))})
	line("statistics.elapsed", map[string]string{"duration": time.Since(t.started).Round(time.Millisecond).String()})
}

// Close releases the ledger database.
func (t *Tracker) Close() error {
	if t == nil {
		return nil
	}
	return t.db.Close()
}

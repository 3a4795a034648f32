package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"StakeVault/internal/model"
)

// SQLiteRecorder persists events and pool snapshots to a SQLite database.
// Ledger amounts are stored as decimal text since they may exceed int64.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the daemon writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stake_events (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id     TEXT NOT NULL UNIQUE,
			timestamp    INTEGER NOT NULL,
			recorded_at  INTEGER NOT NULL,
			kind         TEXT NOT NULL,
			account      TEXT,
			amount       TEXT,
			period_index INTEGER,
			rate_bps     INTEGER,
			period_start INTEGER,
			note         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_ts ON stake_events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_events_account ON stake_events(account, timestamp)`,

		`CREATE TABLE IF NOT EXISTS pool_snapshots (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp        INTEGER NOT NULL,
			total_deposited  TEXT,
			total_yield_paid TEXT,
			available_yield  TEXT,
			liabilities      TEXT,
			accounts         INTEGER,
			period_index     INTEGER,
			rate_bps         INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pool_ts ON pool_snapshots(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordEvent(evt *model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO stake_events
		(event_id, timestamp, recorded_at, kind, account, amount, period_index, rate_bps, period_start, note)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		evt.ID, evt.At.Unix(), time.Now().Unix(), string(evt.Kind), evt.Account,
		strconv.FormatUint(evt.Amount, 10), evt.PeriodIndex, int64(evt.RateBps), evt.PeriodStart, evt.Note,
	)
	return err
}

func (r *SQLiteRecorder) RecordPoolSnapshot(snap *PoolSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := snap.Pool
	_, err := r.db.Exec(`INSERT INTO pool_snapshots
		(timestamp, total_deposited, total_yield_paid, available_yield, liabilities, accounts, period_index, rate_bps)
		VALUES (?,?,?,?,?,?,?,?)`,
		time.Now().Unix(),
		strconv.FormatUint(p.TotalDeposited, 10), strconv.FormatUint(p.TotalYieldPaid, 10),
		strconv.FormatUint(p.AvailableYield, 10), strconv.FormatUint(snap.Liabilities, 10),
		snap.Accounts, snap.PeriodIndex, int64(snap.RateBps),
	)
	return err
}

const eventColumns = `id, event_id, timestamp, kind, account, amount, period_index, rate_bps, period_start, note`

// RecentEvents returns up to limit events, newest operation time first.
func (r *SQLiteRecorder) RecentEvents(limit int) ([]model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT `+eventColumns+`
		FROM stake_events ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// EventsSince returns up to limit events recorded after seq, oldest first.
// Operation times may be backdated, so the row id orders them, not the timestamp.
func (r *SQLiteRecorder) EventsSince(seq int64, limit int) ([]model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT `+eventColumns+`
		FROM stake_events WHERE id > ? ORDER BY id ASC LIMIT ?`, seq, limit)
	if err != nil {
		return nil, fmt.Errorf("query events since %d: %w", seq, err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *SQLiteRecorder) LatestSeq() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var seq int64
	if err := r.db.QueryRow(`SELECT COALESCE(MAX(id), 0) FROM stake_events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query latest event: %w", err)
	}
	return seq, nil
}

func scanEvents(rows *sql.Rows) ([]model.Event, error) {
	var out []model.Event
	for rows.Next() {
		var (
			evt    model.Event
			ts     int64
			kind   string
			amount string
			rate   int64
		)
		if err := rows.Scan(&evt.Seq, &evt.ID, &ts, &kind, &evt.Account, &amount, &evt.PeriodIndex, &rate, &evt.PeriodStart, &evt.Note); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.At = time.Unix(ts, 0).UTC()
		evt.Kind = model.EventKind(kind)
		evt.RateBps = uint64(rate)
		var err error
		if evt.Amount, err = strconv.ParseUint(amount, 10, 64); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

// Observe records evt, logging failures. It matches staking.Observer.
func (r *SQLiteRecorder) Observe(evt model.Event) {
	if err := r.RecordEvent(&evt); err != nil {
		log.Printf("[ERROR] record event %s: %v", evt.Kind, err)
	}
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}

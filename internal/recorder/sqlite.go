package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accrual_ticks (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp        INTEGER NOT NULL,
			session_id       TEXT,
			eligible         INTEGER,
			tokens_added     INTEGER,
			task_completed   INTEGER,
			is_charging      INTEGER,
			is_idle          INTEGER,
			is_online        INTEGER,
			battery_level    INTEGER,
			tokens           INTEGER,
			contribution_min INTEGER,
			co2_saved_kg     REAL,
			tasks_completed  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ticks_ts ON accrual_ticks(timestamp)`,

		`CREATE TABLE IF NOT EXISTS redemptions (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			session_id    TEXT,
			amount        INTEGER,
			success       INTEGER,
			tokens_before INTEGER,
			tokens_after  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_redemptions_ts ON redemptions(timestamp)`,

		`CREATE TABLE IF NOT EXISTS device_snapshots (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			session_id     TEXT,
			is_charging    INTEGER,
			battery_level  INTEGER,
			is_online      INTEGER,
			network_type   TEXT,
			is_idle        INTEGER,
			screen_time    INTEGER,
			last_activity  INTEGER,
			power_live     INTEGER,
			network_live   INTEGER,
			score          INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON device_snapshots(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordTick(evt *TickEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := evt.Status
	_, err := r.db.Exec(`INSERT INTO accrual_ticks
		(timestamp, session_id, eligible, tokens_added, task_completed,
		 is_charging, is_idle, is_online, battery_level,
		 tokens, contribution_min, co2_saved_kg, tasks_completed)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.now().Unix(), evt.SessionID, evt.Eligible, evt.TokensAdded, evt.TaskCompleted,
		st.IsCharging, st.IsIdle, st.IsOnline, st.BatteryLevel,
		evt.State.Tokens, evt.State.ContributionMinutes, evt.State.CO2SavedKg, evt.State.TasksCompleted,
	)
	return err
}

func (r *SQLiteRecorder) RecordRedemption(evt *RedemptionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO redemptions
		(timestamp, session_id, amount, success, tokens_before, tokens_after)
		VALUES (?,?,?,?,?,?)`,
		r.now().Unix(), evt.SessionID, evt.Amount, evt.Success,
		evt.TokensBefore, evt.TokensAfter,
	)
	return err
}

func (r *SQLiteRecorder) RecordStatus(snap *StatusSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := snap.Status
	_, err := r.db.Exec(`INSERT INTO device_snapshots
		(timestamp, session_id, is_charging, battery_level, is_online, network_type,
		 is_idle, screen_time, last_activity, power_live, network_live, score)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.now().Unix(), snap.SessionID, st.IsCharging, st.BatteryLevel, st.IsOnline, st.NetworkType,
		st.IsIdle, st.ScreenTime, st.LastActivity.Unix(),
		snap.Capabilities.Power, snap.Capabilities.Network, snap.Score,
	)
	return err
}

// CountTicks returns how many tick rows exist, optionally only eligible ones.
func (r *SQLiteRecorder) CountTicks(eligibleOnly bool) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := `SELECT COUNT(*) FROM accrual_ticks`
	if eligibleOnly {
		q += ` WHERE eligible = 1`
	}
	var n int
	if err := r.db.QueryRow(q).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}

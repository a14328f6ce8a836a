package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dmartin/fingerprint-patterns/go-detector/internal/detector"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	config_json  TEXT NOT NULL,
	started_at   TEXT NOT NULL,
	finished_at  TEXT,
	lines_read   INTEGER,
	accepted     INTEGER,
	skipped      INTEGER,
	alarms       INTEGER
);

CREATE TABLE IF NOT EXISTS records (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL,
	line_id      INTEGER NOT NULL,
	timestamp    TEXT NOT NULL,
	meas         REAL NOT NULL,
	diff         REAL NOT NULL,
	curavg       REAL NOT NULL,
	isdetect     INTEGER NOT NULL,
	isalarm      INTEGER NOT NULL,
	iswait       INTEGER NOT NULL,
	patternid    INTEGER NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS alarms (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL,
	pattern_id   INTEGER NOT NULL,
	raised_at    TEXT NOT NULL,
	meas         REAL NOT NULL,
	curavg       REAL NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// #endregion schema

// #region types

// Run describes one archived detection run.
type Run struct {
	RunID      string
	Config     detector.Config
	StartedAt  time.Time
	FinishedAt time.Time
	LinesRead  int64
	Accepted   int64
	Skipped    int64
	Alarms     int64
}

// Alarm is one archived alarm event.
type Alarm struct {
	RunID     string
	PatternID int64
	RaisedAt  string
	Value     float64
	AvgDiff   float64
}

// #endregion types

// #region store

// Store archives detection runs and their emitted records in SQLite. It only
// ever stores output; detector state is never resumed from it.
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
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
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

// DB returns the underlying *sql.DB for read-only tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion store

// #region begin-run

// BeginRun registers a new run with its configuration and returns its ID.
func (s *Store) BeginRun(cfg detector.Config) (string, error) {
	id := uuid.New().String()
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO runs (run_id, config_json, started_at) VALUES (?, ?, ?)`,
		id, string(cfgJSON), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// #endregion begin-run

// #region append

// AppendRecord archives one emitted record; alarm records also land in the
// alarms table.
func (s *Store) AppendRecord(runID string, rec detector.Record) error {
	_, err := s.db.Exec(
		`INSERT INTO records (run_id, line_id, timestamp, meas, diff, curavg, isdetect, isalarm, iswait, patternid)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, rec.LineID, rec.TimestampText, rec.Value, rec.Diff, rec.AvgDiff,
		boolInt(rec.IsDetect), boolInt(rec.IsAlarm), boolInt(rec.IsWait), rec.PatternID,
	)
	if err != nil {
		return fmt.Errorf("insert record %d: %w", rec.LineID, err)
	}

	if rec.IsAlarm {
		_, err = s.db.Exec(
			`INSERT INTO alarms (run_id, pattern_id, raised_at, meas, curavg)
			 VALUES (?, ?, ?, ?, ?)`,
			runID, rec.PatternID, rec.TimestampText, rec.Value, rec.AvgDiff,
		)
		if err != nil {
			return fmt.Errorf("insert alarm %d: %w", rec.PatternID, err)
		}
	}
	return nil
}

// Sink adapts the store to a pipeline record sink for the given run.
func (s *Store) Sink(runID string) func(detector.Record) error {
	return func(rec detector.Record) error {
		return s.AppendRecord(runID, rec)
	}
}

// #endregion append

// #region finish-run

// FinishRun stamps the run finished and stores its counters.
func (s *Store) FinishRun(runID string, linesRead, accepted, skipped, alarms int64) error {
	res, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, lines_read = ?, accepted = ?, skipped = ?, alarms = ?
		 WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), linesRead, accepted, skipped, alarms, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// #endregion finish-run

// #region queries

// GetRun retrieves one run by ID.
func (s *Store) GetRun(runID string) (Run, error) {
	row := s.db.QueryRow(
		`SELECT run_id, config_json, started_at, finished_at, lines_read, accepted, skipped, alarms
		 FROM runs WHERE run_id = ?`, runID,
	)
	r, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT run_id, config_json, started_at, finished_at, lines_read, accepted, skipped, alarms
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunRecords returns a run's archived records in line order.
func (s *Store) RunRecords(runID string) ([]detector.Record, error) {
	rows, err := s.db.Query(
		`SELECT line_id, timestamp, meas, diff, curavg, isdetect, isalarm, iswait, patternid
		 FROM records WHERE run_id = ? ORDER BY line_id ASC`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var recs []detector.Record
	for rows.Next() {
		var rec detector.Record
		var isDetect, isAlarm, isWait int
		if err := rows.Scan(
			&rec.LineID, &rec.TimestampText, &rec.Value, &rec.Diff, &rec.AvgDiff,
			&isDetect, &isAlarm, &isWait, &rec.PatternID,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.IsDetect = isDetect != 0
		rec.IsAlarm = isAlarm != 0
		rec.IsWait = isWait != 0
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// RunAlarms returns a run's alarms in firing order.
func (s *Store) RunAlarms(runID string) ([]Alarm, error) {
	rows, err := s.db.Query(
		`SELECT run_id, pattern_id, raised_at, meas, curavg
		 FROM alarms WHERE run_id = ? ORDER BY pattern_id ASC`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query alarms: %w", err)
	}
	defer rows.Close()

	var alarms []Alarm
	for rows.Next() {
		var a Alarm
		if err := rows.Scan(&a.RunID, &a.PatternID, &a.RaisedAt, &a.Value, &a.AvgDiff); err != nil {
			return nil, fmt.Errorf("scan alarm: %w", err)
		}
		alarms = append(alarms, a)
	}
	return alarms, rows.Err()
}

// #endregion queries

// #region helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	var cfgJSON string
	var startedStr string
	var finishedStr sql.NullString
	var linesRead, accepted, skipped, alarms sql.NullInt64

	if err := row.Scan(&r.RunID, &cfgJSON, &startedStr, &finishedStr,
		&linesRead, &accepted, &skipped, &alarms); err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(cfgJSON), &r.Config); err != nil {
		return Run{}, fmt.Errorf("unmarshal config: %w", err)
	}
	r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedStr)
	if finishedStr.Valid {
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finishedStr.String)
	}
	r.LinesRead = linesRead.Int64
	r.Accepted = accepted.Int64
	r.Skipped = skipped.Int64
	r.Alarms = alarms.Int64
	return r, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers

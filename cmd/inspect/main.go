package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dmartin/fingerprint-patterns/go-detector/internal/archive"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to archive database")
	last := flag.Int("last", 20, "show N most recent runs")
	runID := flag.String("run", "", "show single run detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/archive.db [--last N] [--run id] [--json]")
		os.Exit(2)
	}

	store, err := archive.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *runID != "" {
		err = runDetailMode(store, *runID, *jsonOut)
	} else {
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type runRow struct {
	RunID      string `json:"run_id"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
	LinesRead  int64  `json:"lines_read"`
	Accepted   int64  `json:"accepted"`
	Skipped    int64  `json:"skipped"`
	Alarms     int64  `json:"alarms"`
}

func runListMode(store *archive.Store, last int, jsonOut bool) error {
	runs, err := store.ListRuns(last)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no runs found")
		return nil
	}

	rows := make([]runRow, len(runs))
	for i, r := range runs {
		rows[i] = runRow{
			RunID:     r.RunID,
			StartedAt: r.StartedAt.Format(time.RFC3339),
			LinesRead: r.LinesRead,
			Accepted:  r.Accepted,
			Skipped:   r.Skipped,
			Alarms:    r.Alarms,
		}
		if !r.FinishedAt.IsZero() {
			rows[i].FinishedAt = r.FinishedAt.Format(time.RFC3339)
		}
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	fmt.Printf("%-38s| %-22s| %8s| %8s| %8s| %6s\n",
		"Run", "Started", "Lines", "Accepted", "Skipped", "Alarms")
	for _, row := range rows {
		fmt.Printf("%-38s| %-22s| %8d| %8d| %8d| %6d\n",
			row.RunID, row.StartedAt, row.LinesRead, row.Accepted, row.Skipped, row.Alarms)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type runDetail struct {
	Run    runRow          `json:"run"`
	Config json.RawMessage `json:"config"`
	Alarms []alarmRow      `json:"alarms"`
}

type alarmRow struct {
	PatternID int64   `json:"pattern_id"`
	RaisedAt  string  `json:"raised_at"`
	Value     float64 `json:"meas"`
	AvgDiff   float64 `json:"curavg"`
}

func runDetailMode(store *archive.Store, runID string, jsonOut bool) error {
	run, err := store.GetRun(runID)
	if err != nil {
		return err
	}
	alarms, err := store.RunAlarms(runID)
	if err != nil {
		return err
	}

	cfgJSON, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	detail := runDetail{
		Run: runRow{
			RunID:     run.RunID,
			StartedAt: run.StartedAt.Format(time.RFC3339),
			LinesRead: run.LinesRead,
			Accepted:  run.Accepted,
			Skipped:   run.Skipped,
			Alarms:    run.Alarms,
		},
		Config: cfgJSON,
	}
	if !run.FinishedAt.IsZero() {
		detail.Run.FinishedAt = run.FinishedAt.Format(time.RFC3339)
	}
	for _, a := range alarms {
		detail.Alarms = append(detail.Alarms, alarmRow{
			PatternID: a.PatternID,
			RaisedAt:  a.RaisedAt,
			Value:     a.Value,
			AvgDiff:   a.AvgDiff,
		})
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(detail)
	}

	fmt.Printf("Run %s\n", run.RunID)
	fmt.Printf("  started:  %s\n", detail.Run.StartedAt)
	if detail.Run.FinishedAt != "" {
		fmt.Printf("  finished: %s\n", detail.Run.FinishedAt)
	}
	fmt.Printf("  config:   %s\n", string(cfgJSON))
	fmt.Printf("  lines=%d accepted=%d skipped=%d alarms=%d\n",
		run.LinesRead, run.Accepted, run.Skipped, run.Alarms)

	if len(alarms) == 0 {
		fmt.Println("  no alarms")
		return nil
	}
	fmt.Printf("\n%-10s| %-28s| %12s| %12s\n", "Pattern", "Raised at", "Value", "Avg diff")
	for _, a := range detail.Alarms {
		fmt.Printf("%-10d| %-28s| %12.4f| %12.4f\n", a.PatternID, a.RaisedAt, a.Value, a.AvgDiff)
	}
	return nil
}

// #endregion detail-mode

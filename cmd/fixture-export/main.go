package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dmartin/fingerprint-patterns/go-detector/internal/archive"
	"github.com/dmartin/fingerprint-patterns/go-detector/internal/replay"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to archive database")
	runID := flag.String("run", "", "run to export")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *runID == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/archive.db --run id --out path/to/fixture.json")
		os.Exit(2)
	}

	if err := run(*dbPath, *runID, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region export

// run turns an archived run into a replay fixture: the recorded stream as
// samples, the recorded flags as expected results. Since the archive holds
// only accepted samples, the exported fixture sets sample_each to 1.
func run(dbPath, runID, outPath string) error {
	store, err := archive.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	archived, err := store.GetRun(runID)
	if err != nil {
		return err
	}
	records, err := store.RunRecords(runID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("run %s has no records", runID)
	}

	cfg := archived.Config
	cfg.SampleEach = 1

	fixture := replay.Fixture{
		Description: fmt.Sprintf("Archived run export: %d records from run %s", len(records), runID),
		Config:      cfg,
		Samples:     make([]replay.FixtureSample, len(records)),
		Expected:    make([]replay.ExpectedRecord, len(records)),
	}
	for i, rec := range records {
		fixture.Samples[i] = replay.FixtureSample{
			Timestamp: rec.TimestampText,
			Value:     rec.Value,
		}
		fixture.Expected[i] = replay.Expected(rec)
	}

	if err := replay.WriteFixture(&fixture, outPath); err != nil {
		return err
	}

	fmt.Printf("Wrote fixture to %s (%d samples)\n", outPath, len(fixture.Samples))
	return nil
}

// #endregion export

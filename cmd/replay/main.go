package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dmartin/fingerprint-patterns/go-detector/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON")
	verbose := flag.Bool("verbose", false, "print every line, not only divergences")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--verbose]")
		os.Exit(2)
	}

	os.Exit(run(*fixturePath, *verbose))
}

// #endregion main

// #region run

func run(fixturePath string, verbose bool) int {
	f, err := replay.LoadFixture(fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	records, sum, err := replay.ReplayFixture(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}

	mismatches := replay.Compare(records, f.Expected)
	badIndex := make(map[int]bool, len(mismatches))
	for _, m := range mismatches {
		badIndex[m.Index] = true
	}

	fmt.Printf("%-8s| %-20s| %-20s| %s\n", "Line", "Expected", "Replayed", "Match")
	fmt.Printf("%-8s+%-21s+%-21s+%s\n", "--------", "---------------------", "---------------------", "------")

	total := len(records)
	if len(f.Expected) > total {
		total = len(f.Expected)
	}
	for i := 0; i < total; i++ {
		match := !badIndex[i]
		if !verbose && match {
			continue
		}

		exp := "-"
		if i < len(f.Expected) {
			exp = formatFlags(f.Expected[i])
		}
		got := "-"
		if i < len(records) {
			got = formatFlags(replay.Expected(records[i]))
		}
		status := "DIFF"
		if match {
			status = "OK"
		}
		fmt.Printf("%-8d| %-20s| %-20s| %s\n", i+1, exp, got, status)
	}

	fmt.Printf("\nSummary: %d samples, %d accepted, %d alarms, %d patterns, %d diverge\n",
		sum.Samples, sum.Accepted, sum.Alarms, sum.Patterns, len(mismatches))

	if len(mismatches) > 0 {
		return 1
	}
	return 0
}

func formatFlags(e replay.ExpectedRecord) string {
	return fmt.Sprintf("L%d D%d A%d W%d P%d",
		e.LineID, boolInt(e.IsDetect), boolInt(e.IsAlarm), boolInt(e.IsWait), e.PatternID)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion run

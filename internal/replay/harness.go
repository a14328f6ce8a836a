package replay

import (
	"fmt"

	"github.com/dmartin/fingerprint-patterns/go-detector/internal/detector"
	"github.com/dmartin/fingerprint-patterns/go-detector/internal/sample"
)

// #region replay

// Summary provides aggregate stats from a replay run.
type Summary struct {
	Samples    int
	Accepted   int
	Alarms     int
	Patterns   int64
	FinalState detector.State
}

// Replay pushes a sample stream through decimation and the detection state
// machine entirely in memory and returns the emitted records in order.
func Replay(samples []sample.Sample, cfg detector.Config) ([]detector.Record, Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, Summary{}, err
	}

	dec := detector.NewDecimator(cfg.SampleEach)
	st := detector.NewState(cfg)

	records := make([]detector.Record, 0, len(samples))
	sum := Summary{Samples: len(samples)}

	for _, s := range samples {
		if !dec.Keep() {
			continue
		}
		var rec detector.Record
		st, rec = detector.Update(st, s, cfg)
		records = append(records, rec)
		sum.Accepted++
		if rec.IsAlarm {
			sum.Alarms++
		}
	}

	sum.Patterns = st.PatternID
	sum.FinalState = st
	return records, sum, nil
}

// ReplayFixture parses a fixture's samples and replays them.
func ReplayFixture(f *Fixture) ([]detector.Record, Summary, error) {
	samples := make([]sample.Sample, len(f.Samples))
	for i := range f.Samples {
		s, err := f.Samples[i].ToSample()
		if err != nil {
			return nil, Summary{}, fmt.Errorf("sample %d: %w", i+1, err)
		}
		samples[i] = s
	}
	return Replay(samples, f.Config)
}

// #endregion replay

// #region compare

// Mismatch describes one divergence between replayed and expected flags.
type Mismatch struct {
	Index    int
	Expected ExpectedRecord
	Got      ExpectedRecord
}

// Compare matches replayed records against expected flags positionally.
// A length difference is reported as a mismatch at the first missing index.
func Compare(records []detector.Record, expected []ExpectedRecord) []Mismatch {
	var mismatches []Mismatch

	n := len(records)
	if len(expected) < n {
		n = len(expected)
	}
	for i := 0; i < n; i++ {
		got := Expected(records[i])
		if got != expected[i] {
			mismatches = append(mismatches, Mismatch{Index: i, Expected: expected[i], Got: got})
		}
	}
	if len(records) != len(expected) {
		idx := n
		m := Mismatch{Index: idx}
		if idx < len(expected) {
			m.Expected = expected[idx]
		}
		if idx < len(records) {
			m.Got = Expected(records[idx])
		}
		mismatches = append(mismatches, m)
	}
	return mismatches
}

// #endregion compare

package pipeline

import (
	"bufio"
	"fmt"
	"io"

	"github.com/dmartin/fingerprint-patterns/go-detector/internal/detector"
	"github.com/dmartin/fingerprint-patterns/go-detector/internal/emitter"
	"github.com/dmartin/fingerprint-patterns/go-detector/internal/sample"
)

// #region types

// RecordSink receives every emitted record, after it has been written to the
// output stream. Used for archiving and metrics; errors abort the run.
type RecordSink func(detector.Record) error

// Options tunes pipeline behavior outside the core algorithm.
type Options struct {
	// SkipMalformed counts and skips lines that fail to parse instead of
	// aborting the run. The zero value fails fast on the first bad line.
	SkipMalformed bool

	// Sinks are invoked in order for each emitted record.
	Sinks []RecordSink
}

// Summary aggregates one finished run.
type Summary struct {
	LinesRead     int64
	Accepted      int64
	Skipped       int64
	Alarms        int64
	LastPatternID int64
	FinalState    detector.State
}

// #endregion types

// #region run

// Run consumes the line stream from r, feeds accepted samples through the
// detection state machine, and writes annotated records to w. The header is
// written exactly once before any record, also for empty input. Strictly
// single-pass and single-threaded: state lives in locals and is advanced once
// per accepted sample.
func Run(r io.Reader, w io.Writer, cfg Config) (Summary, error) {
	return RunWithOptions(r, w, cfg, Options{})
}

// Config aliases the detector configuration; the pipeline adds no parameters
// of its own.
type Config = detector.Config

// RunWithOptions is Run with explicit Options.
func RunWithOptions(r io.Reader, w io.Writer, cfg Config, opts Options) (Summary, error) {
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}

	var sum Summary
	em := emitter.New(w)
	if err := em.WriteHeader(); err != nil {
		return sum, err
	}

	dec := detector.NewDecimator(cfg.SampleEach)
	st := detector.NewState(cfg)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		sum.LinesRead++
		line := scanner.Text()

		if !dec.Keep() {
			continue
		}

		s, err := sample.ParseLine(line)
		if err != nil {
			if opts.SkipMalformed {
				sum.Skipped++
				continue
			}
			return sum, fmt.Errorf("line %d: %w", sum.LinesRead, err)
		}

		var rec detector.Record
		st, rec = detector.Update(st, s, cfg)
		sum.Accepted++
		if rec.IsAlarm {
			sum.Alarms++
		}

		if err := em.Emit(rec); err != nil {
			return sum, err
		}
		for _, sink := range opts.Sinks {
			if err := sink(rec); err != nil {
				return sum, fmt.Errorf("record sink: %w", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return sum, fmt.Errorf("read input: %w", err)
	}

	sum.LastPatternID = st.PatternID
	sum.FinalState = st
	return sum, nil
}

// #endregion run

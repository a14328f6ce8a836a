package sample

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// #region types

// TimestampLayout is the input timestamp shape: day-month-year with
// microsecond fraction, e.g. "10-03-2016 15:19:20.729915".
const TimestampLayout = "02-01-2006 15:04:05.000000"

// Sample is one (timestamp, value) observation decoded from an input line.
// TimestampText keeps the trimmed original text so output can echo it verbatim.
type Sample struct {
	Timestamp     time.Time
	TimestampText string
	Value         float64
}

// #endregion types

// #region parse

// ParseLine decodes a "timestamp ; value" input line. Both fields may carry
// surrounding whitespace. A missing separator or a field that does not parse
// is returned as an error; the caller decides whether to skip or fail.
func ParseLine(line string) (Sample, error) {
	pos := strings.IndexByte(line, ';')
	if pos < 0 {
		return Sample{}, fmt.Errorf("missing field separator in %q", line)
	}

	tsText := strings.TrimSpace(line[:pos])
	valText := strings.TrimSpace(line[pos+1:])

	ts, err := ParseTimestamp(tsText)
	if err != nil {
		return Sample{}, err
	}

	val, err := strconv.ParseFloat(valText, 64)
	if err != nil {
		return Sample{}, fmt.Errorf("parse value %q: %w", valText, err)
	}

	return Sample{Timestamp: ts, TimestampText: tsText, Value: val}, nil
}

// ParseTimestamp parses a timestamp in TimestampLayout form.
func ParseTimestamp(text string) (time.Time, error) {
	ts, err := time.Parse(TimestampLayout, text)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", text, err)
	}
	return ts, nil
}

// #endregion parse

// #region duration

// MicrosecondsBetween returns the elapsed microseconds from earlier to later.
// All window comparisons use this integer delta rather than re-deriving
// calendar fields, which keeps midnight and month rollovers exact.
func MicrosecondsBetween(earlier, later time.Time) int64 {
	return later.Sub(earlier).Microseconds()
}

// #endregion duration

package emitter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dmartin/fingerprint-patterns/go-detector/internal/detector"
)

// #region emitter

// Header is the fixed first output line.
const Header = "lineid;timestamp;meas;diff;curavg;isdetect;isalarm;iswait;patternid"

// Emitter serializes detection records as semicolon-separated lines.
type Emitter struct {
	w             io.Writer
	headerWritten bool
}

// New creates an emitter writing to w. The header is written lazily before
// the first record so an empty input produces the header alone only when
// WriteHeader is called explicitly.
func New(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// WriteHeader writes the header line. Safe to call once; Emit calls it
// automatically if it has not run yet.
func (e *Emitter) WriteHeader() error {
	if e.headerWritten {
		return nil
	}
	if _, err := fmt.Fprintln(e.w, Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	e.headerWritten = true
	return nil
}

// Emit writes one record line.
func (e *Emitter) Emit(rec detector.Record) error {
	if err := e.WriteHeader(); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(e.w, FormatRecord(rec)); err != nil {
		return fmt.Errorf("write record %d: %w", rec.LineID, err)
	}
	return nil
}

// FormatRecord renders a record without the trailing newline.
func FormatRecord(rec detector.Record) string {
	fields := []string{
		strconv.FormatInt(rec.LineID, 10),
		rec.TimestampText,
		formatFloat(rec.Value),
		formatFloat(rec.Diff),
		formatFloat(rec.AvgDiff),
		boolField(rec.IsDetect),
		boolField(rec.IsAlarm),
		boolField(rec.IsWait),
		strconv.FormatInt(rec.PatternID, 10),
	}
	return strings.Join(fields, ";")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// #endregion emitter

package emitter

import (
	"strings"
	"testing"

	"github.com/dmartin/fingerprint-patterns/go-detector/internal/detector"
)

func testRecord() detector.Record {
	return detector.Record{
		LineID:        7,
		TimestampText: "10-03-2016 15:19:20.729915",
		Value:         68998,
		Diff:          -60,
		AvgDiff:       199.72,
		IsDetect:      true,
		IsAlarm:       false,
		IsWait:        true,
		PatternID:     3,
	}
}

func TestFormatRecord(t *testing.T) {
	got := FormatRecord(testRecord())
	want := "7;10-03-2016 15:19:20.729915;68998;-60;199.72;1;0;1;3"
	if got != want {
		t.Errorf("format = %q, want %q", got, want)
	}
}

func TestFormatRecordZeroPattern(t *testing.T) {
	rec := testRecord()
	rec.IsDetect = false
	rec.IsWait = false
	rec.PatternID = 0
	got := FormatRecord(rec)
	if !strings.HasSuffix(got, ";0;0;0;0") {
		t.Errorf("trailing flags = %q, want ...;0;0;0;0", got)
	}
}

func TestHeaderWrittenOnce(t *testing.T) {
	var buf strings.Builder
	e := New(&buf)

	if err := e.Emit(testRecord()); err != nil {
		t.Fatal(err)
	}
	if err := e.Emit(testRecord()); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if lines[0] != Header {
		t.Errorf("first line = %q, want header", lines[0])
	}
	for _, line := range lines[1:] {
		if line == Header {
			t.Error("header repeated")
		}
	}
}

func TestWriteHeaderAlone(t *testing.T) {
	var buf strings.Builder
	e := New(&buf)
	if err := e.WriteHeader(); err != nil {
		t.Fatal(err)
	}
	if err := e.WriteHeader(); err != nil {
		t.Fatal(err)
	}
	if buf.String() != Header+"\n" {
		t.Errorf("output = %q, want single header line", buf.String())
	}
}

package pipeline

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dmartin/fingerprint-patterns/go-detector/internal/detector"
	"github.com/dmartin/fingerprint-patterns/go-detector/internal/emitter"
	"github.com/dmartin/fingerprint-patterns/go-detector/internal/sample"
)

func testConfig() Config {
	cfg := detector.DefaultConfig()
	cfg.InitialAvgDiff = 100
	cfg.PointsToAlarm = 3
	return cfg
}

// helper: build an input stream of lines spaced spacingUsec apart.
func buildInput(values []float64, spacingUsec int64) string {
	base := time.Date(2016, 3, 10, 15, 19, 20, 0, time.UTC)
	var b strings.Builder
	for i, v := range values {
		ts := base.Add(time.Duration(int64(i)*spacingUsec) * time.Microsecond)
		fmt.Fprintf(&b, "%s ; %g\n", ts.Format(sample.TimestampLayout), v)
	}
	return b.String()
}

func outputLines(t *testing.T, out string) []string {
	t.Helper()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) == 0 || lines[0] != emitter.Header {
		t.Fatalf("first output line = %q, want header", lines[0])
	}
	return lines[1:]
}

func TestRunEmitsHeaderAndRecords(t *testing.T) {
	in := buildInput([]float64{10, 10, 10}, 100)
	var out strings.Builder

	sum, err := Run(strings.NewReader(in), &out, testConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	data := outputLines(t, out.String())
	if len(data) != 3 {
		t.Fatalf("got %d data lines, want 3", len(data))
	}
	if sum.LinesRead != 3 || sum.Accepted != 3 || sum.Skipped != 0 {
		t.Errorf("summary = %+v", sum)
	}

	// line ids strictly increase by 1
	for i, line := range data {
		wantPrefix := fmt.Sprintf("%d;", i+1)
		if !strings.HasPrefix(line, wantPrefix) {
			t.Errorf("line %d = %q, want prefix %q", i+1, line, wantPrefix)
		}
	}
}

func TestRunEmptyInput(t *testing.T) {
	var out strings.Builder
	sum, err := Run(strings.NewReader(""), &out, testConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.String() != emitter.Header+"\n" {
		t.Errorf("output = %q, want header only", out.String())
	}
	if sum.Accepted != 0 {
		t.Errorf("accepted = %d, want 0", sum.Accepted)
	}
}

func TestRunDecimation(t *testing.T) {
	// Stride 3 over 9 samples keeps the 1st, 4th and 7th.
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	cfg := testConfig()
	cfg.SampleEach = 3

	var out strings.Builder
	sum, err := Run(strings.NewReader(buildInput(values, 100)), &out, cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	data := outputLines(t, out.String())
	if len(data) != 3 {
		t.Fatalf("got %d data lines, want 3", len(data))
	}
	if sum.Accepted != 3 || sum.LinesRead != 9 {
		t.Errorf("summary = %+v", sum)
	}
	for i, wantMeas := range []string{"1", "4", "7"} {
		fields := strings.Split(data[i], ";")
		if fields[0] != fmt.Sprint(i+1) {
			t.Errorf("line %d: lineid = %s", i+1, fields[0])
		}
		if fields[2] != wantMeas {
			t.Errorf("line %d: meas = %s, want %s", i+1, fields[2], wantMeas)
		}
	}
}

func TestRunAlarmSequence(t *testing.T) {
	// Stable baseline then a sustained jump; the third exceedance alarms.
	values := []float64{0, 0, 0, 2000, 4000, 6000, 8000}
	var out strings.Builder

	sum, err := Run(strings.NewReader(buildInput(values, 100)), &out, testConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Alarms != 1 {
		t.Fatalf("alarms = %d, want 1", sum.Alarms)
	}
	if sum.LastPatternID != 1 {
		t.Errorf("last pattern id = %d, want 1", sum.LastPatternID)
	}

	data := outputLines(t, out.String())
	// fields: lineid;timestamp;meas;diff;curavg;isdetect;isalarm;iswait;patternid
	alarmFields := strings.Split(data[5], ";")
	if alarmFields[6] != "1" {
		t.Errorf("line 6 isalarm = %s, want 1", alarmFields[6])
	}
	if alarmFields[7] != "1" {
		t.Errorf("line 6 iswait = %s, want 1", alarmFields[7])
	}
	if alarmFields[8] != "1" {
		t.Errorf("line 6 patternid = %s, want 1", alarmFields[8])
	}
	nextFields := strings.Split(data[6], ";")
	if nextFields[6] != "0" {
		t.Errorf("line 7 isalarm = %s, want 0 (edge-triggered)", nextFields[6])
	}
}

func TestRunFailsFastOnMalformedLine(t *testing.T) {
	in := buildInput([]float64{1, 2}, 100) + "garbage line\n"
	var out strings.Builder

	_, err := Run(strings.NewReader(in), &out, testConfig())
	if err == nil {
		t.Fatal("expected error on malformed line")
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Errorf("error should name the failing line: %v", err)
	}
}

func TestRunSkipMalformed(t *testing.T) {
	in := buildInput([]float64{1, 2}, 100) + "garbage line\n" + "10-03-2016 15:19:21.000000 ; 3\n"
	var out strings.Builder

	sum, err := RunWithOptions(strings.NewReader(in), &out, testConfig(), Options{SkipMalformed: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", sum.Skipped)
	}
	if sum.Accepted != 3 {
		t.Errorf("accepted = %d, want 3", sum.Accepted)
	}
	// Skipped lines never claim a line id.
	data := outputLines(t, out.String())
	last := strings.Split(data[len(data)-1], ";")
	if last[0] != "3" {
		t.Errorf("last lineid = %s, want 3", last[0])
	}
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Multiplier = 0
	var out strings.Builder

	if _, err := Run(strings.NewReader("x"), &out, cfg); err == nil {
		t.Fatal("expected config validation error")
	}
	if out.Len() != 0 {
		t.Error("nothing may be written when the config is invalid")
	}
}

func TestRunSinksReceiveRecords(t *testing.T) {
	var seen []detector.Record
	opts := Options{Sinks: []RecordSink{func(rec detector.Record) error {
		seen = append(seen, rec)
		return nil
	}}}

	var out strings.Builder
	sum, err := RunWithOptions(strings.NewReader(buildInput([]float64{5, 6, 7}, 100)), &out, testConfig(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if int64(len(seen)) != sum.Accepted {
		t.Errorf("sink saw %d records, accepted %d", len(seen), sum.Accepted)
	}
}

func TestRunSinkErrorAborts(t *testing.T) {
	opts := Options{Sinks: []RecordSink{func(detector.Record) error {
		return fmt.Errorf("sink down")
	}}}

	var out strings.Builder
	_, err := RunWithOptions(strings.NewReader(buildInput([]float64{5}, 100)), &out, testConfig(), opts)
	if err == nil || !strings.Contains(err.Error(), "sink down") {
		t.Fatalf("expected sink error, got %v", err)
	}
}

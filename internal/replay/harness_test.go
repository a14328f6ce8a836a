package replay

import (
	"testing"
	"time"

	"github.com/dmartin/fingerprint-patterns/go-detector/internal/detector"
	"github.com/dmartin/fingerprint-patterns/go-detector/internal/sample"
)

func testConfig() detector.Config {
	cfg := detector.DefaultConfig()
	cfg.InitialAvgDiff = 100
	cfg.PointsToAlarm = 3
	return cfg
}

var testBase = time.Date(2016, 3, 10, 15, 19, 20, 0, time.UTC)

func smp(usec int64, value float64) sample.Sample {
	ts := testBase.Add(time.Duration(usec) * time.Microsecond)
	return sample.Sample{
		Timestamp:     ts,
		TimestampText: ts.Format(sample.TimestampLayout),
		Value:         value,
	}
}

// helper: a stream whose third consecutive jump raises one alarm.
func alarmStream() []sample.Sample {
	return []sample.Sample{
		smp(0, 0),
		smp(100, 0),
		smp(200, 0),
		smp(300, 2000),
		smp(400, 4000),
		smp(500, 6000),
		smp(600, 8000),
	}
}

func TestReplayAlarmStream(t *testing.T) {
	records, sum, err := Replay(alarmStream(), testConfig())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	if sum.Samples != 7 || sum.Accepted != 7 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Alarms != 1 || sum.Patterns != 1 {
		t.Errorf("alarms=%d patterns=%d, want 1/1", sum.Alarms, sum.Patterns)
	}
	if !records[5].IsAlarm {
		t.Error("expected alarm on sample 6")
	}
	if records[6].IsAlarm {
		t.Error("alarm must clear on the following sample")
	}
}

func TestReplayDecimates(t *testing.T) {
	cfg := testConfig()
	cfg.SampleEach = 2

	records, sum, err := Replay(alarmStream(), cfg)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if sum.Accepted != 4 {
		t.Errorf("accepted = %d, want 4", sum.Accepted)
	}
	if len(records) != 4 {
		t.Errorf("records = %d, want 4", len(records))
	}
	if records[len(records)-1].LineID != 4 {
		t.Errorf("last line id = %d, want 4", records[len(records)-1].LineID)
	}
}

func TestReplayRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.SmoothingN = 0
	if _, _, err := Replay(alarmStream(), cfg); err == nil {
		t.Fatal("expected config validation error")
	}
}

func TestReplayDeterministic(t *testing.T) {
	first, sum1, err := Replay(alarmStream(), testConfig())
	if err != nil {
		t.Fatal(err)
	}
	second, sum2, err := Replay(alarmStream(), testConfig())
	if err != nil {
		t.Fatal(err)
	}

	if sum1 != sum2 {
		t.Errorf("summaries differ: %+v vs %+v", sum1, sum2)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("record %d differs between identical replays", i+1)
		}
	}
}

func TestCompareMatches(t *testing.T) {
	records, _, err := Replay(alarmStream(), testConfig())
	if err != nil {
		t.Fatal(err)
	}

	expected := make([]ExpectedRecord, len(records))
	for i, rec := range records {
		expected[i] = Expected(rec)
	}

	if mismatches := Compare(records, expected); len(mismatches) != 0 {
		t.Errorf("self-comparison diverged: %+v", mismatches)
	}
}

func TestCompareFlagsDivergence(t *testing.T) {
	records, _, err := Replay(alarmStream(), testConfig())
	if err != nil {
		t.Fatal(err)
	}

	expected := make([]ExpectedRecord, len(records))
	for i, rec := range records {
		expected[i] = Expected(rec)
	}
	expected[5].IsAlarm = false // poison the alarm sample

	mismatches := Compare(records, expected)
	if len(mismatches) != 1 {
		t.Fatalf("got %d mismatches, want 1", len(mismatches))
	}
	if mismatches[0].Index != 5 {
		t.Errorf("mismatch index = %d, want 5", mismatches[0].Index)
	}
}

func TestCompareLengthDivergence(t *testing.T) {
	records, _, err := Replay(alarmStream(), testConfig())
	if err != nil {
		t.Fatal(err)
	}

	expected := make([]ExpectedRecord, len(records)-1)
	for i := range expected {
		expected[i] = Expected(records[i])
	}

	mismatches := Compare(records, expected)
	if len(mismatches) != 1 {
		t.Fatalf("got %d mismatches, want 1", len(mismatches))
	}
	if mismatches[0].Index != len(records)-1 {
		t.Errorf("mismatch index = %d, want %d", mismatches[0].Index, len(records)-1)
	}
}

package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmartin/fingerprint-patterns/go-detector/internal/detector"
	"github.com/dmartin/fingerprint-patterns/go-detector/internal/sample"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: a config, a
// synthetic (or exported) sample stream, and the flag sequence it must yield.
type Fixture struct {
	Description string           `json:"description"`
	Config      detector.Config  `json:"config"`
	Samples     []FixtureSample  `json:"samples"`
	Expected    []ExpectedRecord `json:"expected"`
}

// FixtureSample is one JSON-serializable input sample.
type FixtureSample struct {
	Timestamp string  `json:"timestamp"` // sample.TimestampLayout text
	Value     float64 `json:"value"`
}

// ExpectedRecord captures the expected flags for one accepted sample.
type ExpectedRecord struct {
	LineID    int64 `json:"line_id"`
	IsDetect  bool  `json:"is_detect"`
	IsAlarm   bool  `json:"is_alarm"`
	IsWait    bool  `json:"is_wait"`
	PatternID int64 `json:"pattern_id"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixture marshals a fixture to disk with indentation.
func WriteFixture(f *Fixture, path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ToSample converts a fixture sample to a domain sample.
func (fs *FixtureSample) ToSample() (sample.Sample, error) {
	ts, err := sample.ParseTimestamp(fs.Timestamp)
	if err != nil {
		return sample.Sample{}, err
	}
	return sample.Sample{Timestamp: ts, TimestampText: fs.Timestamp, Value: fs.Value}, nil
}

// Expected converts a record to its expected-flags form.
func Expected(rec detector.Record) ExpectedRecord {
	return ExpectedRecord{
		LineID:    rec.LineID,
		IsDetect:  rec.IsDetect,
		IsAlarm:   rec.IsAlarm,
		IsWait:    rec.IsWait,
		PatternID: rec.PatternID,
	}
}

// #endregion fixture-loader

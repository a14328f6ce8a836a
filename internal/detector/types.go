package detector

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// #region config

// Config holds the seven detection parameters. All must be >= 1.
type Config struct {
	SampleEach       int `yaml:"sample_each" json:"sample_each"`               // keep every nth input sample
	InitialAvgDiff   int `yaml:"initial_avg_diff" json:"initial_avg_diff"`     // seed for the smoothed average difference
	PointsToAlarm    int `yaml:"points_to_alarm" json:"points_to_alarm"`       // consecutive exceedances needed to raise an alarm
	WaitStateUsec    int `yaml:"wait_state_usec" json:"wait_state_usec"`       // post-alarm cooldown window, microseconds
	Multiplier       int `yaml:"multiplier" json:"multiplier"`                 // threshold = Multiplier * current average difference
	SmoothingN       int `yaml:"smoothing_n" json:"smoothing_n"`               // smoothing constant; higher = slower adaptation
	PatternStateUsec int `yaml:"pattern_state_usec" json:"pattern_state_usec"` // pattern tagging window, microseconds
}

// DefaultConfig returns the built-in parameter set.
func DefaultConfig() Config {
	return Config{
		SampleEach:       1,
		InitialAvgDiff:   200,
		PointsToAlarm:    5,
		WaitStateUsec:    1000000,
		Multiplier:       10,
		SmoothingN:       500,
		PatternStateUsec: 250000,
	}
}

// Validate rejects any non-positive parameter, listing every value so the
// operator sees the full configuration that was refused.
func (c Config) Validate() error {
	if c.SampleEach < 1 ||
		c.InitialAvgDiff < 1 ||
		c.PointsToAlarm < 1 ||
		c.WaitStateUsec < 1 ||
		c.Multiplier < 1 ||
		c.SmoothingN < 1 ||
		c.PatternStateUsec < 1 {
		return fmt.Errorf(
			"invalid argument value(s): sample_each=%d initial_avg_diff=%d points_to_alarm=%d wait_state_usec=%d multiplier=%d smoothing_n=%d pattern_state_usec=%d",
			c.SampleEach, c.InitialAvgDiff, c.PointsToAlarm,
			c.WaitStateUsec, c.Multiplier, c.SmoothingN, c.PatternStateUsec,
		)
	}
	return nil
}

// LoadConfigFile overlays parameters from a YAML file onto base. Absent keys
// keep the base value; the result is not validated here.
func LoadConfigFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var overlay struct {
		SampleEach       *int `yaml:"sample_each"`
		InitialAvgDiff   *int `yaml:"initial_avg_diff"`
		PointsToAlarm    *int `yaml:"points_to_alarm"`
		WaitStateUsec    *int `yaml:"wait_state_usec"`
		Multiplier       *int `yaml:"multiplier"`
		SmoothingN       *int `yaml:"smoothing_n"`
		PatternStateUsec *int `yaml:"pattern_state_usec"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg := base
	if overlay.SampleEach != nil {
		cfg.SampleEach = *overlay.SampleEach
	}
	if overlay.InitialAvgDiff != nil {
		cfg.InitialAvgDiff = *overlay.InitialAvgDiff
	}
	if overlay.PointsToAlarm != nil {
		cfg.PointsToAlarm = *overlay.PointsToAlarm
	}
	if overlay.WaitStateUsec != nil {
		cfg.WaitStateUsec = *overlay.WaitStateUsec
	}
	if overlay.Multiplier != nil {
		cfg.Multiplier = *overlay.Multiplier
	}
	if overlay.SmoothingN != nil {
		cfg.SmoothingN = *overlay.SmoothingN
	}
	if overlay.PatternStateUsec != nil {
		cfg.PatternStateUsec = *overlay.PatternStateUsec
	}
	return cfg, nil
}

// #endregion config

// #region state

// State is the single mutable entity threaded through a run. It is owned by
// the processing loop and advanced once per accepted sample by Update.
type State struct {
	LastValue        float64
	AvgDiff          float64
	RemainingToAlarm int
	IsAlarm          bool
	IsWait           bool
	WaitStartedAt    time.Time
	IsPattern        bool
	PatternStartedAt time.Time
	PatternID        int64
	LineID           int64
}

// NewState seeds a fresh state from the configuration.
func NewState(cfg Config) State {
	return State{
		AvgDiff:          float64(cfg.InitialAvgDiff),
		RemainingToAlarm: cfg.PointsToAlarm,
	}
}

// #endregion state

// #region record

// Record is the annotation emitted for one accepted sample.
// PatternID is 0 whenever the sample falls outside a pattern window.
type Record struct {
	LineID        int64     `json:"lineid"`
	TimestampText string    `json:"timestamp"`
	Timestamp     time.Time `json:"-"`
	Value         float64   `json:"meas"`
	Diff          float64   `json:"diff"`
	AvgDiff       float64   `json:"curavg"`
	IsDetect      bool      `json:"isdetect"`
	IsAlarm       bool      `json:"isalarm"`
	IsWait        bool      `json:"iswait"`
	PatternID     int64     `json:"patternid"`
}

// #endregion record

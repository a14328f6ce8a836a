package detector

import (
	"math"

	"github.com/dmartin/fingerprint-patterns/go-detector/internal/sample"
)

// #region update

// Update is a pure function that advances the detection state by one accepted
// sample and produces the record to emit for it. Given the same state, sample,
// and config it always returns the same result.
//
// Step order is fixed: pattern expiry, then cooldown handling or exceedance
// counting, then the estimator amendment, then bookkeeping. The estimator is
// amended only when no cooldown is active and no partial exceedance run is in
// progress, so the deviations being detected never inflate their own
// detection threshold.
func Update(old State, s sample.Sample, cfg Config) (State, Record) {
	st := old

	// First accepted sample seeds LastValue with its own value, so the
	// signed difference starts at zero.
	if st.LineID == 0 {
		st.LastValue = s.Value
	}
	diffSigned := s.Value - st.LastValue
	diff := math.Abs(diffSigned)

	// Pattern window expiry. Strictly greater-than: a sample landing exactly
	// on the boundary is still inside the window.
	if st.IsPattern && sample.MicrosecondsBetween(st.PatternStartedAt, s.Timestamp) > int64(cfg.PatternStateUsec) {
		st.IsPattern = false
	}

	if st.IsWait {
		// The alarm flag is edge-triggered: it clears on the first sample
		// inside the cooldown and stays clear for the rest of it.
		st.IsAlarm = false
		if sample.MicrosecondsBetween(st.WaitStartedAt, s.Timestamp) > int64(cfg.WaitStateUsec) {
			st.IsWait = false
		}
	} else {
		if diff < float64(cfg.Multiplier)*st.AvgDiff {
			st.RemainingToAlarm = cfg.PointsToAlarm
		} else {
			st.RemainingToAlarm--
			if st.RemainingToAlarm == 0 {
				// Enough consecutive exceedances: raise the alarm, open the
				// cooldown window and a new pattern window at this timestamp.
				st.IsAlarm = true
				st.IsWait = true
				st.WaitStartedAt = s.Timestamp
				st.RemainingToAlarm = cfg.PointsToAlarm

				st.PatternID++
				st.IsPattern = true
				st.PatternStartedAt = s.Timestamp
			}
		}
	}

	// Amend the smoothed average only outside cooldown and outside a partial
	// exceedance run. Note IsWait is the post-transition value: the sample on
	// which the cooldown expires is folded back into the baseline.
	if !st.IsWait && st.RemainingToAlarm == cfg.PointsToAlarm {
		st.AvgDiff = (st.AvgDiff*float64(cfg.SmoothingN-1) + diff) / float64(cfg.SmoothingN)
	}

	st.LastValue = s.Value
	st.LineID++

	rec := Record{
		LineID:        st.LineID,
		TimestampText: s.TimestampText,
		Timestamp:     s.Timestamp,
		Value:         s.Value,
		Diff:          diffSigned,
		AvgDiff:       st.AvgDiff,
		IsDetect:      st.RemainingToAlarm != cfg.PointsToAlarm,
		IsAlarm:       st.IsAlarm,
		IsWait:        st.IsWait,
	}
	if st.IsPattern {
		rec.PatternID = st.PatternID
	}

	return st, rec
}

// #endregion update

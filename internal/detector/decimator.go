package detector

// #region decimator

// Decimator forwards every k-th sample in arrival order, starting with the
// first (the 1st, (k+1)-th, (2k+1)-th, ...). Stride 1 forwards everything.
type Decimator struct {
	stride    int
	countdown int
}

// NewDecimator creates a decimator with the given stride. Stride below 1 is
// treated as 1.
func NewDecimator(stride int) *Decimator {
	if stride < 1 {
		stride = 1
	}
	return &Decimator{stride: stride, countdown: 1}
}

// Keep reports whether the next sample in arrival order is forwarded, and
// advances the countdown.
func (d *Decimator) Keep() bool {
	d.countdown--
	if d.countdown > 0 {
		return false
	}
	d.countdown = d.stride
	return true
}

// #endregion decimator

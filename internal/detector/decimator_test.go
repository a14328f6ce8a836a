package detector

import "testing"

func TestDecimatorStrideOne(t *testing.T) {
	d := NewDecimator(1)
	for i := 0; i < 10; i++ {
		if !d.Keep() {
			t.Fatalf("stride 1 dropped sample %d", i+1)
		}
	}
}

func TestDecimatorStrideThree(t *testing.T) {
	d := NewDecimator(3)
	var kept []int
	for i := 1; i <= 9; i++ {
		if d.Keep() {
			kept = append(kept, i)
		}
	}
	want := []int{1, 4, 7}
	if len(kept) != len(want) {
		t.Fatalf("kept %v, want %v", kept, want)
	}
	for i := range want {
		if kept[i] != want[i] {
			t.Fatalf("kept %v, want %v", kept, want)
		}
	}
}

func TestDecimatorClampsStride(t *testing.T) {
	d := NewDecimator(0)
	if !d.Keep() || !d.Keep() {
		t.Error("stride below 1 should behave as stride 1")
	}
}

package audio

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestWindowDuration(t *testing.T) {
	w := PlaybackWindow{Start: 12.5, End: 42.5}
	if !almostEqual(w.Duration(), 30) {
		t.Fatalf("Duration = %v, want 30", w.Duration())
	}
}

func TestWindowValid(t *testing.T) {
	tests := []struct {
		name   string
		window PlaybackWindow
		want   bool
	}{
		{"normal", PlaybackWindow{Start: 0, End: 20}, true},
		{"interior", PlaybackWindow{Start: 5, End: 6}, true},
		{"zero length", PlaybackWindow{Start: 5, End: 5}, false},
		{"inverted", PlaybackWindow{Start: 10, End: 5}, false},
		{"negative start", PlaybackWindow{Start: -1, End: 5}, false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.window.Valid(); got != tc.want {
				t.Fatalf("Valid() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFadeLen(t *testing.T) {
	// Long window: capped at 0.5s.
	long := PlaybackWindow{Start: 0, End: 30}
	if !almostEqual(long.FadeLen(), 0.5) {
		t.Fatalf("FadeLen for 30s window = %v, want 0.5", long.FadeLen())
	}

	// Short window: 10% of the duration.
	short := PlaybackWindow{Start: 0, End: 3}
	if !almostEqual(short.FadeLen(), 0.3) {
		t.Fatalf("FadeLen for 3s window = %v, want 0.3", short.FadeLen())
	}
}

func TestClampSeek(t *testing.T) {
	w := PlaybackWindow{Start: 10, End: 40}
	if got := w.ClampSeek(5); !almostEqual(got, 10) {
		t.Fatalf("seek before window = %v, want 10", got)
	}
	if got := w.ClampSeek(50); !almostEqual(got, 40) {
		t.Fatalf("seek past window = %v, want 40", got)
	}
	if got := w.ClampSeek(25); !almostEqual(got, 25) {
		t.Fatalf("seek inside window = %v, want 25", got)
	}
}

func TestGainAt(t *testing.T) {
	w := PlaybackWindow{Start: 10, End: 40} // fade 0.5s

	if got := w.GainAt(9); got != 0 {
		t.Fatalf("gain before window = %v, want 0", got)
	}
	if got := w.GainAt(41); got != 0 {
		t.Fatalf("gain after window = %v, want 0", got)
	}
	if got := w.GainAt(10); !almostEqual(got, 0) {
		t.Fatalf("gain at start = %v, want 0", got)
	}
	if got := w.GainAt(10.25); !almostEqual(got, 0.5) {
		t.Fatalf("gain mid fade-in = %v, want 0.5", got)
	}
	if got := w.GainAt(25); !almostEqual(got, 1) {
		t.Fatalf("gain in the middle = %v, want 1", got)
	}
	if got := w.GainAt(39.75); !almostEqual(got, 0.5) {
		t.Fatalf("gain mid fade-out = %v, want 0.5", got)
	}

	// Gain never leaves [0, 1] anywhere on the timeline.
	for p := -5.0; p <= 45; p += 0.1 {
		g := w.GainAt(p)
		if g < 0 || g > 1 {
			t.Fatalf("gain %v at %v outside [0,1]", g, p)
		}
	}
}

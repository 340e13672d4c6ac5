package audio

// PlaybackWindow is the cheap, preview-time form of a clip: a view over a
// time range of the source asset. No new asset is produced; the player seeks
// to Start, stops at End, and ramps volume near the edges so cuts are not
// abrupt. The authoritative clip for submission is produced by Clipper.
type PlaybackWindow struct {
	Start float64 // seconds into the source audio
	End   float64
}

// maxFadeSeconds caps the edge fades applied to a window.
const maxFadeSeconds = 0.5

// Duration returns the window length in seconds.
func (w PlaybackWindow) Duration() float64 {
	return w.End - w.Start
}

// Valid reports whether the window describes a playable range.
func (w PlaybackWindow) Valid() bool {
	return w.Start >= 0 && w.End > w.Start
}

// FadeLen returns the fade-in/fade-out length for this window: 0.5s or 10%
// of the window, whichever is smaller.
func (w PlaybackWindow) FadeLen() float64 {
	fade := 0.1 * w.Duration()
	if fade > maxFadeSeconds {
		fade = maxFadeSeconds
	}
	if fade < 0 {
		fade = 0
	}
	return fade
}

// ClampSeek clamps a playback position into the window. Seeking before the
// window snaps to Start; seeking past it snaps to End.
func (w PlaybackWindow) ClampSeek(t float64) float64 {
	if t < w.Start {
		return w.Start
	}
	if t > w.End {
		return w.End
	}
	return t
}

// Contains reports whether a playback position lies inside the window.
func (w PlaybackWindow) Contains(t float64) bool {
	return t >= w.Start && t <= w.End
}

// GainAt returns the volume multiplier (0-1) for a playback position. It is
// zero outside the window and ramps linearly over FadeLen at both edges.
func (w PlaybackWindow) GainAt(t float64) float64 {
	if !w.Contains(t) {
		return 0
	}
	fade := w.FadeLen()
	if fade == 0 {
		return 1
	}
	if d := t - w.Start; d < fade {
		return d / fade
	}
	if d := w.End - t; d < fade {
		return d / fade
	}
	return 1
}

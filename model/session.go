package model

// AudioSelection is the sub-window of a generated song chosen for avatar
// generation. Ephemeral: it lives only in the creation session, never in the
// song library.
type AudioSelection struct {
	StartTime float64 `json:"startTime"` // seconds into the source audio
	EndTime   float64 `json:"endTime"`
	// SongIndex binds the selection to the song history entry it was made
	// for. A selection made for a different song must not be reused.
	SongIndex int `json:"songIndex"`
}

// Duration returns the selected window length in seconds.
func (s AudioSelection) Duration() float64 {
	return s.EndTime - s.StartTime
}

// Valid reports whether the selection describes a usable window.
func (s AudioSelection) Valid() bool {
	return s.StartTime >= 0 && s.EndTime > s.StartTime
}

// AvatarHistoryEntry is one previously generated avatar in the session's
// back/forward browsing list.
type AvatarHistoryEntry struct {
	Gender    string `json:"gender"` // male, female
	ImageURL  string `json:"imageUrl"`
	Generated bool   `json:"generated"` // false for user-uploaded photos
}

// SongHistoryEntry is one previously generated song in the session's
// browsing list.
type SongHistoryEntry struct {
	AudioURL      string `json:"audioUrl"`
	SelectedVocal string `json:"selectedVocal"` // male, female
	Title         string `json:"title"`
	SongLength    int    `json:"songLength"`
}

// CreationSession is the ephemeral per-user state of an in-progress creation,
// stored as a single redis blob. Distinct from the persisted song library.
type CreationSession struct {
	Title          string               `json:"title"`
	Lyrics         string               `json:"lyrics"`
	VocalSelection string               `json:"vocalSelection"` // male, female
	SongLength     int                  `json:"songLength"`
	Genre          string               `json:"genre,omitempty"`
	Mood           string               `json:"mood,omitempty"`
	ImageURL       string               `json:"imageUrl,omitempty"`
	ImageGenerated bool                 `json:"imageGenerated"`
	AudioSelection *AudioSelection      `json:"audioSelection,omitempty"`
	AvatarHistory  []AvatarHistoryEntry `json:"avatarHistory,omitempty"`
	SongHistory    []SongHistoryEntry   `json:"songHistory,omitempty"`
	AvatarIndex    int                  `json:"avatarIndex"`
	SongIndex      int                  `json:"songIndex"`
	GenderLock     bool                 `json:"genderLock"`
}

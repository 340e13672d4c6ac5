// Package history implements back/forward browsing over the session's avatar
// and song lists, including the gender lock that keeps the displayed vocal
// selection consistent with the currently shown avatar.
package history

import (
	"sync"

	"melodygram/model"
)

// Browser holds two independently-browsable circular lists with current-index
// pointers. While the lock is enabled, an alignment pass runs after every
// mutation so that the selected avatar's gender and the displayed vocal
// selection never silently disagree.
type Browser struct {
	mu sync.Mutex

	avatars []model.AvatarHistoryEntry
	songs   []model.SongHistoryEntry

	avatarIdx int
	songIdx   int

	locked bool
	vocal  string // male, female
}

// NewBrowser builds a browser from session state.
func NewBrowser(s *model.CreationSession) *Browser {
	b := &Browser{
		avatars:   s.AvatarHistory,
		songs:     s.SongHistory,
		avatarIdx: s.AvatarIndex,
		songIdx:   s.SongIndex,
		locked:    s.GenderLock,
		vocal:     s.VocalSelection,
	}
	b.clampIndexes()
	return b
}

// Apply writes the browser state back into the session.
func (b *Browser) Apply(s *model.CreationSession) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s.AvatarHistory = b.avatars
	s.SongHistory = b.songs
	s.AvatarIndex = b.avatarIdx
	s.SongIndex = b.songIdx
	s.GenderLock = b.locked
	s.VocalSelection = b.vocal
}

func (b *Browser) clampIndexes() {
	if b.avatarIdx < 0 || b.avatarIdx >= len(b.avatars) {
		b.avatarIdx = 0
	}
	if b.songIdx < 0 || b.songIdx >= len(b.songs) {
		b.songIdx = 0
	}
}

// step moves an index one position in either direction, wrapping circularly.
func step(idx, delta, length int) int {
	if length == 0 {
		return 0
	}
	return ((idx+delta)%length + length) % length
}

// NextAvatar advances the avatar pointer, wrapping past the end.
func (b *Browser) NextAvatar() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.avatarIdx = step(b.avatarIdx, 1, len(b.avatars))
	b.align()
}

// PrevAvatar moves the avatar pointer backwards, wrapping before the start.
func (b *Browser) PrevAvatar() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.avatarIdx = step(b.avatarIdx, -1, len(b.avatars))
	b.align()
}

// NextSong advances the song pointer, wrapping past the end.
func (b *Browser) NextSong() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.songIdx = step(b.songIdx, 1, len(b.songs))
	b.align()
}

// PrevSong moves the song pointer backwards, wrapping before the start.
func (b *Browser) PrevSong() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.songIdx = step(b.songIdx, -1, len(b.songs))
	b.align()
}

// SetLock toggles the gender lock. Enabling it immediately runs an
// alignment pass.
func (b *Browser) SetLock(locked bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.locked = locked
	b.align()
}

// SetVocalSelection changes the displayed vocal selection.
func (b *Browser) SetVocalSelection(gender string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.vocal = gender
	b.align()
}

// SetAvatarIndex jumps to an avatar by index.
func (b *Browser) SetAvatarIndex(idx int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if idx >= 0 && idx < len(b.avatars) {
		b.avatarIdx = idx
	}
	b.align()
}

// SetSongIndex jumps to a song by index.
func (b *Browser) SetSongIndex(idx int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if idx >= 0 && idx < len(b.songs) {
		b.songIdx = idx
	}
	b.align()
}

// AppendAvatar adds a new avatar entry and selects it.
func (b *Browser) AppendAvatar(entry model.AvatarHistoryEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.avatars = append(b.avatars, entry)
	b.avatarIdx = len(b.avatars) - 1
	b.align()
}

// AppendSong adds a new song entry and selects it.
func (b *Browser) AppendSong(entry model.SongHistoryEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.songs = append(b.songs, entry)
	b.songIdx = len(b.songs) - 1
	b.align()
}

// CurrentAvatar returns the selected avatar entry, or false when the list is
// empty.
func (b *Browser) CurrentAvatar() (model.AvatarHistoryEntry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.avatars) == 0 {
		return model.AvatarHistoryEntry{}, false
	}
	return b.avatars[b.avatarIdx], true
}

// CurrentSong returns the selected song entry, or false when the list is
// empty.
func (b *Browser) CurrentSong() (model.SongHistoryEntry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.songs) == 0 {
		return model.SongHistoryEntry{}, false
	}
	return b.songs[b.songIdx], true
}

// Indexes returns the current avatar and song indexes.
func (b *Browser) Indexes() (avatar, song int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.avatarIdx, b.songIdx
}

// VocalSelection returns the displayed vocal selection.
func (b *Browser) VocalSelection() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.vocal
}

// align is the reactive alignment pass. With the lock off it does nothing.
// With the lock on, a mismatch between the selected avatar's gender and the
// selected song's vocal triggers a forward wrapping search for the first
// compatible song; when no song anywhere matches, the vocal selection itself
// is changed to the avatar's gender. Either way the lock invariant holds
// when the pass returns. The caller must hold b.mu.
func (b *Browser) align() {
	if !b.locked || len(b.avatars) == 0 {
		return
	}

	avatarGender := b.avatars[b.avatarIdx].Gender
	if avatarGender == "" {
		return
	}

	if len(b.songs) > 0 && b.songs[b.songIdx].SelectedVocal == avatarGender {
		b.vocal = avatarGender
		return
	}

	// Forward search, wrapping once through the whole list.
	for i := 1; i <= len(b.songs); i++ {
		idx := (b.songIdx + i) % len(b.songs)
		if b.songs[idx].SelectedVocal == avatarGender {
			b.songIdx = idx
			b.vocal = avatarGender
			return
		}
	}

	// No compatible song anywhere: change the vocal selection rather than
	// leave a mismatch.
	b.vocal = avatarGender
}

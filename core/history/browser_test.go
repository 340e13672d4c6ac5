package history

import (
	"testing"

	"melodygram/model"
)

func sessionWith(avatars []model.AvatarHistoryEntry, songs []model.SongHistoryEntry) *model.CreationSession {
	return &model.CreationSession{
		AvatarHistory: avatars,
		SongHistory:   songs,
	}
}

func TestCircularNavigationReturnsToStart(t *testing.T) {
	songs := []model.SongHistoryEntry{
		{AudioURL: "a", SelectedVocal: model.GenderMale},
		{AudioURL: "b", SelectedVocal: model.GenderFemale},
		{AudioURL: "c", SelectedVocal: model.GenderMale},
	}
	s := sessionWith(nil, songs)
	b := NewBrowser(s)

	for i := 0; i < len(songs); i++ {
		b.NextSong()
	}
	if _, song := b.Indexes(); song != 0 {
		t.Fatalf("N forward steps over N songs must return to index 0, got %d", song)
	}

	for i := 0; i < len(songs); i++ {
		b.PrevSong()
	}
	if _, song := b.Indexes(); song != 0 {
		t.Fatalf("N backward steps must also return to index 0, got %d", song)
	}
}

func TestPrevWrapsToEnd(t *testing.T) {
	s := sessionWith([]model.AvatarHistoryEntry{{}, {}, {}}, nil)
	b := NewBrowser(s)

	b.PrevAvatar()
	if avatar, _ := b.Indexes(); avatar != 2 {
		t.Fatalf("expected wrap to last index 2, got %d", avatar)
	}
}

func TestLockAlignsSongToAvatarGender(t *testing.T) {
	avatars := []model.AvatarHistoryEntry{{Gender: model.GenderMale, ImageURL: "m.png"}}
	songs := []model.SongHistoryEntry{
		{AudioURL: "a", SelectedVocal: model.GenderFemale},
		{AudioURL: "b", SelectedVocal: model.GenderMale},
	}
	s := sessionWith(avatars, songs)
	b := NewBrowser(s)

	b.SetLock(true)

	_, song := b.Indexes()
	if song != 1 {
		t.Fatalf("lock must move to the first male song, got index %d", song)
	}
	if got := b.VocalSelection(); got != model.GenderMale {
		t.Fatalf("vocal selection must follow the avatar gender, got %q", got)
	}
}

func TestLockHoldsAcrossNavigation(t *testing.T) {
	avatars := []model.AvatarHistoryEntry{
		{Gender: model.GenderMale},
		{Gender: model.GenderFemale},
	}
	songs := []model.SongHistoryEntry{
		{AudioURL: "a", SelectedVocal: model.GenderMale},
		{AudioURL: "b", SelectedVocal: model.GenderFemale},
		{AudioURL: "c", SelectedVocal: model.GenderMale},
	}
	s := sessionWith(avatars, songs)
	b := NewBrowser(s)
	b.SetLock(true)

	steps := []func(){b.NextAvatar, b.NextSong, b.PrevAvatar, b.PrevSong, b.NextAvatar}
	for i, step := range steps {
		step()
		avatarIdx, songIdx := b.Indexes()
		if avatars[avatarIdx].Gender != songs[songIdx].SelectedVocal {
			t.Fatalf("step %d: avatar gender %q disagrees with song vocal %q",
				i, avatars[avatarIdx].Gender, songs[songIdx].SelectedVocal)
		}
		if b.VocalSelection() != avatars[avatarIdx].Gender {
			t.Fatalf("step %d: vocal selection %q disagrees with avatar gender %q",
				i, b.VocalSelection(), avatars[avatarIdx].Gender)
		}
	}
}

func TestLockFallbackChangesVocalSelection(t *testing.T) {
	avatars := []model.AvatarHistoryEntry{{Gender: model.GenderMale}}
	songs := []model.SongHistoryEntry{
		{AudioURL: "a", SelectedVocal: model.GenderFemale},
		{AudioURL: "b", SelectedVocal: model.GenderFemale},
	}
	s := sessionWith(avatars, songs)
	s.VocalSelection = model.GenderFemale
	b := NewBrowser(s)

	b.SetLock(true)

	// No male song exists anywhere, so the vocal selection itself changes.
	if got := b.VocalSelection(); got != model.GenderMale {
		t.Fatalf("expected vocal selection forced to male, got %q", got)
	}
	if _, song := b.Indexes(); song != 0 {
		t.Fatalf("song index must not move when no song matches, got %d", song)
	}
}

func TestUnlockedNavigationLeavesVocalAlone(t *testing.T) {
	avatars := []model.AvatarHistoryEntry{
		{Gender: model.GenderMale},
		{Gender: model.GenderFemale},
	}
	songs := []model.SongHistoryEntry{
		{AudioURL: "a", SelectedVocal: model.GenderMale},
	}
	s := sessionWith(avatars, songs)
	s.VocalSelection = model.GenderMale
	b := NewBrowser(s)

	b.NextAvatar()

	if got := b.VocalSelection(); got != model.GenderMale {
		t.Fatalf("without lock the vocal selection must not change, got %q", got)
	}
}

func TestAppendSongSelectsIt(t *testing.T) {
	s := sessionWith(nil, []model.SongHistoryEntry{{AudioURL: "a"}})
	b := NewBrowser(s)

	b.AppendSong(model.SongHistoryEntry{AudioURL: "b"})
	b.Apply(s)

	if s.SongIndex != 1 {
		t.Fatalf("appended song must be selected, got index %d", s.SongIndex)
	}
	if len(s.SongHistory) != 2 {
		t.Fatalf("expected 2 songs, got %d", len(s.SongHistory))
	}
}

func TestApplyRoundTrip(t *testing.T) {
	avatars := []model.AvatarHistoryEntry{{Gender: model.GenderFemale}}
	songs := []model.SongHistoryEntry{{AudioURL: "a", SelectedVocal: model.GenderFemale}}
	s := sessionWith(avatars, songs)
	s.GenderLock = true
	s.VocalSelection = model.GenderFemale

	b := NewBrowser(s)
	b.Apply(s)

	if !s.GenderLock || s.VocalSelection != model.GenderFemale {
		t.Fatalf("Apply must preserve lock state, got %+v", s)
	}
}

package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"melodygram/core/audio"
	"melodygram/core/provider"
	"melodygram/model"
	"melodygram/repository"
)

type stubClipper struct {
	clipErr error
	clips   int
}

func (s *stubClipper) Clip(_ context.Context, _ string, _ audio.PlaybackWindow) (string, error) {
	s.clips++
	if s.clipErr != nil {
		return "", s.clipErr
	}
	return "/tmp/clip-test.mp3", nil
}

func (s *stubClipper) ProbeDuration(context.Context, string) (float64, error) {
	return 180, nil
}

type stubUploader struct {
	uploadErr  error
	lastObject string
}

func (s *stubUploader) UploadClip(_ context.Context, _ string, objectName string) (string, error) {
	s.lastObject = objectName
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	return "https://cdn.example.com/" + objectName, nil
}

type stubAvatar struct {
	submitErr error
	submits   int

	statuses []provider.AvatarStatus
	pollErr  error
	polls    int
}

func (s *stubAvatar) Submit(context.Context, provider.AvatarRequest) (string, error) {
	s.submits++
	if s.submitErr != nil {
		return "", s.submitErr
	}
	return "job-1", nil
}

func (s *stubAvatar) Poll(context.Context, string) (provider.AvatarStatus, error) {
	if s.pollErr != nil {
		return provider.AvatarStatus{}, s.pollErr
	}
	idx := s.polls
	if idx >= len(s.statuses) {
		idx = len(s.statuses) - 1
	}
	s.polls++
	return s.statuses[idx], nil
}

type stubVision struct {
	detection provider.GenderDetection
	err       error
	lastURL   string
}

func (s *stubVision) DetectGender(_ context.Context, imageURL string) (provider.GenderDetection, error) {
	s.lastURL = imageURL
	if s.err != nil {
		return provider.GenderDetection{}, s.err
	}
	return s.detection, nil
}

type stubSongRepo struct {
	failed       map[string]string
	completed    map[string]repository.CompletionUpdate
	vocalUpdates map[string]string
	progress     []int
}

func newStubSongRepo() *stubSongRepo {
	return &stubSongRepo{
		failed:       make(map[string]string),
		completed:    make(map[string]repository.CompletionUpdate),
		vocalUpdates: make(map[string]string),
	}
}

func (s *stubSongRepo) Create(*model.SavedSong) error                  { return nil }
func (s *stubSongRepo) GetByID(int64, string) (*model.SavedSong, error) { return nil, nil }
func (s *stubSongRepo) ListByUser(int64) ([]model.SavedSong, error)    { return nil, nil }

func (s *stubSongRepo) UpdateProgress(_ int64, _ string, progress int) error {
	s.progress = append(s.progress, progress)
	return nil
}

func (s *stubSongRepo) SetAudio(int64, string, string, float64, int) error { return nil }

func (s *stubSongRepo) MarkCompleted(_ int64, id string, update repository.CompletionUpdate) error {
	s.completed[id] = update
	return nil
}

func (s *stubSongRepo) MarkFailed(_ int64, id string, message string) error {
	s.failed[id] = message
	return nil
}

func (s *stubSongRepo) UpdateVocalGender(_ int64, id string, gender string) error {
	s.vocalUpdates[id] = gender
	return nil
}

func (s *stubSongRepo) IncrementPlays(int64, string) error { return nil }
func (s *stubSongRepo) Delete(int64, string) error         { return nil }

type stubSessions struct {
	puts   int
	clears int
}

func (s *stubSessions) Put(context.Context, int64, *model.CreationSession) error {
	s.puts++
	return nil
}

func (s *stubSessions) Clear(context.Context, int64) error {
	s.clears++
	return nil
}

func validSession() *model.CreationSession {
	return &model.CreationSession{
		Title:          "Summer Nights",
		Lyrics:         "la la la",
		VocalSelection: model.GenderFemale,
		SongLength:     20,
		ImageURL:       "https://img.example.com/face.png",
		ImageGenerated: true,
		SongHistory: []model.SongHistoryEntry{
			{AudioURL: "https://cdn.example.com/full.mp3", SelectedVocal: model.GenderFemale},
		},
		SongIndex: 0,
		AudioSelection: &model.AudioSelection{
			StartTime: 10,
			EndTime:   30,
			SongIndex: 0,
		},
	}
}

type fixture struct {
	clipper  *stubClipper
	uploader *stubUploader
	avatar   *stubAvatar
	vision   *stubVision
	songs    *stubSongRepo
	sessions *stubSessions
	pipe     *Pipeline
}

func newFixture() *fixture {
	f := &fixture{
		clipper:  &stubClipper{},
		uploader: &stubUploader{},
		avatar: &stubAvatar{statuses: []provider.AvatarStatus{
			{State: provider.JobStateProcessing, Progress: 50},
			{State: provider.JobStateCompleted, Progress: 100,
				VideoURL:     "https://cdn.example.com/out.mp4",
				ThumbnailURL: "https://cdn.example.com/thumb.jpg",
				Duration:     20},
		}},
		vision:   &stubVision{detection: provider.GenderDetection{Gender: model.GenderFemale, Confidence: 0.95}},
		songs:    newStubSongRepo(),
		sessions: &stubSessions{},
	}
	f.pipe = New(f.clipper, f.uploader, f.avatar, f.vision, f.songs, f.sessions, Options{
		CostCeiling:  10,
		CreditRate:   0.05,
		PollInterval: time.Millisecond,
	})
	return f
}

func request(s *model.CreationSession) Request {
	return Request{UserID: 1, SongID: "song-1", Session: s}
}

func TestValidateEnumeratesMissingFields(t *testing.T) {
	f := newFixture()

	_, err := f.pipe.Run(context.Background(), request(&model.CreationSession{}))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if KindOf(err) != KindValidation {
		t.Fatalf("expected KindValidation, got %v", KindOf(err))
	}
	for _, field := range []string{"title", "lyrics", "vocal selection", "song length", "image", "generated song audio"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("error must name %q, got: %v", field, err)
		}
	}
	if _, ok := f.songs.failed["song-1"]; !ok {
		t.Fatal("failed run must mark the record failed")
	}
}

func TestMissingSelectionAbortsBeforeSubmit(t *testing.T) {
	f := newFixture()
	s := validSession()
	s.AudioSelection = nil

	_, err := f.pipe.Run(context.Background(), request(s))
	if KindOf(err) != KindClip {
		t.Fatalf("expected KindClip, got %v (%v)", KindOf(err), err)
	}
	if f.avatar.submits != 0 {
		t.Fatal("no avatar job may be submitted without a clip")
	}
}

func TestStaleSelectionAborts(t *testing.T) {
	f := newFixture()
	s := validSession()
	s.SongHistory = append(s.SongHistory, model.SongHistoryEntry{AudioURL: "https://cdn.example.com/b.mp3"})
	s.SongIndex = 1 // selection still points at song 0

	_, err := f.pipe.Run(context.Background(), request(s))
	if KindOf(err) != KindClip {
		t.Fatalf("expected KindClip for stale selection, got %v (%v)", KindOf(err), err)
	}
	if f.clipper.clips != 0 {
		t.Fatal("a stale selection must not be clipped")
	}
}

func TestCostGateBlocksExpensiveRuns(t *testing.T) {
	f := newFixture()
	f.pipe.opts.CostCeiling = 0.5 // 20s * 0.05 = $1.00 estimate

	_, err := f.pipe.Run(context.Background(), request(validSession()))
	if KindOf(err) != KindValidation {
		t.Fatalf("expected KindValidation from the cost gate, got %v (%v)", KindOf(err), err)
	}
	if f.avatar.submits != 0 {
		t.Fatal("the cost gate must fire before any paid call")
	}
}

func TestUploadedImageCompletesSongOnly(t *testing.T) {
	f := newFixture()
	s := validSession()
	s.ImageGenerated = false

	res, err := f.pipe.Run(context.Background(), request(s))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.SongOnly {
		t.Fatal("uploaded image must complete as song only")
	}
	if res.VideoURL != "" {
		t.Fatalf("song-only run must not carry a video, got %q", res.VideoURL)
	}
	if f.avatar.submits != 0 {
		t.Fatal("song-only run must not touch the avatar API")
	}
	update, ok := f.songs.completed["song-1"]
	if !ok {
		t.Fatal("record must be marked completed")
	}
	if update.AudioURL == "" {
		t.Fatal("completion must carry the clipped audio URL")
	}
	if f.sessions.clears != 1 {
		t.Fatal("session must be cleared after completion")
	}
}

func TestFullRunProducesVideo(t *testing.T) {
	f := newFixture()

	res, err := f.pipe.Run(context.Background(), request(validSession()))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.VideoURL != "https://cdn.example.com/out.mp4" {
		t.Fatalf("unexpected video URL %q", res.VideoURL)
	}
	if res.SongOnly {
		t.Fatal("generated image run must not be song only")
	}
	if f.uploader.lastObject != "clips/song-1.mp3" {
		t.Fatalf("clip must be uploaded under clips/, got %q", f.uploader.lastObject)
	}
	update := f.songs.completed["song-1"]
	if update.VideoURL != res.VideoURL || update.ThumbnailURL != res.ThumbnailURL {
		t.Fatalf("completion update disagrees with result: %+v vs %+v", update, res)
	}
	// Progress must end at 100 and never run backwards.
	if len(f.songs.progress) == 0 || f.songs.progress[len(f.songs.progress)-1] != 100 {
		t.Fatalf("progress must end at 100, got %v", f.songs.progress)
	}
	for i := 1; i < len(f.songs.progress); i++ {
		if f.songs.progress[i] < f.songs.progress[i-1] {
			t.Fatalf("progress ran backwards: %v", f.songs.progress)
		}
	}
}

func TestGenderMismatchCorrectsVocal(t *testing.T) {
	f := newFixture()
	f.vision.detection = provider.GenderDetection{Gender: model.GenderMale, Confidence: 0.9}
	s := validSession() // vocal selection female

	res, err := f.pipe.Run(context.Background(), request(s))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.CorrectedVocal != model.GenderMale {
		t.Fatalf("expected corrected vocal male, got %q", res.CorrectedVocal)
	}
	if s.VocalSelection != model.GenderMale {
		t.Fatal("session vocal selection must follow the detected gender")
	}
	if f.songs.vocalUpdates["song-1"] != model.GenderMale {
		t.Fatal("corrected gender must be persisted")
	}
	if f.vision.lastURL != "https://cdn.example.com/thumb.jpg" {
		t.Fatalf("detection must use the avatar thumbnail, got %q", f.vision.lastURL)
	}
}

func TestLowConfidenceDetectionKeepsSelection(t *testing.T) {
	f := newFixture()
	f.vision.detection = provider.GenderDetection{Gender: model.GenderMale, Confidence: 0.6}
	s := validSession()

	res, err := f.pipe.Run(context.Background(), request(s))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.CorrectedVocal != "" {
		t.Fatalf("low confidence must not correct, got %q", res.CorrectedVocal)
	}
	if s.VocalSelection != model.GenderFemale {
		t.Fatal("selection must be untouched")
	}
}

func TestDetectorFailureIsSwallowed(t *testing.T) {
	f := newFixture()
	f.vision.err = errors.New("vision unavailable")

	res, err := f.pipe.Run(context.Background(), request(validSession()))
	if err != nil {
		t.Fatalf("detector failure must not fail the run: %v", err)
	}
	if res.CorrectedVocal != "" {
		t.Fatalf("no correction expected, got %q", res.CorrectedVocal)
	}
}

func TestSubmitErrorsCarryTheirKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"missing credentials", provider.ErrSetupRequired, KindConfig},
		{"rejected credentials", provider.ErrUnauthorized, KindAuth},
		{"transport failure", errors.New("connection refused"), KindNetwork},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.avatar.submitErr = tc.err

			_, err := f.pipe.Run(context.Background(), request(validSession()))
			if KindOf(err) != tc.want {
				t.Fatalf("expected %v, got %v (%v)", tc.want, KindOf(err), err)
			}
		})
	}
}

func TestPollCancellation(t *testing.T) {
	f := newFixture()
	f.avatar.statuses = []provider.AvatarStatus{{State: provider.JobStateProcessing, Progress: 10}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.pipe.Run(ctx, request(validSession()))
	if KindOf(err) != KindTimeout {
		t.Fatalf("expected KindTimeout, got %v (%v)", KindOf(err), err)
	}
}

func TestResolveImageURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain URL", "https://img.example.com/a.png", "https://img.example.com/a.png"},
		{"proxied URL", "/api/image-proxy?url=https%3A%2F%2Fupstream.example.com%2Fa.png", "https://upstream.example.com/a.png"},
		{"proxy without target", "/api/image-proxy?x=1", "/api/image-proxy?x=1"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveImageURL(tc.in); got != tc.want {
				t.Fatalf("ResolveImageURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

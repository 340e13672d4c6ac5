package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"melodygram/logger"

	"github.com/google/uuid"
)

// Clipper produces a genuinely separate audio asset for a time window of a
// source asset. The avatar API takes a single audio URL with no time-range
// parameter, so submission always needs a real clipped file; previews use
// PlaybackWindow instead.
type Clipper interface {
	Clip(ctx context.Context, srcURL string, window PlaybackWindow) (string, error)
	ProbeDuration(ctx context.Context, srcURL string) (float64, error)
}

// FFmpegClipper implements Clipper using ffmpeg.
type FFmpegClipper struct {
	ffmpegPath string
	workDir    string
}

// NewFFmpegClipper creates a new FFmpegClipper writing into workDir.
func NewFFmpegClipper(ffmpegPath, workDir string) *FFmpegClipper {
	return &FFmpegClipper{ffmpegPath: ffmpegPath, workDir: workDir}
}

// FFmpegPath returns the configured ffmpeg binary path.
func (p *FFmpegClipper) FFmpegPath() string {
	return p.ffmpegPath
}

// Clip extracts the window from the source audio into a new MP3 file and
// returns its local path. Edge fades match the preview fades: 0.5s or 10%
// of the window, whichever is smaller.
func (p *FFmpegClipper) Clip(ctx context.Context, srcURL string, window PlaybackWindow) (string, error) {
	if !window.Valid() {
		return "", fmt.Errorf("invalid clip window [%f, %f]", window.Start, window.End)
	}
	if err := os.MkdirAll(p.workDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create clip work dir %s: %w", p.workDir, err)
	}

	outPath := filepath.Join(p.workDir, fmt.Sprintf("clip_%s.mp3", uuid.NewString()))
	duration := window.Duration()
	fade := window.FadeLen()

	args := []string{
		"-ss", formatSeconds(window.Start),
		"-t", formatSeconds(duration),
		"-i", srcURL,
	}
	if fade > 0 {
		filter := fmt.Sprintf("afade=t=in:st=0:d=%s,afade=t=out:st=%s:d=%s",
			formatSeconds(fade),
			formatSeconds(duration-fade),
			formatSeconds(fade))
		args = append(args, "-af", filter)
	}
	args = append(args,
		"-c:a", "libmp3lame",
		"-b:a", "192k",
		"-y",
		outPath,
	)

	logger.Info("Clipping audio",
		logger.String("src", srcURL),
		logger.Float64("start", window.Start),
		logger.Float64("end", window.End),
		logger.Float64("fade", fade))

	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("ffmpeg clip failed: %w\nFFmpeg Error: %s", err, stderr.String())
	}

	return outPath, nil
}

// ProbeDuration returns the duration of the source audio in seconds.
func (p *FFmpegClipper) ProbeDuration(ctx context.Context, srcURL string) (float64, error) {
	ffprobePath := strings.Replace(p.ffmpegPath, "ffmpeg", "ffprobe", 1)

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		srcURL,
	}

	cmd := exec.CommandContext(ctx, ffprobePath, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe execution failed for %s: %w\nFFprobe Error: %s", srcURL, err, stderr.String())
	}

	var probeData struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out.Bytes(), &probeData); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ffprobe output: %w", err)
	}

	duration, err := strconv.ParseFloat(probeData.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", probeData.Format.Duration, err)
	}
	return duration, nil
}

func formatSeconds(secs float64) string {
	return strconv.FormatFloat(secs, 'f', 3, 64)
}

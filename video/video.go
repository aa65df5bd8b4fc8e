package video

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// minClipSeconds keeps very short narrations on screen long enough to
// read.
const minClipSeconds = 2.5

// CommandRunner executes an external command and returns its combined
// output. Tests substitute a recorder.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Encoder drives ffmpeg to turn still frames plus narration audio into
// the final reel.
type Encoder struct {
	Run CommandRunner

	FFmpegPath  string
	FFprobePath string
	Width       int
	Height      int
	FPS         int
	ZoomFactor  float64
	Fade        float64
	Padding     float64
}

func NewEncoder(ffmpegPath, ffprobePath string, width, height, fps int, zoomFactor, fade, padding float64) *Encoder {
	return &Encoder{
		Run:         runCommand,
		FFmpegPath:  ffmpegPath,
		FFprobePath: ffprobePath,
		Width:       width,
		Height:      height,
		FPS:         fps,
		ZoomFactor:  zoomFactor,
		Fade:        fade,
		Padding:     padding,
	}
}

// Probe returns the duration of a media file in seconds.
func (e *Encoder) Probe(ctx context.Context, path string) (float64, error) {
	output, err := e.Run(ctx, e.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, errors.Errorf("error probing %s: %v, output: %s", path, err, output)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing duration of %s", path)
	}
	return duration, nil
}

// MakeClip renders one slide clip: the frame with a slow zoom, faded in
// and out, muxed with its narration. The clip runs slightly longer than
// the narration so slides breathe.
func (e *Encoder) MakeClip(ctx context.Context, imagePath, audioPath, outPath string) error {
	audioSeconds, err := e.Probe(ctx, audioPath)
	if err != nil {
		return err
	}
	duration := audioSeconds + e.Padding
	if duration < minClipSeconds {
		duration = minClipSeconds
	}

	args := e.ClipArgs(imagePath, audioPath, duration, outPath)
	logrus.WithFields(logrus.Fields{
		"image":    filepath.Base(imagePath),
		"duration": fmt.Sprintf("%.2f", duration),
	}).Debug("rendering clip")

	output, err := e.Run(ctx, e.FFmpegPath, args...)
	if err != nil {
		return errors.Errorf("error rendering clip: %v, output: %s", err, output)
	}
	return nil
}

// ClipArgs builds the ffmpeg invocation for a single slide clip. The
// narration is shorter than the clip, so apad stretches it with
// silence; -t then cuts both streams at the computed duration.
func (e *Encoder) ClipArgs(imagePath, audioPath string, duration float64, outPath string) []string {
	return []string{
		"-y",
		"-loop", "1",
		"-i", imagePath,
		"-i", audioPath,
		"-vf", e.kenBurnsFilter(duration),
		"-af", "apad",
		"-t", fmt.Sprintf("%.2f", duration),
		"-c:v", "libx264",
		"-preset", "medium",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		outPath,
	}
}

// kenBurnsFilter zooms slowly into the frame center. The image is
// upscaled first so sub-pixel zoom steps do not jitter.
func (e *Encoder) kenBurnsFilter(duration float64) string {
	frames := int(duration * float64(e.FPS))
	if frames < 1 {
		frames = 1
	}
	step := e.ZoomFactor / float64(frames)

	filter := fmt.Sprintf(
		"scale=%d:%d,zoompan=z='min(zoom+%.6f,%.4f)':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%d:s=%dx%d:fps=%d",
		e.Width*2, e.Height*2,
		step, 1+e.ZoomFactor,
		frames,
		e.Width, e.Height,
		e.FPS,
	)

	if e.Fade > 0 && duration > 2*e.Fade {
		filter += fmt.Sprintf(",fade=t=in:st=0:d=%.2f,fade=t=out:st=%.2f:d=%.2f",
			e.Fade, duration-e.Fade, e.Fade)
	}
	return filter
}

// Concat stitches the slide clips into the final mp4.
func (e *Encoder) Concat(ctx context.Context, clipPaths []string, outPath string) error {
	if len(clipPaths) == 0 {
		return errors.New("no clips to concatenate")
	}

	listPath := filepath.Join(filepath.Dir(outPath), "concat.txt")
	if err := writeConcatList(listPath, clipPaths); err != nil {
		return err
	}
	defer os.Remove(listPath)

	args := e.ConcatArgs(listPath, outPath)
	output, err := e.Run(ctx, e.FFmpegPath, args...)
	if err != nil {
		return errors.Errorf("error concatenating clips: %v, output: %s", err, output)
	}
	return nil
}

// ConcatArgs builds the final mux invocation. Re-encoding keeps mixed
// clip timing clean, and faststart moves the moov atom up front for
// streaming players.
func (e *Encoder) ConcatArgs(listPath, outPath string) []string {
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c:v", "libx264",
		"-preset", "medium",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(e.FPS),
		"-c:a", "aac",
		"-movflags", "+faststart",
		outPath,
	}
}

func writeConcatList(listPath string, clipPaths []string) error {
	var b strings.Builder
	for _, clip := range clipPaths {
		abs, err := filepath.Abs(clip)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "file '%s'\n", abs)
	}
	return os.WriteFile(listPath, []byte(b.String()), 0o644)
}

package video

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func newTestEncoder() *Encoder {
	return NewEncoder("ffmpeg", "ffprobe", 1080, 1920, 24, 0.06, 1.2, 0.35)
}

func TestProbeParsesDuration(t *testing.T) {
	e := newTestEncoder()
	e.Run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if name != "ffprobe" {
			t.Errorf("expected ffprobe, got %s", name)
		}
		return []byte("12.345\n"), nil
	}

	duration, err := e.Probe(context.Background(), "audio.mp3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if duration != 12.345 {
		t.Errorf("expected 12.345, got %v", duration)
	}
}

func TestProbeRejectsGarbage(t *testing.T) {
	e := newTestEncoder()
	e.Run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("N/A"), nil
	}

	if _, err := e.Probe(context.Background(), "audio.mp3"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestClipArgs(t *testing.T) {
	e := newTestEncoder()
	args := e.ClipArgs("frame.png", "voice.mp3", 5.0, "clip.mp4")

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-loop 1",
		"-i frame.png",
		"-i voice.mp3",
		"-t 5.00",
		"-c:v libx264",
		"clip.mp4",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected args to contain %q, got %q", want, joined)
		}
	}
}

// The clip must run the full computed duration even though the
// narration is shorter: silence-pad the audio up to -t rather than let
// the shortest stream end encoding early.
func TestClipArgsPadAudioToFullDuration(t *testing.T) {
	e := newTestEncoder()
	args := e.ClipArgs("frame.png", "voice.mp3", 5.0, "clip.mp4")

	joined := strings.Join(args, " ")
	if strings.Contains(joined, "-shortest") {
		t.Errorf("clip args must not cut at the audio length, got %q", joined)
	}
	if !strings.Contains(joined, "-af apad") {
		t.Errorf("expected audio padding in clip args, got %q", joined)
	}
	tIdx := -1
	for i, arg := range args {
		if arg == "-af" {
			tIdx = i
		}
	}
	if tIdx == -1 || args[tIdx+1] != "apad" {
		t.Errorf("expected apad to follow -af, got %v", args)
	}
}

func TestKenBurnsFilter(t *testing.T) {
	e := newTestEncoder()
	filter := e.kenBurnsFilter(5.0)

	if !strings.Contains(filter, "zoompan=") {
		t.Errorf("expected zoompan filter, got %q", filter)
	}
	if !strings.Contains(filter, "s=1080x1920") {
		t.Errorf("expected output size in filter, got %q", filter)
	}
	// 5s at 24fps is 120 frames.
	if !strings.Contains(filter, "d=120") {
		t.Errorf("expected frame count in filter, got %q", filter)
	}
	if !strings.Contains(filter, "fade=t=in") || !strings.Contains(filter, "fade=t=out:st=3.80") {
		t.Errorf("expected fades in filter, got %q", filter)
	}
}

func TestKenBurnsFilterSkipsFadeOnShortClips(t *testing.T) {
	e := newTestEncoder()
	filter := e.kenBurnsFilter(2.0)
	if strings.Contains(filter, "fade=") {
		t.Errorf("expected no fade on a clip shorter than two fades, got %q", filter)
	}
}

func TestMakeClipEnforcesMinimumDuration(t *testing.T) {
	e := newTestEncoder()
	var gotDuration string
	e.Run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if name == "ffprobe" {
			return []byte("0.8"), nil
		}
		for i, arg := range args {
			if arg == "-t" {
				gotDuration = args[i+1]
			}
		}
		return nil, nil
	}

	if err := e.MakeClip(context.Background(), "frame.png", "voice.mp3", "clip.mp4"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotDuration != "2.50" {
		t.Errorf("expected clamped duration 2.50, got %q", gotDuration)
	}
}

func TestConcatWritesListAndRuns(t *testing.T) {
	dir := t.TempDir()
	e := newTestEncoder()

	var gotArgs []string
	var listContents string
	e.Run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = args
		for i, arg := range args {
			if arg == "-i" {
				data, err := os.ReadFile(args[i+1])
				if err != nil {
					t.Fatalf("reading concat list: %v", err)
				}
				listContents = string(data)
			}
		}
		return nil, nil
	}

	clips := []string{filepath.Join(dir, "a.mp4"), filepath.Join(dir, "b.mp4")}
	outPath := filepath.Join(dir, "final.mp4")
	if err := e.Concat(context.Background(), clips, outPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(listContents, "a.mp4") || !strings.Contains(listContents, "b.mp4") {
		t.Errorf("expected both clips in list, got %q", listContents)
	}
	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "-movflags +faststart") {
		t.Errorf("expected faststart in final mux, got %q", joined)
	}
	if _, err := os.Stat(filepath.Join(dir, "concat.txt")); !os.IsNotExist(err) {
		t.Errorf("expected concat list to be cleaned up")
	}
}

func TestConcatRejectsEmptyClipList(t *testing.T) {
	e := newTestEncoder()
	e.Run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, errors.New("should not run")
	}
	if err := e.Concat(context.Background(), nil, "final.mp4"); err == nil {
		t.Fatal("expected error for empty clip list")
	}
}

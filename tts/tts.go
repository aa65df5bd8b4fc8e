package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/marketreel/marketreel/utils"
)

const googleTTSEndpoint = "https://translate.google.com/translate_tts"

// Synthesizer turns narration text into an mp3. The primary path shells
// out to edge-tts; when that fails it tries the public translate_tts
// endpoint, and as a last resort writes silence so the slide still gets
// a clip. The function fields exist so tests can stub each layer.
type Synthesizer struct {
	EdgeTTSFunc  func(ctx context.Context, text, outPath string) error
	FallbackFunc func(ctx context.Context, text, outPath string) error
	SilenceFunc  func(ctx context.Context, seconds float64, outPath string) error

	Voice       string
	Language    string
	EdgeTTSPath string
	FFmpegPath  string
	HTTPClient  *http.Client
	limiter     *rate.Limiter
}

func NewSynthesizer(voice, language, edgeTTSPath, ffmpegPath string, timeout time.Duration, limit int, interval time.Duration) *Synthesizer {
	s := &Synthesizer{
		Voice:       voice,
		Language:    language,
		EdgeTTSPath: edgeTTSPath,
		FFmpegPath:  ffmpegPath,
		HTTPClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Every(interval), limit),
	}
	s.EdgeTTSFunc = s.runEdgeTTS
	s.FallbackFunc = s.fetchGoogleTTS
	s.SilenceFunc = s.writeSilence
	return s
}

// Speak synthesizes text to outPath. It reports whether real speech was
// produced; false means the silent fallback was used.
func (s *Synthesizer) Speak(ctx context.Context, text, outPath string) (bool, error) {
	text = utils.CleanNarration(text)
	if text == "" {
		return false, s.SilenceFunc(ctx, 2.5, outPath)
	}

	err := utils.Retry(ctx, "edge-tts", func() error {
		return s.EdgeTTSFunc(ctx, text, outPath)
	})
	if err == nil {
		return true, nil
	}
	logrus.WithError(err).Warn("edge-tts failed, trying HTTP fallback")

	if err := s.FallbackFunc(ctx, text, outPath); err == nil {
		return true, nil
	} else {
		logrus.WithError(err).Warn("TTS HTTP fallback failed, writing silence")
	}

	if err := s.SilenceFunc(ctx, 3.0, outPath); err != nil {
		return false, errors.Wrap(err, "writing silent audio")
	}
	return false, nil
}

func (s *Synthesizer) runEdgeTTS(ctx context.Context, text, outPath string) error {
	cmd := exec.CommandContext(ctx, s.EdgeTTSPath,
		"--voice", s.Voice,
		"--text", text,
		"--write-media", outPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Errorf("error executing edge-tts: %v, output: %s", err, output)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return errors.Wrap(err, "edge-tts produced no file")
	}
	if info.Size() == 0 {
		return errors.New("edge-tts produced an empty file")
	}
	return nil
}

// maxFallbackRunes caps the text sent to translate_tts, which rejects
// long queries. Counting runes keeps the cut valid for Telugu, where
// each character escapes to several %XX triplets.
const maxFallbackRunes = 200

// fetchGoogleTTS pulls short narration audio from the public
// translate_tts endpoint.
func (s *Synthesizer) fetchGoogleTTS(ctx context.Context, text, outPath string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	safeText := url.QueryEscape(truncateRunes(text, maxFallbackRunes))

	ttsURL := fmt.Sprintf("%s?ie=UTF-8&q=%s&tl=%s&client=tw-ob", googleTTSEndpoint, safeText, s.Language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ttsURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("translate_tts rejected request: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "audio/") {
		return errors.Errorf("translate_tts returned %s, not audio", ct)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

// truncateRunes cuts text to at most maxRunes runes on a word boundary,
// never splitting a multi-byte character.
func truncateRunes(text string, maxRunes int) string {
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}

	var b strings.Builder
	count := 0
	for _, word := range strings.Fields(text) {
		wordRunes := utf8.RuneCountInString(word)
		if count > 0 {
			wordRunes++
		}
		if count+wordRunes > maxRunes {
			break
		}
		if count > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
		count += wordRunes
	}
	if b.Len() == 0 {
		// A single word longer than the cap: cut it mid-word.
		return string([]rune(text)[:maxRunes])
	}
	return b.String()
}

func (s *Synthesizer) writeSilence(ctx context.Context, seconds float64, outPath string) error {
	cmd := exec.CommandContext(ctx, s.FFmpegPath, "-y",
		"-f", "lavfi",
		"-i", "anullsrc=r=44100:cl=mono",
		"-t", fmt.Sprintf("%.1f", seconds),
		"-c:a", "libmp3lame",
		"-q:a", "9",
		outPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Errorf("error writing silence: %v, output: %s", err, output)
	}
	return nil
}

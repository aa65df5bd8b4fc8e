package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/marketreel/marketreel/article"
	"github.com/marketreel/marketreel/config"
	"github.com/marketreel/marketreel/images"
	"github.com/marketreel/marketreel/market"
	"github.com/marketreel/marketreel/slides"
	"github.com/marketreel/marketreel/translate"
	"github.com/marketreel/marketreel/tts"
	"github.com/marketreel/marketreel/utils"
	"github.com/marketreel/marketreel/video"
)

// State is the run summary written next to the output video. It is the
// only artifact that survives a failed run besides the logs.
type State struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	StoryType  string    `json:"story_type,omitempty"`
	Title      string    `json:"title,omitempty"`
	Slides     int       `json:"slides,omitempty"`
	Output     string    `json:"output,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
}

// Pipeline runs the whole story-to-video flow once. Every external
// service sits behind a function field so stages can be stubbed in
// tests.
type Pipeline struct {
	Config *config.Config

	PickFunc     func(ctx context.Context) (*market.Story, error)
	ArticleFunc  func(ctx context.Context, rawURL string) (string, error)
	TranslateFn  func(ctx context.Context, text string) (string, error)
	SpeakFunc    func(ctx context.Context, text, outPath string) (bool, error)
	FetchImageFn func(ctx context.Context, prompt, outPath string) error

	Renderer *images.Renderer
	Encoder  *video.Encoder
}

// New wires the production services from config.
func New(cfg *config.Config) *Pipeline {
	client := market.NewClient(cfg.HTTPTimeout)
	picker := market.NewPicker(client, cfg.Settings)
	fetcher := article.NewFetcher(cfg.HTTPTimeout)
	translator := translate.NewTranslator(cfg.Settings.TargetLanguage, cfg.HTTPTimeout, cfg.RateLimit, cfg.RateLimitInterval)
	synth := tts.NewSynthesizer(cfg.Voice, cfg.Settings.TargetLanguage, cfg.EdgeTTSPath, cfg.FFmpegPath,
		cfg.HTTPTimeout, cfg.RateLimit, cfg.RateLimitInterval)
	width, height := cfg.Resolution()
	imgFetcher := images.NewFetcher(cfg.Settings.FallbackImages, width, height,
		cfg.HTTPTimeout, cfg.RateLimit, cfg.RateLimitInterval)
	return &Pipeline{
		Config:       cfg,
		PickFunc:     picker.Pick,
		ArticleFunc:  fetcher.Fetch,
		TranslateFn:  translator.Translate,
		SpeakFunc:    synth.Speak,
		FetchImageFn: imgFetcher.Fetch,
		Renderer:     images.NewRenderer(width, height, cfg.Settings.FontPaths, cfg.LogoPath),
		Encoder: video.NewEncoder(cfg.FFmpegPath, cfg.FFprobePath, width, height, cfg.FPS,
			cfg.ZoomFactor, cfg.FadeDuration, cfg.PaddingPerSlide),
	}
}

// Run executes one full pass and returns the path of the finished
// video.
func (p *Pipeline) Run(ctx context.Context) (string, error) {
	state := State{
		RunID:     uuid.New().String()[:8],
		StartedAt: time.Now(),
		Status:    "failed",
	}
	defer func() {
		state.FinishedAt = time.Now()
		p.writeState(state)
	}()

	log := logrus.WithField("run_id", state.RunID)

	tmpDir := filepath.Join(p.Config.TempDir, "marketreel-"+state.RunID)
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		state.Error = err.Error()
		return "", errors.Wrap(err, "creating temp dir")
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			log.WithError(err).Warn("Failed to clean up temp dir")
		}
	}()

	log.Info("Stage: picking story")
	story, err := p.PickFunc(ctx)
	if err != nil {
		state.Error = err.Error()
		return "", errors.Wrap(err, "picking story")
	}
	state.StoryType = string(story.Type)
	state.Title = story.Title
	log.WithFields(logrus.Fields{
		"type":   story.Type,
		"symbol": story.Symbol,
		"title":  story.Title,
	}).Info("Story selected")

	log.Info("Stage: building slide deck")
	deck := p.buildDeck(ctx, story, log)
	state.Slides = len(deck)
	log.WithField("slides", len(deck)).Info("Deck ready")

	log.Info("Stage: preparing background")
	bgPath := filepath.Join(tmpDir, "background.png")
	if err := p.prepareBackground(ctx, story, bgPath, log); err != nil {
		state.Error = err.Error()
		return "", errors.Wrap(err, "preparing background")
	}

	log.Info("Stage: rendering slides")
	clips, err := p.renderSlides(ctx, deck, bgPath, tmpDir, log)
	if err != nil {
		state.Error = err.Error()
		return "", err
	}
	if len(clips) == 0 {
		state.Error = "no clips were produced"
		return "", errors.New("no clips were produced")
	}

	log.Info("Stage: final mux")
	finalTmp := filepath.Join(tmpDir, "final.mp4")
	if err := p.Encoder.Concat(ctx, clips, finalTmp); err != nil {
		state.Error = err.Error()
		return "", err
	}

	outPath, err := p.publish(finalTmp, story.Title)
	if err != nil {
		state.Error = err.Error()
		return "", err
	}

	state.Status = "ok"
	state.Output = outPath
	log.WithField("output", outPath).Info("Run complete")
	return outPath, nil
}

// buildDeck assembles the slide text. News stories pull the article
// body when it is reachable; anything that fails falls back to the
// narration script so the run still produces a reel.
func (p *Pipeline) buildDeck(ctx context.Context, story *market.Story, log *logrus.Entry) []slides.Slide {
	text := story.Script
	if story.Type == market.StoryNews && story.ArticleURL != "" {
		body, err := p.ArticleFunc(ctx, story.ArticleURL)
		if err != nil {
			log.WithError(err).Warn("Article fetch failed, using script only")
		} else {
			text = story.Script + "\n\n" + body
		}
	}
	return slides.Split(text, story.Name, p.Config.ApproxSlideSize, p.Config.MinSlideChars)
}

func (p *Pipeline) prepareBackground(ctx context.Context, story *market.Story, bgPath string, log *logrus.Entry) error {
	if story.Type == market.StoryTechnical && len(story.Closes) >= 2 {
		return p.Renderer.PriceChart(story.Closes, market.Trend(story.Closes), story.Name, bgPath)
	}

	rawPath := bgPath + ".src"
	prompt := story.Name + " stock market india"
	if err := p.FetchImageFn(ctx, prompt, rawPath); err != nil {
		log.WithError(err).Warn("Image providers failed, using solid frame")
		return p.Renderer.SolidFrame(bgPath)
	}
	defer os.Remove(rawPath)

	if err := p.Renderer.Background(rawPath, bgPath); err != nil {
		log.WithError(err).Warn("Background compose failed, using solid frame")
		return p.Renderer.SolidFrame(bgPath)
	}
	return nil
}

// eligibleSlides drops slides whose narration is still too short after
// merging. The survivors are what the footer counts, so a skipped slide
// leaves no gap in the page numbers.
func (p *Pipeline) eligibleSlides(deck []slides.Slide, log *logrus.Entry) []slides.Slide {
	if len(deck) <= 1 {
		return deck
	}
	var kept []slides.Slide
	for i, slide := range deck {
		narration := utils.CleanNarration(slide.Narration())
		if !slide.IsTitle() && len(narration) < p.Config.MinSlideChars {
			log.WithField("slide", i+1).Debug("Skipping tiny slide")
			continue
		}
		kept = append(kept, slide)
	}
	return kept
}

func (p *Pipeline) renderSlides(ctx context.Context, deck []slides.Slide, bgPath, tmpDir string, log *logrus.Entry) ([]string, error) {
	kept := p.eligibleSlides(deck, log)

	var clips []string
	for i, slide := range kept {
		narration := utils.CleanNarration(slide.Narration())

		framePath := filepath.Join(tmpDir, fmt.Sprintf("slide_%02d.png", i+1))
		if err := p.Renderer.SlideImage(bgPath, slide, i+1, len(kept), framePath); err != nil {
			return nil, errors.Wrapf(err, "rendering slide %d", i+1)
		}

		spoken := narration
		if translated, err := p.TranslateFn(ctx, narration); err != nil {
			log.WithError(err).WithField("slide", i+1).Warn("Translation failed, narrating source text")
		} else {
			spoken = translated
		}

		audioPath := filepath.Join(tmpDir, fmt.Sprintf("slide_%02d.mp3", i+1))
		voiced, err := p.SpeakFunc(ctx, spoken, audioPath)
		if err != nil {
			return nil, errors.Wrapf(err, "synthesizing slide %d", i+1)
		}
		if !voiced {
			log.WithField("slide", i+1).Warn("Slide narration is silent")
		}

		clipPath := filepath.Join(tmpDir, fmt.Sprintf("clip_%02d.mp4", i+1))
		if err := p.Encoder.MakeClip(ctx, framePath, audioPath, clipPath); err != nil {
			return nil, errors.Wrapf(err, "rendering clip %d", i+1)
		}
		clips = append(clips, clipPath)
	}
	return clips, nil
}

// publish moves the finished video into the output directory under a
// timestamped name.
func (p *Pipeline) publish(srcPath, title string) (string, error) {
	if err := os.MkdirAll(p.Config.OutputDir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating output dir")
	}
	name := fmt.Sprintf("%s_%s.mp4", utils.SafeFilename(title), time.Now().Format("20060102_150405"))
	outPath := filepath.Join(p.Config.OutputDir, name)
	if err := moveFile(srcPath, outPath); err != nil {
		return "", errors.Wrap(err, "publishing video")
	}
	return outPath, nil
}

// moveFile renames when possible and copies across filesystems, since
// the temp dir often lives on a different mount than the output dir.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

func (p *Pipeline) writeState(state State) {
	if err := os.MkdirAll(p.Config.OutputDir, 0o755); err != nil {
		logrus.WithError(err).Warn("Failed to create output dir for run state")
		return
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		logrus.WithError(err).Warn("Failed to marshal run state")
		return
	}
	path := filepath.Join(p.Config.OutputDir, "run.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logrus.WithError(err).Warn("Failed to write run state")
	}
}

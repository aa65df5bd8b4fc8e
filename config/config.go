package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	OutputDir    string
	LogDir       string
	TempDir      string
	VideoMode    string
	Voice        string
	FFmpegPath   string
	FFprobePath  string
	EdgeTTSPath  string
	LogoPath     string
	HTTPTimeout  time.Duration
	StageTimeout time.Duration

	MinSlideChars   int
	MaxSlideChars   int
	ApproxSlideSize int

	FadeDuration    float64
	PaddingPerSlide float64
	ZoomFactor      float64
	FPS             int

	RateLimit         int
	RateLimitInterval time.Duration

	Settings Settings
}

// Settings holds the YAML-backed tunables: what to scan and what the
// frames look like.
type Settings struct {
	Watchlist      []string `yaml:"watchlist"`
	Indices        []Index  `yaml:"indices"`
	FallbackImages []string `yaml:"fallback_images"`
	FontPaths      []string `yaml:"font_paths"`
	TargetLanguage string   `yaml:"target_language"`
}

type Index struct {
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		OutputDir:    GetEnv("OUTPUT_DIR", "generated_videos"),
		LogDir:       GetEnv("LOG_DIR", "./logs"),
		TempDir:      GetEnv("TEMP_DIR", os.TempDir()),
		VideoMode:    GetEnv("VIDEO_MODE", "PORTRAIT"),
		Voice:        GetEnv("TTS_VOICE", "te-IN-ShrutiNeural"),
		FFmpegPath:   GetEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:  GetEnv("FFPROBE_PATH", "ffprobe"),
		EdgeTTSPath:  GetEnv("EDGE_TTS_PATH", "edge-tts"),
		LogoPath:     GetEnv("LOGO_PATH", "assets/logo.png"),
		HTTPTimeout:  getEnvAsDuration("HTTP_TIMEOUT", 20*time.Second),
		StageTimeout: getEnvAsDuration("STAGE_TIMEOUT", 10*time.Minute),

		MinSlideChars:   getEnvAsInt("MIN_SLIDE_CHARS", 40),
		MaxSlideChars:   getEnvAsInt("MAX_SLIDE_CHARS", 1200),
		ApproxSlideSize: getEnvAsInt("APPROX_SLIDE_CHARS", 700),

		FadeDuration:    1.2,
		PaddingPerSlide: 0.35,
		ZoomFactor:      0.06,
		FPS:             24,

		RateLimit:         getEnvAsInt("RATE_LIMIT", 5),
		RateLimitInterval: getEnvAsDuration("RATE_LIMIT_INTERVAL", 1*time.Second),
	}

	settings, err := loadSettings(GetEnv("SETTINGS_PATH", "settings.yaml"))
	if err != nil {
		return nil, err
	}
	cfg.Settings = *settings

	return cfg, nil
}

func loadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.WithField("path", path).Warn("Settings file not found, using defaults")
			return defaultSettings(), nil
		}
		return nil, errors.Wrap(err, "reading settings file")
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "parsing settings file")
	}

	defs := defaultSettings()
	if len(s.Watchlist) == 0 {
		s.Watchlist = defs.Watchlist
	}
	if len(s.Indices) == 0 {
		s.Indices = defs.Indices
	}
	if len(s.FallbackImages) == 0 {
		s.FallbackImages = defs.FallbackImages
	}
	if len(s.FontPaths) == 0 {
		s.FontPaths = defs.FontPaths
	}
	if s.TargetLanguage == "" {
		s.TargetLanguage = defs.TargetLanguage
	}

	return &s, nil
}

func defaultSettings() *Settings {
	return &Settings{
		Watchlist: []string{
			"RELIANCE.NS", "TCS.NS", "HDFCBANK.NS", "INFY.NS", "ICICIBANK.NS",
			"HINDUNILVR.NS", "SBIN.NS", "BHARTIARTL.NS", "ITC.NS", "KOTAKBANK.NS",
			"LICI.NS", "LT.NS", "AXISBANK.NS", "ASIANPAINT.NS", "MARUTI.NS",
		},
		Indices: []Index{
			{Symbol: "^NSEI", Name: "Nifty 50"},
			{Symbol: "^NSEBANK", Name: "Bank Nifty"},
		},
		FallbackImages: []string{
			"https://images.unsplash.com/photo-1611974789855-9c2a0a7236a3?q=80&w=1080&h=1920&fit=crop",
			"https://images.unsplash.com/photo-1590283603385-17ffb3a7f29f?q=80&w=1080&h=1920&fit=crop",
			"https://images.unsplash.com/photo-1535320903710-d9cf63d4040c?q=80&w=1080&h=1920&fit=crop",
		},
		FontPaths: []string{
			"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
			"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
		},
		TargetLanguage: "te",
	}
}

// Resolution returns the output frame size for the configured mode.
func (c *Config) Resolution() (int, int) {
	if c.VideoMode == "LANDSCAPE" {
		return 1920, 1080
	}
	return 1080, 1920
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid duration, using default")
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid integer, using default")
	}
	return defaultValue
}

func ValidateConfig(cfg *Config) error {
	if cfg.OutputDir == "" {
		return errors.New("output directory is required")
	}
	if cfg.VideoMode != "PORTRAIT" && cfg.VideoMode != "LANDSCAPE" {
		return errors.Errorf("invalid video mode: %s", cfg.VideoMode)
	}
	if cfg.Voice == "" {
		return errors.New("TTS voice is required")
	}
	if cfg.StageTimeout <= 0 {
		return errors.New("stage timeout must be greater than 0")
	}
	if cfg.HTTPTimeout <= 0 {
		return errors.New("HTTP timeout must be greater than 0")
	}
	if cfg.MinSlideChars <= 0 || cfg.MaxSlideChars <= cfg.MinSlideChars {
		return errors.New("slide character bounds are inconsistent")
	}
	if len(cfg.Settings.Watchlist) == 0 {
		return errors.New("watchlist must not be empty")
	}
	if len(cfg.Settings.Indices) == 0 {
		return errors.New("at least one index is required for the technical fallback")
	}
	return nil
}

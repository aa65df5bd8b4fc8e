package images

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const pollinationsEndpoint = "https://image.pollinations.ai/prompt"

// Fetcher downloads a background image for a slide deck. Curated stock
// URLs are tried first in random order, then a generated image from
// Pollinations. Callers fall back to a rendered solid frame when every
// provider fails. DownloadFunc is a seam for tests.
type Fetcher struct {
	DownloadFunc func(ctx context.Context, rawURL, outPath string) error

	FallbackURLs []string
	Width        int
	Height       int
	HTTPClient   *http.Client
	limiter      *rate.Limiter
}

func NewFetcher(fallbackURLs []string, width, height int, timeout time.Duration, limit int, interval time.Duration) *Fetcher {
	f := &Fetcher{
		FallbackURLs: fallbackURLs,
		Width:        width,
		Height:       height,
		HTTPClient:   &http.Client{Timeout: timeout},
		limiter:      rate.NewLimiter(rate.Every(interval), limit),
	}
	f.DownloadFunc = f.download
	return f
}

// Fetch writes a background image for prompt to outPath.
func (f *Fetcher) Fetch(ctx context.Context, prompt, outPath string) error {
	for _, u := range f.shuffledFallbacks() {
		if err := f.DownloadFunc(ctx, u, outPath); err == nil {
			return nil
		} else {
			logrus.WithError(err).WithField("url", u).Debug("stock image fetch failed")
		}
	}

	genURL := fmt.Sprintf("%s/%s?width=%d&height=%d&nologo=true",
		pollinationsEndpoint, url.PathEscape(prompt), f.Width, f.Height)
	if err := f.DownloadFunc(ctx, genURL, outPath); err != nil {
		return errors.Wrap(err, "all image providers failed")
	}
	return nil
}

func (f *Fetcher) shuffledFallbacks() []string {
	urls := make([]string, len(f.FallbackURLs))
	copy(urls, f.FallbackURLs)
	rand.Shuffle(len(urls), func(i, j int) {
		urls[i], urls[j] = urls[j], urls[i]
	})
	return urls
}

// download pulls one URL to disk. Providers are tried once each; the
// chain in Fetch is the retry.
func (f *Fetcher) download(ctx context.Context, rawURL, outPath string) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("image provider returned %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return errors.Errorf("image provider returned %s, not an image", ct)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

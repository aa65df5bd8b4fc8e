package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/marketreel/marketreel/utils"
)

const defaultEndpoint = "https://translate.googleapis.com/translate_a/single"

// Translator converts narration text into the target language using the
// public gtx endpoint. Failures are soft: callers fall back to silence.
type Translator struct {
	Endpoint   string
	Target     string
	HTTPClient *http.Client
	limiter    *rate.Limiter
}

func NewTranslator(target string, timeout time.Duration, limit int, interval time.Duration) *Translator {
	return &Translator{
		Endpoint:   defaultEndpoint,
		Target:     target,
		HTTPClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(interval), limit),
	}
}

// Translate returns text in the target language, detecting the source.
func (t *Translator) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("nothing to translate")
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", "auto")
	params.Set("tl", t.Target)
	params.Set("dt", "t")
	params.Set("q", text)

	rawURL := fmt.Sprintf("%s?%s", t.Endpoint, params.Encode())

	var body []byte
	err := utils.Retry(ctx, "translate", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0")

		resp, err := t.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return errors.Errorf("status %d", resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return "", errors.Wrap(err, "calling translate endpoint")
	}

	translated, err := parseResponse(body)
	if err != nil {
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"target": t.Target,
		"in":     len(text),
		"out":    len(translated),
	}).Debug("Translated narration")

	return translated, nil
}

// parseResponse walks the gtx nested-array payload: the first element
// is a list of [translatedChunk, originalChunk, ...] entries.
func parseResponse(body []byte) (string, error) {
	var payload []interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", errors.Wrap(err, "decoding translate response")
	}
	if len(payload) == 0 {
		return "", errors.New("empty translate response")
	}

	chunks, ok := payload[0].([]interface{})
	if !ok {
		return "", errors.New("unexpected translate response shape")
	}

	var sb strings.Builder
	for _, chunk := range chunks {
		entry, ok := chunk.([]interface{})
		if !ok || len(entry) == 0 {
			continue
		}
		if segment, ok := entry[0].(string); ok {
			sb.WriteString(segment)
		}
	}

	result := strings.TrimSpace(sb.String())
	if result == "" {
		return "", errors.New("translate returned no text")
	}
	return result, nil
}

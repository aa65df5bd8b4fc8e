package utils

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	maxRetries     = 3
	initialBackoff = 2 * time.Second
	maxBackoff     = 30 * time.Second
	backoffFactor  = 2.0
)

// Retry runs fn up to three times with exponential backoff and jitter,
// aborting early when ctx is cancelled.
func Retry(ctx context.Context, op string, fn func() error) error {
	var err error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		logrus.WithFields(logrus.Fields{
			"attempt":    attempt,
			"maxRetries": maxRetries,
			"operation":  op,
			"error":      err,
		}).Warn("Attempt failed")

		if attempt == maxRetries {
			break
		}

		backoff := time.Duration(float64(initialBackoff) * math.Pow(backoffFactor, float64(attempt-1)))
		if backoff > maxBackoff {
			backoff = maxBackoff
		}

		select {
		case <-time.After(backoff + time.Duration(rand.Int63n(int64(backoff/2)))):
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "%s cancelled during retry", op)
		}
	}

	return errors.Wrapf(err, "%s failed after %d attempts", op, maxRetries)
}

// CleanNarration collapses whitespace so TTS input stays one utterance
// per slide.
func CleanNarration(text string) string {
	fields := strings.Fields(text)
	return strings.Join(fields, " ")
}

// SafeFilename reduces a title to something usable in an output path.
func SafeFilename(title string) string {
	var builder strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '.', r == '-', r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteRune('_')
		}
	}
	name := builder.String()
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	return strings.Trim(name, "_")
}

// TruncateAtWord cuts text to at most limit characters on a word
// boundary, appending an ellipsis when anything was dropped.
func TruncateAtWord(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}

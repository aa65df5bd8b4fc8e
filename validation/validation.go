package validation

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateArticleURL checks that a news link is actually fetchable
// before the article stage spends retries on it.
func ValidateArticleURL(rawURL string) error {
	if rawURL == "" {
		return &ValidationError{Message: "article URL is required"}
	}

	rawURL = strings.TrimSpace(rawURL)

	parsedURL, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return &ValidationError{Message: "invalid article URL format"}
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return &ValidationError{Message: "article URL must start with http or https"}
	}

	if parsedURL.Host == "" {
		return &ValidationError{Message: "article URL must have a host"}
	}

	return nil
}

// ValidateSymbol rejects tickers that would corrupt a Yahoo Finance
// request path.
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return &ValidationError{Message: "symbol is required"}
	}
	for _, r := range symbol {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '-', r == '^', r == '&':
		default:
			return &ValidationError{Message: fmt.Sprintf("symbol contains invalid character %q", r)}
		}
	}
	return nil
}

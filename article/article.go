package article

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/marketreel/marketreel/utils"
	"github.com/marketreel/marketreel/validation"
)

const maxArticleChars = 12000

// Fetcher pulls article pages and reduces them to narration paragraphs.
type Fetcher struct {
	HTTPClient *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the page and extracts its body text. The caller is
// expected to fall back to the short generated script when this fails.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := validation.ValidateArticleURL(rawURL); err != nil {
		return "", err
	}

	var body []byte
	err := utils.Retry(ctx, "article fetch", func() error {
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
			return errors.Errorf("status %d", resp.StatusCode)
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		return err
	})
	if err != nil {
		return "", errors.Wrapf(err, "fetching article %s", rawURL)
	}

	text, err := Extract(string(body))
	if err != nil {
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"url":   rawURL,
		"chars": len(text),
	}).Info("Article extracted")

	return text, nil
}

// Extract reduces an HTML document to paragraph text, preferring the
// <article> element, then the densest paragraph container, then meta
// descriptions, then the first handful of loose paragraphs.
func Extract(rawHTML string) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", errors.Wrap(err, "parsing article HTML")
	}

	paras := paragraphsIn(findElement(doc, "article"))

	if len(paras) == 0 {
		if best := densestContainer(doc); best != nil {
			paras = paragraphsIn(best)
		}
	}

	if len(paras) == 0 {
		if desc := metaDescription(doc); desc != "" {
			paras = []string{desc}
		}
	}

	if len(paras) == 0 {
		all := paragraphsIn(doc)
		if len(all) > 10 {
			all = all[:10]
		}
		paras = all
	}

	if len(paras) == 0 {
		return "", errors.New("no usable text in article")
	}

	full := strings.Join(paras, "\n\n")
	return utils.TruncateAtWord(full, maxArticleChars), nil
}

// findElement returns the first element with the given tag, or nil.
func findElement(n *html.Node, tag string) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// paragraphsIn collects trimmed non-empty <p> text under a node.
func paragraphsIn(n *html.Node) []string {
	if n == nil {
		return nil
	}

	var paras []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "svg", "nav", "footer", "header":
				return
			case "p":
				if text := nodeText(n); text != "" {
					paras = append(paras, text)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return paras
}

// densestContainer finds the div or section holding the most paragraphs.
func densestContainer(doc *html.Node) *html.Node {
	var best *html.Node
	bestCount := 0

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "div" || n.Data == "section") {
			if count := len(paragraphsIn(n)); count > bestCount {
				bestCount = count
				best = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if bestCount == 0 {
		return nil
	}
	return best
}

// metaDescription reads og:description, then name=description.
func metaDescription(doc *html.Node) string {
	var og, plain string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var property, name, content string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "property":
					property = attr.Val
				case "name":
					name = attr.Val
				case "content":
					content = attr.Val
				}
			}
			if property == "og:description" && og == "" {
				og = strings.TrimSpace(content)
			}
			if name == "description" && plain == "" {
				plain = strings.TrimSpace(content)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if og != "" {
		return og
	}
	return plain
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

package slides

import "strings"

const (
	// DefaultApproxChars is the target slide body size before the
	// coarser re-split kicks in.
	DefaultApproxChars = 700
	resplitApproxChars = 1200
	maxSlides          = 14
)

// Slide is one screen of the video: an optional title and a body. Title
// slides have an empty body; body slides have a nil title.
type Slide struct {
	Title string
	Body  string
}

// IsTitle reports whether the slide is the leading title card.
func (s Slide) IsTitle() bool {
	return s.Title != ""
}

// Narration is the text a slide reads aloud.
func (s Slide) Narration() string {
	if s.IsTitle() {
		return s.Title
	}
	return s.Body
}

// Split packs paragraphs into slides of roughly approxChars characters,
// with an optional leading title slide. Slides whose body is shorter
// than minChars are merged into the previous slide. When the result
// still exceeds fourteen slides the text is re-split with a coarser
// target so the video stays short.
func Split(text, title string, approxChars, minChars int) []Slide {
	result := splitOnce(text, title, approxChars, minChars)
	if len(result) > maxSlides && approxChars < resplitApproxChars {
		return splitOnce(text, title, resplitApproxChars, minChars)
	}
	return result
}

func splitOnce(text, title string, approxChars, minChars int) []Slide {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var paras []string
	for _, p := range strings.Split(text, "\n\n") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paras = append(paras, trimmed)
		}
	}

	var slides []Slide
	if title != "" {
		slides = append(slides, Slide{Title: title})
	}

	var cur []string
	curLen := 0
	flush := func() {
		if len(cur) > 0 {
			slides = append(slides, Slide{Body: strings.Join(cur, "\n\n")})
			cur = nil
			curLen = 0
		}
	}

	for _, p := range paras {
		pl := len(p)
		if curLen+pl+2 <= approxChars {
			cur = append(cur, p)
			curLen += pl + 2
		} else {
			flush()
			cur = []string{p}
			curLen = pl + 2
		}
	}
	flush()

	return mergeShort(slides, minChars)
}

// mergeShort folds bodies shorter than minChars into the previous
// slide, title slide included. A lone short slide survives as-is
// rather than vanish.
func mergeShort(slides []Slide, minChars int) []Slide {
	var cleaned []Slide
	for _, s := range slides {
		body := strings.TrimSpace(s.Body)
		if !s.IsTitle() && body != "" && len(body) < minChars {
			if n := len(cleaned); n > 0 {
				cleaned[n-1].Body = strings.TrimSpace(cleaned[n-1].Body + "\n\n" + body)
			} else {
				cleaned = append(cleaned, s)
			}
			continue
		}
		cleaned = append(cleaned, s)
	}
	return cleaned
}

package article

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestExtractPrefersArticleElement(t *testing.T) {
	doc := `<html><body>
		<div><p>Sidebar junk paragraph.</p></div>
		<article>
			<p>First body paragraph with enough words.</p>
			<p>Second body paragraph.</p>
		</article>
	</body></html>`

	text, err := Extract(doc)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !strings.HasPrefix(text, "First body paragraph") {
		t.Errorf("expected article paragraphs first, got %q", text)
	}
	if strings.Contains(text, "Sidebar junk") {
		t.Errorf("expected sidebar to be excluded, got %q", text)
	}
	if !strings.Contains(text, "\n\n") {
		t.Error("expected paragraphs joined with blank lines")
	}
}

func TestExtractFallsBackToDensestContainer(t *testing.T) {
	doc := `<html><body>
		<div><p>Lonely one.</p></div>
		<section>
			<p>Dense one.</p>
			<p>Dense two.</p>
			<p>Dense three.</p>
		</section>
	</body></html>`

	text, err := Extract(doc)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(text, "Dense one.") || !strings.Contains(text, "Dense three.") {
		t.Errorf("expected densest section content, got %q", text)
	}
}

func TestExtractFallsBackToMetaDescription(t *testing.T) {
	doc := `<html><head>
		<meta property="og:description" content="Short market summary from meta." />
	</head><body><div>no paragraphs here</div></body></html>`

	text, err := Extract(doc)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if text != "Short market summary from meta." {
		t.Errorf("expected meta description, got %q", text)
	}
}

func TestExtractSkipsScriptContent(t *testing.T) {
	doc := `<html><body><article>
		<script><p>tracking garbage</p></script>
		<p>Real content.</p>
	</article></body></html>`

	text, err := Extract(doc)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if strings.Contains(text, "tracking garbage") {
		t.Errorf("expected script content excluded, got %q", text)
	}
}

func TestExtractEmptyDocument(t *testing.T) {
	if _, err := Extract("<html><body></body></html>"); err == nil {
		t.Fatal("expected error for empty document")
	}
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><article><p>Served paragraph.</p></article></body></html>`)
	}))
	defer server.Close()

	f := NewFetcher(5 * time.Second)
	text, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if text != "Served paragraph." {
		t.Errorf("unexpected text: %q", text)
	}
}

func TestFetchRejectsBadURL(t *testing.T) {
	f := NewFetcher(time.Second)
	if _, err := f.Fetch(context.Background(), "not-a-url"); err == nil {
		t.Fatal("expected error for invalid URL")
	}
}

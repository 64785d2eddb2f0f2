package main

import (
	"bytes"
	"context"
	"html/template"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestMarkdownRenderer covers the renderer configuration: GFM extensions,
// syntax highlighting classes, and hard line breaks.
func TestMarkdownRenderer(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantContain []string
	}{
		{
			name:        "basic markdown",
			content:     testMarkdownHeader,
			wantContain: []string{"<h1", "<strong>"},
		},
		{
			name:        "GFM table",
			content:     testMarkdownTable,
			wantContain: []string{"<table", "<th>A</th>", "<td>2</td>"},
		},
		{
			name:        "strikethrough",
			content:     "some ~~gone~~ text",
			wantContain: []string{"<del>gone</del>"},
		},
		{
			name:        "fenced code with highlight classes",
			content:     "```go\nfunc main() {}\n```",
			wantContain: []string{"<pre", "chroma"},
		},
		{
			name:        "hard line break",
			content:     "line one\nline two",
			wantContain: []string{"<br"},
		},
		{
			name:        "raw html passes through",
			content:     `<div class="note">hi</div>`,
			wantContain: []string{`<div class="note">`},
		},
	}

	md := newMarkdownRenderer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := md.Convert([]byte(tt.content), &buf); err != nil {
				t.Fatalf("convert failed: %v", err)
			}
			for _, want := range tt.wantContain {
				assertContains(t, buf.String(), want)
			}
		})
	}
}

func TestTemplatesLoaded(t *testing.T) {
	for name, tmpl := range map[string]*template.Template{
		"index":    indexTmpl,
		"media":    mediaTmpl,
		"markdown": markdownTmpl,
	} {
		if tmpl == nil {
			t.Errorf("%s template not loaded", name)
		}
	}
	if siteCSS == "" {
		t.Error("site CSS not loaded")
	}
}

func TestIndexTemplate(t *testing.T) {
	data := indexTemplateData{
		Styles: template.CSS(siteCSS),
		MediaFiles: []fileLink{
			{Name: "a.wav", Href: "/media_view/a.wav"},
		},
		MarkdownFiles: []fileLink{
			{Name: "b.md", Href: "/markdown/b.md"},
		},
	}

	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, data); err != nil {
		t.Fatalf("index template failed: %v", err)
	}

	html := buf.String()
	assertContains(t, html, `href="/media_view/a.wav"`)
	assertContains(t, html, `href="/markdown/b.md"`)
	assertContains(t, html, "EventSource")
}

func TestMarkdownTemplate_ContentNotEscaped(t *testing.T) {
	data := documentTemplateData{
		Styles:  template.CSS(siteCSS),
		Title:   "doc.md",
		Content: template.HTML("<p>rendered <strong>html</strong></p>"),
	}

	var buf bytes.Buffer
	if err := markdownTmpl.Execute(&buf, data); err != nil {
		t.Fatalf("markdown template failed: %v", err)
	}

	html := buf.String()
	assertContains(t, html, "<strong>html</strong>")
	assertNotContains(t, html, "&lt;strong&gt;")
	assertContains(t, html, "MathJax")
}

func TestRefreshFileLists(t *testing.T) {
	c := testContentDirs(t)
	createTestFile(t, c.MediaDir, "take1.wav", "")
	createTestFile(t, c.MediaDir, "skip.txt", "")
	createTestFile(t, c.MarkdownDir, "doc.md", "# Doc")
	setupTestConfig(t, c)

	fileMutex.RLock()
	defer fileMutex.RUnlock()

	if len(mediaFiles) != 1 || mediaFiles[0] != "take1.wav" {
		t.Errorf("mediaFiles = %v", mediaFiles)
	}
	if len(markdownFiles) != 1 || markdownFiles[0] != "doc.md" {
		t.Errorf("markdownFiles = %v", markdownFiles)
	}
}

func TestServeSSE_Headers(t *testing.T) {
	// Pre-cancelled context: the handler writes its handshake and returns
	// instead of blocking on the event loop.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest("GET", "/events", nil).WithContext(ctx)

	w := httptest.NewRecorder()
	serveSSE(w, req)

	resp := w.Result()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), ": connected") {
		t.Errorf("missing SSE handshake comment, got %q", w.Body.String())
	}
}

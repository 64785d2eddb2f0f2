package main

import (
	"bytes"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"runtime/debug"
	"strings"
)

// indexTemplateData drives the front page file listings
type indexTemplateData struct {
	Styles        template.CSS
	MediaFiles    []fileLink
	MarkdownFiles []fileLink
}

// fileLink pairs a display path with its escaped URL path
type fileLink struct {
	Name string
	Href string
}

type mediaTemplateData struct {
	Styles   template.CSS
	Filename string
	FileURL  string
	IsVideo  bool
}

type documentTemplateData struct {
	Styles  template.CSS
	Title   string
	Content template.HTML
}

// withRecovery wraps an HTTP handler with panic recovery
func withRecovery(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("PANIC: %v\n%s", err, debug.Stack())
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}

// registerRoutes registers all HTTP routes
func registerRoutes() {
	http.HandleFunc("/", withRecovery(serveIndex))
	http.HandleFunc("/media/", withRecovery(serveMedia))
	http.HandleFunc("/media_view/", withRecovery(serveMediaView))
	http.HandleFunc("/markdown/", withRecovery(serveMarkdown))
	http.HandleFunc("/raw/", withRecovery(serveRaw))
	http.HandleFunc("/events", withRecovery(serveSSE))
}

// renderPage executes a template to a buffer first so a mid-render failure
// becomes a clean 500 instead of a half-written page.
func renderPage(w http.ResponseWriter, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		log.Printf("Template execution error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

// escapePathSegments percent-escapes each segment of a slash path so it is
// safe in a URL without mangling the separators.
func escapePathSegments(p string) string {
	parts := strings.Split(p, "/")
	for i := range parts {
		parts[i] = url.PathEscape(parts[i])
	}
	return strings.Join(parts, "/")
}

func makeFileLinks(paths []string, prefix string) []fileLink {
	links := make([]fileLink, 0, len(paths))
	for _, p := range paths {
		links = append(links, fileLink{
			Name: p,
			Href: prefix + escapePathSegments(p),
		})
	}
	return links
}

func serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	// Get state snapshot (thread-safe)
	fileMutex.RLock()
	media := make([]string, len(mediaFiles))
	copy(media, mediaFiles)
	docs := make([]string, len(markdownFiles))
	copy(docs, markdownFiles)
	fileMutex.RUnlock()

	data := indexTemplateData{
		Styles:        template.CSS(siteCSS),
		MediaFiles:    makeFileLinks(media, "/media_view/"),
		MarkdownFiles: makeFileLinks(docs, "/markdown/"),
	}
	renderPage(w, indexTmpl, data)
}

func serveMedia(w http.ResponseWriter, r *http.Request) {
	requested := strings.TrimPrefix(r.URL.Path, "/media/")

	fullPath, _, err := resolveUnderRoot(cfg.MediaDir, requested)
	if err != nil {
		http.Error(w, "Invalid path", http.StatusForbidden)
		return
	}

	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=300")
	http.ServeFile(w, r, fullPath)
}

func serveMediaView(w http.ResponseWriter, r *http.Request) {
	requested := strings.TrimPrefix(r.URL.Path, "/media_view/")

	fullPath, relPath, err := resolveUnderRoot(cfg.MediaDir, requested)
	if err != nil {
		http.Error(w, "Invalid path", http.StatusForbidden)
		return
	}

	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		log.Printf("Media file not found: %s", fullPath)
		http.NotFound(w, r)
		return
	}

	data := mediaTemplateData{
		Styles:   template.CSS(siteCSS),
		Filename: relPath,
		FileURL:  "/media/" + escapePathSegments(relPath),
		IsVideo:  strings.HasSuffix(strings.ToLower(relPath), ".mp4"),
	}
	renderPage(w, mediaTmpl, data)
}

func serveMarkdown(w http.ResponseWriter, r *http.Request) {
	requested := strings.TrimPrefix(r.URL.Path, "/markdown/")

	fullPath, relPath, err := resolveUnderRoot(cfg.MarkdownDir, requested)
	if err != nil {
		http.Error(w, "Invalid path", http.StatusForbidden)
		return
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		log.Printf("Markdown file not found: %s", fullPath)
		http.NotFound(w, r)
		return
	}

	result, err := renderDocument(path.Base(relPath), content)
	if err != nil {
		log.Printf("Error rendering markdown: %v", err)
		http.Error(w, "Failed to render markdown", http.StatusInternalServerError)
		return
	}

	data := documentTemplateData{
		Styles:  template.CSS(siteCSS),
		Title:   result.Title,
		Content: template.HTML(result.HTML),
	}
	renderPage(w, markdownTmpl, data)
}

func serveRaw(w http.ResponseWriter, r *http.Request) {
	requested := strings.TrimPrefix(r.URL.Path, "/raw/")

	fullPath, _, err := resolveUnderRoot(cfg.MarkdownDir, requested)
	if err != nil {
		http.Error(w, "Invalid path", http.StatusForbidden)
		return
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write(content); err != nil {
		log.Printf("Failed to write raw file response: %v", err)
	}
}

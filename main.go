package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

//go:embed theme/*
var themeFS embed.FS

var (
	// Build info (set via ldflags)
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Flags
	configPath   = flag.String("config", "mdserve.yml", "Path to config file")
	portFlag     = flag.Int("port", 0, "Port to serve on (overrides config)")
	mediaFlag    = flag.String("media", "", "Media directory (overrides config)")
	markdownFlag = flag.String("markdown", "", "Markdown directory (overrides config)")
	showVersion  = flag.Bool("version", false, "Show version information")

	// Effective config, fixed after startup
	cfg serverConfig

	// State (global for single-user server simplicity; protected by mutexes)
	mediaFiles    []string
	markdownFiles []string
	fileMutex     sync.RWMutex

	clients      = make(map[chan string]bool)
	clientsMutex sync.RWMutex

	contentWatcher watcherManager

	// CSS and templates (loaded once at startup)
	siteCSS      string
	indexTmpl    *template.Template
	mediaTmpl    *template.Template
	markdownTmpl *template.Template
)

func init() {
	cssData, err := themeFS.ReadFile("theme/styles.css")
	if err != nil {
		log.Fatalf("Failed to load styles CSS: %v", err)
	}
	siteCSS = string(cssData)

	indexTmpl = loadTemplate("index")
	mediaTmpl = loadTemplate("media")
	markdownTmpl = loadTemplate("markdown")
}

func loadTemplate(name string) *template.Template {
	data, err := themeFS.ReadFile("theme/" + name + ".html")
	if err != nil {
		log.Fatalf("Failed to load %s template: %v", name, err)
	}
	return template.Must(template.New(name).Parse(string(data)))
}

// watcherManager manages content watching with proper cleanup
type watcherManager struct {
	mu      sync.Mutex
	current *fsnotify.Watcher
	cancel  context.CancelFunc
}

// watchRoots watches the given directory trees and refreshes the file
// listings whenever content appears or disappears.
func (m *watcherManager) watchRoots(roots ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Stop existing watcher
	if m.cancel != nil {
		m.cancel()
	}
	if m.current != nil {
		m.current.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		cancel()
		return err
	}
	m.current = watcher

	for _, root := range roots {
		for _, dir := range collectDirectories(root) {
			if err := watcher.Add(dir); err != nil {
				log.Printf("Warning: Cannot watch directory %s: %v", dir, err)
			}
		}
	}

	go watchContentWithContext(ctx, watcher)
	return nil
}

func (m *watcherManager) close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}
	if m.current != nil {
		m.current.Close()
	}
}

// collectDirectories returns root and every non-hidden subdirectory under it.
func collectDirectories(root string) []string {
	var dirs []string
	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if path != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs
}

func watchContentWithContext(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						log.Printf("Warning: Cannot watch new directory %s: %v", event.Name, err)
					}
				}
			}

			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				refreshFileLists()
				notifyClients("reload")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher error: %v", err)
		}
	}
}

// refreshFileLists rescans the content roots (thread-safe)
func refreshFileLists() {
	media := collectFiles(cfg.MediaDir, cfg.MediaExtensions, cfg.HistoryRetention)
	docs := collectFiles(cfg.MarkdownDir, []string{".md"}, cfg.HistoryRetention)

	fileMutex.Lock()
	mediaFiles = media
	markdownFiles = docs
	fileMutex.Unlock()
}

func serveSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Printf("SSE error: ResponseWriter doesn't support flushing")
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	clientChan := make(chan string, 10)

	clientsMutex.Lock()
	clients[clientChan] = true
	clientsMutex.Unlock()

	defer func() {
		clientsMutex.Lock()
		delete(clients, clientChan)
		clientsMutex.Unlock()
		close(clientChan)
	}()

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case message := <-clientChan:
			if _, err := fmt.Fprintf(w, "data: %s\n\n", message); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func notifyClients(message string) {
	clientsMutex.RLock()
	defer clientsMutex.RUnlock()

	for clientChan := range clients {
		select {
		case clientChan <- message:
		default:
		}
	}
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("mdserve %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	loaded, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	cfg = loaded
	if *portFlag != 0 {
		cfg.Port = *portFlag
	}
	if *mediaFlag != "" {
		cfg.MediaDir = *mediaFlag
	}
	if *markdownFlag != "" {
		cfg.MarkdownDir = *markdownFlag
	}

	refreshFileLists()

	fileMutex.RLock()
	nMedia, nDocs := len(mediaFiles), len(markdownFiles)
	fileMutex.RUnlock()
	fmt.Printf("mdserve: %d media file(s) in %s, %d markdown file(s) in %s\n",
		nMedia, cfg.MediaDir, nDocs, cfg.MarkdownDir)

	if err := contentWatcher.watchRoots(cfg.MediaDir, cfg.MarkdownDir); err != nil {
		log.Printf("Warning: Cannot watch content directories: %v", err)
	}

	registerRoutes()

	addr := fmt.Sprintf(":%d", cfg.Port)
	fmt.Printf("Serving on http://localhost%s\n", addr)
	fmt.Println("Press Ctrl+C to quit")

	server := &http.Server{
		Addr:        addr,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout intentionally omitted: the SSE endpoint is long-lived
		IdleTimeout: 60 * time.Second,
	}

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigint

		log.Println("\nShutting down gracefully...")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		contentWatcher.close()

		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

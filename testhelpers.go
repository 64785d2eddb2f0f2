package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// setupTestConfig swaps the global config for a test, refreshes the file
// listings from the configured roots, and restores everything on cleanup.
func setupTestConfig(t *testing.T, c serverConfig) {
	t.Helper()

	fileMutex.Lock()
	oldCfg := cfg
	oldMedia := mediaFiles
	oldDocs := markdownFiles
	cfg = c
	fileMutex.Unlock()

	t.Cleanup(func() {
		fileMutex.Lock()
		defer fileMutex.Unlock()
		cfg = oldCfg
		mediaFiles = oldMedia
		markdownFiles = oldDocs
	})

	refreshFileLists()
}

// testContentDirs creates sibling media/markdown roots under a temp dir and
// returns a config pointing at them.
func testContentDirs(t *testing.T) serverConfig {
	t.Helper()

	base := t.TempDir()
	c := defaultConfig()
	c.MediaDir = filepath.Join(base, "media")
	c.MarkdownDir = filepath.Join(base, "markdown")
	for _, dir := range []string{c.MediaDir, c.MarkdownDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create content dir %s: %v", dir, err)
		}
	}
	return c
}

// createTestFile creates a file with the given content under dir
func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create parent dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file %s: %v", path, err)
	}
	return path
}

// assertContains is a helper for checking string containment with clear error messages
func assertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("expected string to contain %q, got: %s", substr, s)
	}
}

// assertNotContains is a helper for checking string non-containment
func assertNotContains(t *testing.T, s, substr string) {
	t.Helper()
	if strings.Contains(s, substr) {
		t.Errorf("expected string NOT to contain %q, but it does", substr)
	}
}

// assertStatusCode checks HTTP status code with clear error message
func assertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("expected status code %d, got %d", want, got)
	}
}

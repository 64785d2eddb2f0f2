package main

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestCollectFiles_ExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, dir, "song.wav", "")
	createTestFile(t, dir, "clip.mp4", "")
	createTestFile(t, dir, "notes.md", "")
	createTestFile(t, dir, "readme.txt", "")

	files := collectFiles(dir, []string{".wav", ".mp4"}, 0)

	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d: %v", len(files), files)
	}
	if files[0] != "clip.mp4" || files[1] != "song.wav" {
		t.Errorf("unexpected listing: %v", files)
	}
}

func TestCollectFiles_CaseInsensitiveExtensions(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, dir, "LOUD.WAV", "")
	createTestFile(t, dir, "Mixed.Mp4", "")

	files := collectFiles(dir, []string{".wav", ".mp4"}, 0)

	if len(files) != 2 {
		t.Errorf("uppercase extensions should match, got %v", files)
	}
}

func TestCollectFiles_Retention(t *testing.T) {
	dir := t.TempDir()
	days := []string{"2026-08-25", "2026-08-26", "2026-08-27", "2026-08-28", "2026-08-29"}
	for _, d := range days {
		createTestFile(t, dir, filepath.Join(d, "recording.wav"), "")
	}

	files := collectFiles(dir, []string{".wav"}, 3)

	if len(files) != 3 {
		t.Fatalf("expected 3 retained files, got %d: %v", len(files), files)
	}
	want := []string{
		"2026-08-29/recording.wav",
		"2026-08-28/recording.wav",
		"2026-08-27/recording.wav",
	}
	for i, w := range want {
		if files[i] != w {
			t.Errorf("files[%d] = %q, want %q", i, files[i], w)
		}
	}
}

func TestCollectFiles_SkipsHiddenDirs(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, dir, "visible.md", "")
	createTestFile(t, dir, filepath.Join(".git", "hidden.md"), "")
	createTestFile(t, dir, filepath.Join(".cache", "also.md"), "")

	files := collectFiles(dir, []string{".md"}, 0)

	if len(files) != 1 || files[0] != "visible.md" {
		t.Errorf("hidden directories should be skipped, got %v", files)
	}
}

func TestCollectFiles_SlashPaths(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, dir, filepath.Join("sub", "deep", "doc.md"), "")

	files := collectFiles(dir, []string{".md"}, 0)

	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %v", files)
	}
	if strings.Contains(files[0], "\\") {
		t.Errorf("listing should use forward slashes, got %q", files[0])
	}
	if files[0] != "sub/deep/doc.md" {
		t.Errorf("unexpected relative path %q", files[0])
	}
}

func TestCollectFiles_MissingRoot(t *testing.T) {
	files := collectFiles(filepath.Join(t.TempDir(), "nope"), nil, 0)
	if len(files) != 0 {
		t.Errorf("missing root should list nothing, got %v", files)
	}
}

func TestMatchesExtension_EmptyMatchesAll(t *testing.T) {
	if !matchesExtension("anything.xyz", nil) {
		t.Error("empty extension list should match every file")
	}
}

func TestResolveUnderRoot(t *testing.T) {
	root := t.TempDir()

	valid := []struct {
		name      string
		requested string
		wantRel   string
	}{
		{"plain file", "file.md", "file.md"},
		{"subdirectory", "sub/file.md", "sub/file.md"},
		{"dot prefix", "./file.md", "file.md"},
		{"surrounding whitespace", "  file.md  ", "file.md"},
		{"embedded newline", "fi\nle.md", "file.md"},
	}
	for _, tt := range valid {
		t.Run("valid/"+tt.name, func(t *testing.T) {
			abs, rel, err := resolveUnderRoot(root, tt.requested)
			if err != nil {
				t.Fatalf("resolveUnderRoot(%q) failed: %v", tt.requested, err)
			}
			if rel != tt.wantRel {
				t.Errorf("rel = %q, want %q", rel, tt.wantRel)
			}
			if !strings.HasPrefix(abs, root) {
				t.Errorf("abs path %q not under root %q", abs, root)
			}
		})
	}

	denied := []struct {
		name      string
		requested string
	}{
		{"parent traversal", testPathTraversal},
		{"bare dotdot", ".."},
		{"absolute path", testPathAbsolute},
		{"traversal via subdir", "sub/../../outside.md"},
		{"empty", ""},
		{"whitespace only", "   "},
		{"nul byte", "file\x00.md"},
	}
	for _, tt := range denied {
		t.Run("denied/"+tt.name, func(t *testing.T) {
			if _, _, err := resolveUnderRoot(root, tt.requested); err == nil {
				t.Errorf("resolveUnderRoot(%q) should have been rejected", tt.requested)
			}
		})
	}
}

package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// collectFiles walks root and returns slash-separated relative paths of
// files matching any of the given extensions (all files when exts is
// empty). At each level subdirectories are visited newest-name-first and
// truncated to retention entries, so dated history directories age out of
// the listing without deletion.
func collectFiles(root string, exts []string, retention int) []string {
	var files []string
	collectFilesWalk(root, "", exts, retention, &files)
	return files
}

func collectFilesWalk(dir, rel string, exts []string, retention int, files *[]string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	var subdirs, names []string
	for _, e := range entries {
		if e.IsDir() {
			if strings.HasPrefix(e.Name(), ".") {
				continue
			}
			subdirs = append(subdirs, e.Name())
			continue
		}
		if matchesExtension(e.Name(), exts) {
			names = append(names, e.Name())
		}
	}

	sort.Strings(names)
	for _, n := range names {
		*files = append(*files, path.Join(rel, n))
	}

	sort.Sort(sort.Reverse(sort.StringSlice(subdirs)))
	if retention > 0 && len(subdirs) > retention {
		subdirs = subdirs[:retention]
	}
	for _, d := range subdirs {
		collectFilesWalk(filepath.Join(dir, d), path.Join(rel, d), exts, retention, files)
	}
}

func matchesExtension(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// resolveUnderRoot cleans a URL-supplied relative path and joins it with
// the content root, rejecting anything that would escape it. Stray
// whitespace and embedded newlines are stripped first (URL decoding can
// smuggle both in). Returns the absolute path and the cleaned
// slash-separated relative path.
func resolveUnderRoot(root, requested string) (string, string, error) {
	cleaned := strings.TrimSpace(requested)
	cleaned = strings.ReplaceAll(cleaned, "\n", "")
	if cleaned == "" || strings.ContainsRune(cleaned, 0) {
		return "", "", fmt.Errorf("invalid path")
	}
	cleaned = filepath.Clean(filepath.FromSlash(cleaned))

	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("access denied: path escapes content root")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", "", fmt.Errorf("resolve root: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(absRoot, cleaned))
	if err != nil {
		return "", "", fmt.Errorf("resolve path: %w", err)
	}
	if absPath != absRoot && !strings.HasPrefix(absPath, absRoot+string(filepath.Separator)) {
		return "", "", fmt.Errorf("access denied: path escapes content root")
	}
	return absPath, filepath.ToSlash(cleaned), nil
}

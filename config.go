package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// serverConfig mirrors the optional mdserve.yml file. Any field left unset
// in the file keeps its default, so a partial config works.
type serverConfig struct {
	MediaDir         string   `yaml:"media_dir"`
	MarkdownDir      string   `yaml:"markdown_dir"`
	Port             int      `yaml:"port"`
	HistoryRetention int      `yaml:"history_retention"`
	MediaExtensions  []string `yaml:"media_extensions"`
}

func defaultConfig() serverConfig {
	return serverConfig{
		MediaDir:         "static/media",
		MarkdownDir:      "static/markdown",
		Port:             5000,
		HistoryRetention: 7,
		MediaExtensions:  []string{".wav", ".mp4"},
	}
}

// loadConfig reads a yaml config file and merges it over the defaults.
// A missing file is not an error; a malformed one is.
func loadConfig(path string) (serverConfig, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var file serverConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if file.MediaDir != "" {
		cfg.MediaDir = file.MediaDir
	}
	if file.MarkdownDir != "" {
		cfg.MarkdownDir = file.MarkdownDir
	}
	if file.Port != 0 {
		cfg.Port = file.Port
	}
	if file.HistoryRetention != 0 {
		cfg.HistoryRetention = file.HistoryRetention
	}
	if len(file.MediaExtensions) != 0 {
		cfg.MediaExtensions = file.MediaExtensions
	}
	return cfg, nil
}

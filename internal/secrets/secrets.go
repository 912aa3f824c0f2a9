// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files.
// Each file in the directory is one secret: the filename is the key name
// and the trimmed file contents are the value.
//
// Recognized key files: news-api-key, welfare-api-key, youth-api-key, anthropic-api-key.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/policy-feed/pkg/types"
)

// Key file names.
const (
	NewsAPIKey      = "news-api-key"
	WelfareAPIKey   = "welfare-api-key"
	YouthAPIKey     = "youth-api-key"
	AnthropicAPIKey = "anthropic-api-key"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory is not an error; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", "name", name, "error", err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// Apply fills API keys that cfg leaves empty. Keys already set through
// flags, config or environment win over the secrets directory.
func Apply(cfg *types.PipelineConfig, secrets map[string]string) {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = secrets[key]
		}
	}
	fill(&cfg.Sources.News.APIKey, NewsAPIKey)
	fill(&cfg.Sources.Welfare.APIKey, WelfareAPIKey)
	fill(&cfg.Sources.Youth.APIKey, YouthAPIKey)
	fill(&cfg.Enhance.APIKey, AnthropicAPIKey)
}

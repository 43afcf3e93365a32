// Package i18n serves the kiosk's localized strings from language.json.
//
// The file groups strings by screen section; every field exists twice, once
// with a "PT" suffix and once with an "EN" suffix:
//
//	{"situation1": {"opcao1PT": "Adaptação", "opcao1EN": "Adaptation"}}
package i18n

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/text/language"
)

var (
	// Portuguese is the kiosk's primary language
	Portuguese = language.MustParse("pt-BR")
	// English is the secondary language
	English = language.English

	supportedTags = []language.Tag{Portuguese, English}
	matcher       = language.NewMatcher(supportedTags)
)

// ParseTag resolves a user supplied language to a supported one
func ParseTag(value string) (language.Tag, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Portuguese, false
	}
	tags, _, err := language.ParseAcceptLanguage(value)
	if err != nil || len(tags) == 0 {
		return Portuguese, false
	}
	_, idx, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return Portuguese, false
	}
	return supportedTags[idx], true
}

// suffix returns the field suffix used for a tag
func suffix(tag language.Tag) string {
	_, idx, _ := matcher.Match(tag)
	if supportedTags[idx] == English {
		return "EN"
	}
	return "PT"
}

// Catalog is an immutable set of localized strings
type Catalog struct {
	sections map[string]map[string]string
}

// Empty returns a catalog where every lookup misses
func Empty() *Catalog {
	return &Catalog{sections: map[string]map[string]string{}}
}

// Parse decodes language.json content. Non-string fields are ignored.
func Parse(data []byte) (*Catalog, error) {
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode language file: %w", err)
	}

	c := Empty()
	for section, fields := range raw {
		values := make(map[string]string, len(fields))
		for field, rawValue := range fields {
			var s string
			if err := json.Unmarshal(rawValue, &s); err != nil {
				continue
			}
			values[field] = s
		}
		c.sections[section] = values
	}
	return c, nil
}

// Load reads a language file. A missing or broken file yields an empty
// catalog and a warning; labels then fall back to the words themselves.
func Load(path string, logger *slog.Logger) *Catalog {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("language file not found", "path", path)
		return Empty()
	}
	if err != nil {
		logger.Warn("failed to read language file", "path", path, "error", err)
		return Empty()
	}

	c, err := Parse(data)
	if err != nil {
		logger.Warn("failed to parse language file", "path", path, "error", err)
		return Empty()
	}
	logger.Info("language file loaded", "path", path, "sections", len(c.sections))
	return c
}

// Lookup returns the string for key in section, or "" when absent
func (c *Catalog) Lookup(tag language.Tag, section, key string) string {
	text, _ := c.Find(tag, section, key)
	return text
}

// Find is Lookup that also reports whether the string exists
func (c *Catalog) Find(tag language.Tag, section, key string) (string, bool) {
	if c == nil {
		return "", false
	}
	fields, ok := c.sections[section]
	if !ok {
		return "", false
	}
	text, ok := fields[key+suffix(tag)]
	return text, ok
}

// WordLabel returns the localized label of a round's word, "" when absent.
// Rounds and words are zero-based.
func (c *Catalog) WordLabel(tag language.Tag, round, word int) string {
	return c.Lookup(tag, fmt.Sprintf("situation%d", round+1), fmt.Sprintf("opcao%d", word+1))
}

// Sections returns the number of sections loaded
func (c *Catalog) Sections() int {
	if c == nil {
		return 0
	}
	return len(c.sections)
}

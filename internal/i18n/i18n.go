// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package i18n provides the translated UI strings.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed locales
var localesFS embed.FS

// Message represents a single translatable message.
type Message struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	Translation string `json:"translation"`
}

// MessageFile represents the structure of a messages JSON file.
type MessageFile struct {
	Language string    `json:"language"`
	Messages []Message `json:"messages"`
}

// Catalog holds all translations for all supported languages.
type Catalog struct {
	mu           sync.RWMutex
	translations map[string]map[string]string // lang -> key -> translation
	matcher      language.Matcher
	supported    []language.Tag
	defaultLang  string
	logger       *slog.Logger
}

var catalog *Catalog

// DefaultLanguage is used when nothing better matches.
const DefaultLanguage = "pt"

// SupportedLanguages lists the UI languages. The first entry is the
// matcher's fallback.
var SupportedLanguages = []string{"pt", "en"}

// Init loads the embedded catalogs. An unsupported defaultLang falls back
// to DefaultLanguage.
func Init(logger *slog.Logger, defaultLang string) error {
	defaultLang = strings.ToLower(strings.TrimSpace(defaultLang))
	if !IsSupported(defaultLang) {
		defaultLang = DefaultLanguage
	}

	c := &Catalog{
		translations: make(map[string]map[string]string),
		defaultLang:  defaultLang,
		logger:       logger,
	}

	// The default language goes first so the matcher falls back to it.
	order := []string{defaultLang}
	for _, lang := range SupportedLanguages {
		if lang != defaultLang {
			order = append(order, lang)
		}
	}
	c.supported = make([]language.Tag, 0, len(order))
	for _, lang := range order {
		c.supported = append(c.supported, language.MustParse(lang))
	}
	c.matcher = language.NewMatcher(c.supported)

	for _, lang := range SupportedLanguages {
		if err := c.loadLanguage(lang); err != nil {
			return fmt.Errorf("loading language %s: %w", lang, err)
		}
	}

	catalog = c
	if logger != nil {
		logger.Info("i18n initialized", "languages", SupportedLanguages, "default", defaultLang)
	}
	return nil
}

func (c *Catalog) loadLanguage(lang string) error {
	path := fmt.Sprintf("locales/%s/messages.json", lang)
	data, err := localesFS.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var msgFile MessageFile
	if err := json.Unmarshal(data, &msgFile); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.translations[lang] = make(map[string]string, len(msgFile.Messages))
	for _, msg := range msgFile.Messages {
		c.translations[lang][msg.ID] = msg.Translation
	}

	if c.logger != nil {
		c.logger.Debug("loaded translations", "language", lang, "count", len(msgFile.Messages))
	}
	return nil
}

// T translates key into lang, falling back to the default language and then
// to the key itself. Arguments are applied with fmt.Sprintf.
func T(lang, key string, args ...any) string {
	if catalog == nil {
		return key
	}

	catalog.mu.RLock()
	translation, ok := catalog.translations[lang][key]
	if !ok && lang != catalog.defaultLang {
		translation, ok = catalog.translations[catalog.defaultLang][key]
		if ok && catalog.logger != nil {
			catalog.logger.Debug("missing translation, using default", "key", key, "lang", lang)
		}
	}
	catalog.mu.RUnlock()

	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(translation, args...)
	}
	return translation
}

// Default returns the configured default language.
func Default() string {
	if catalog == nil {
		return DefaultLanguage
	}
	return catalog.defaultLang
}

// MatchLanguage finds the best supported language for an Accept-Language
// header or a single language code.
func MatchLanguage(acceptLang string) string {
	if catalog == nil {
		return DefaultLanguage
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(tags) == 0 {
		tag, err := language.Parse(acceptLang)
		if err != nil {
			return catalog.defaultLang
		}
		tags = []language.Tag{tag}
	}

	_, idx, confidence := catalog.matcher.Match(tags...)
	if confidence == language.No || idx < 0 || idx >= len(catalog.supported) {
		return catalog.defaultLang
	}
	base, _ := catalog.supported[idx].Base()
	return base.String()
}

// IsSupported checks if a language code is a UI language.
func IsSupported(lang string) bool {
	lang = strings.ToLower(lang)
	for _, supported := range SupportedLanguages {
		if supported == lang {
			return true
		}
	}
	return false
}

// TranslationCount returns the number of translations loaded for a language.
func TranslationCount(lang string) int {
	if catalog == nil {
		return 0
	}

	catalog.mu.RLock()
	defer catalog.mu.RUnlock()
	return len(catalog.translations[lang])
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/pmce/setores-web/internal/i18n"
	"github.com/pmce/setores-web/internal/middleware"
	"github.com/pmce/setores-web/internal/render"
)

// HomeHandler serves the landing page. Its body is Markdown, one file per
// UI language, converted once at startup.
type HomeHandler struct {
	renderer *render.Renderer
	pages    map[string]template.HTML
}

// HomeData holds data for the home template.
type HomeData struct {
	Content template.HTML
}

// NewHomeHandler converts content/home.<lang>.md for every supported language.
// The default language must be present; other languages fall back to it.
func NewHomeHandler(renderer *render.Renderer, content fs.FS) (*HomeHandler, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Typographer))

	h := &HomeHandler{renderer: renderer, pages: make(map[string]template.HTML)}
	for _, lang := range i18n.SupportedLanguages {
		src, err := fs.ReadFile(content, "home."+lang+".md")
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading home content for %s: %w", lang, err)
		}

		var buf bytes.Buffer
		if err := md.Convert(src, &buf); err != nil {
			return nil, fmt.Errorf("converting home content for %s: %w", lang, err)
		}
		// Raw HTML in the source is omitted by goldmark's default renderer.
		h.pages[lang] = template.HTML(buf.String()) //nolint:gosec // trusted embedded content
	}

	if _, ok := h.pages[i18n.Default()]; !ok {
		return nil, fmt.Errorf("home content for default language %q not found", i18n.Default())
	}
	return h, nil
}

// Home handles GET /.
func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	content, ok := h.pages[middleware.GetLang(r)]
	if !ok {
		content = h.pages[i18n.Default()]
	}
	renderPage(w, r, h.renderer, http.StatusOK, TemplateHome, render.TemplateData{
		Title: "home.title",
		Data:  HomeData{Content: content},
	})
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render executes the HTML page templates inside the shared layout.
package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/pmce/setores-web/internal/auth"
	"github.com/pmce/setores-web/internal/i18n"
	"github.com/pmce/setores-web/internal/middleware"
)

// Session keys of the one-shot flash message.
const (
	SessionKeyFlash     = "flash"
	SessionKeyFlashType = "flash_type"
)

// Flash types map to banner styles.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Renderer handles template rendering with caching.
type Renderer struct {
	templates      map[string]*template.Template
	sessionManager *scs.SessionManager
	version        string
}

// Config holds renderer configuration.
type Config struct {
	TemplatesFS    fs.FS
	SessionManager *scs.SessionManager
	// Version is shown in the footer.
	Version string
}

// New creates a new Renderer with parsed templates.
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		templates:      make(map[string]*template.Template),
		sessionManager: cfg.SessionManager,
		version:        cfg.Version,
	}

	if err := r.parseTemplates(cfg.TemplatesFS); err != nil {
		return nil, err
	}
	return r, nil
}

const baseLayout = "layouts/base.html"

// parseTemplates builds one template set per page: the base layout, every
// partial and the page itself. Pages are named "pages/<file>".
func (r *Renderer) parseTemplates(templatesFS fs.FS) error {
	partials, err := templateFiles(templatesFS, "partials")
	if err != nil {
		return fmt.Errorf("getting partials: %w", err)
	}
	pages, err := templateFiles(templatesFS, "pages")
	if err != nil {
		return fmt.Errorf("getting pages: %w", err)
	}
	if len(pages) == 0 {
		return fmt.Errorf("no page templates found")
	}

	for _, page := range pages {
		name := "pages/" + strings.TrimSuffix(path.Base(page), ".html")

		files := append([]string{baseLayout}, partials...)
		files = append(files, page)

		tmpl, err := template.New("").Funcs(templateFuncs()).ParseFS(templatesFS, files...)
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}
		r.templates[name] = tmpl
	}
	return nil
}

func templateFiles(templatesFS fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(templatesFS, dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".html") {
			files = append(files, path.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// Has reports whether a page template exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"T": i18n.T,
		"formatDateTime": func(t time.Time) string {
			return t.Local().Format("02/01/2006 15:04")
		},
		"truncate": func(s string, length int) string {
			runes := []rune(s)
			if len(runes) <= length {
				return s
			}
			return string(runes[:length]) + "..."
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"seq": func(start, end int) []int {
			var result []int
			for i := start; i <= end; i++ {
				result = append(result, i)
			}
			return result
		},
		"isActive": func(current, prefix string) bool {
			if prefix == "/" {
				return current == "/"
			}
			return current == prefix || strings.HasPrefix(current, prefix+"/")
		},
		"dict": func(pairs ...any) (map[string]any, error) {
			if len(pairs)%2 != 0 {
				return nil, fmt.Errorf("dict: odd number of arguments")
			}
			m := make(map[string]any, len(pairs)/2)
			for i := 0; i < len(pairs); i += 2 {
				key, ok := pairs[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
				}
				m[key] = pairs[i+1]
			}
			return m, nil
		},
	}
}

// TemplateData holds data passed to templates.
type TemplateData struct {
	Title     string
	Data      any
	Flash     string
	FlashType string

	// Filled by Render.
	Lang        string
	Languages   []string
	Auth        auth.State
	CurrentPath string
	CurrentYear int
	Version     string
}

// Render renders a page with status 200.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, name string, data TemplateData) error {
	return r.RenderStatus(w, req, http.StatusOK, name, data)
}

// RenderStatus renders a page with the given status code. The page is
// executed into a buffer first so a template error never sends a partial
// page.
func (r *Renderer) RenderStatus(w http.ResponseWriter, req *http.Request, status int, name string, data TemplateData) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	data.Lang = middleware.GetLang(req)
	data.Languages = i18n.SupportedLanguages
	data.Auth = auth.FromContext(req.Context())
	data.CurrentPath = middleware.GetRequestPath(req)
	data.CurrentYear = time.Now().Year()
	data.Version = r.version
	if data.Title != "" {
		data.Title = i18n.T(data.Lang, data.Title)
	}

	if data.Flash == "" {
		data.Flash, data.FlashType = r.PopFlash(req.Context())
	}

	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, "base", data); err != nil {
		return fmt.Errorf("executing template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// SetFlash stores a message shown once on the next rendered page.
func (r *Renderer) SetFlash(req *http.Request, message, flashType string) {
	if r.sessionManager == nil {
		return
	}
	r.sessionManager.Put(req.Context(), SessionKeyFlash, message)
	r.sessionManager.Put(req.Context(), SessionKeyFlashType, flashType)
}

// PopFlash removes and returns the pending flash message.
func (r *Renderer) PopFlash(ctx context.Context) (message, flashType string) {
	if r.sessionManager == nil {
		return "", ""
	}
	message = r.sessionManager.PopString(ctx, SessionKeyFlash)
	flashType = r.sessionManager.PopString(ctx, SessionKeyFlashType)
	if message != "" && flashType == "" {
		flashType = FlashInfo
	}
	return message, flashType
}

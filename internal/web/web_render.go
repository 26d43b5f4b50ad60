package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var EmbeddedTemplatesFS embed.FS

// Views rendered by the post handlers. Each one is parsed together with base.html.
const (
	ViewIndex  = "index"
	ViewDetail = "detail"
	ViewNew    = "new"
)

var viewNames = []string{ViewIndex, ViewDetail, ViewNew}

// Renderer writes a named view with data to w
type Renderer interface {
	Render(w io.Writer, view string, data interface{}) error
}

// TemplateRenderer renders html/template views from the embedded set or
// from an on-disk directory that can be reloaded while running.
type TemplateRenderer struct {
	mux   sync.RWMutex
	views map[string]*template.Template
	dir   string
	fsys  fs.FS
}

var templateFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04 MST")
	},
}

// NewTemplateRenderer loads all views. An empty dir uses the embedded templates.
func NewTemplateRenderer(dir string) (*TemplateRenderer, error) {
	r := &TemplateRenderer{dir: dir}
	if dir == "" {
		sub, err := fs.Sub(EmbeddedTemplatesFS, "templates")
		if err != nil {
			return nil, fmt.Errorf("failed to open embedded templates: %w", err)
		}
		r.fsys = sub
	} else {
		if _, err := os.Stat(filepath.Join(dir, "base.html")); err != nil {
			return nil, fmt.Errorf("template dir %s: %w", dir, err)
		}
		r.fsys = os.DirFS(dir)
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func parseViews(fsys fs.FS) (map[string]*template.Template, error) {
	views := make(map[string]*template.Template, len(viewNames))
	for _, name := range viewNames {
		tmpl, err := template.New("base.html").Funcs(templateFuncs).ParseFS(fsys, "base.html", name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse view %s: %w", name, err)
		}
		views[name] = tmpl
	}
	return views, nil
}

// Reload parses every view again and swaps the set in only when all of them parse
func (r *TemplateRenderer) Reload() error {
	views, err := parseViews(r.fsys)
	if err != nil {
		return err
	}
	r.mux.Lock()
	r.views = views
	r.mux.Unlock()
	return nil
}

func (r *TemplateRenderer) Render(w io.Writer, view string, data interface{}) error {
	r.mux.RLock()
	tmpl, ok := r.views[view]
	r.mux.RUnlock()
	if !ok {
		return fmt.Errorf("unknown view %q", view)
	}
	return tmpl.ExecuteTemplate(w, "base.html", data)
}

// Watch reloads the templates whenever a file in the template dir changes.
// It stops when ctx is done.
func (r *TemplateRenderer) Watch(ctx context.Context) error {
	if r.dir == "" {
		return errors.New("embedded templates cannot be watched")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to build template watcher: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch template dir %s: %w", r.dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Ext(event.Name) != ".html" {
					continue
				}
				if err := r.Reload(); err != nil {
					// keep serving the last good set
					log.Error().Err(err).Str("file", event.Name).Msg("template reload failed")
					continue
				}
				log.Info().Str("file", event.Name).Str("op", event.Op.String()).Msg("templates reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error().Err(err).Msg("template watcher error")
			}
		}
	}()
	return nil
}

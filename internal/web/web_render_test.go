package web

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplateDir(t *testing.T, marker string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"base.html":   `<html><title>{{.PageTitle}}</title>{{template "content" .}}</html>`,
		"index.html":  `{{define "content"}}index ` + marker + `{{end}}`,
		"detail.html": `{{define "content"}}detail{{end}}`,
		"new.html":    `{{define "content"}}new{{end}}`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func renderString(t *testing.T, r Renderer, view string, data interface{}) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, view, data))
	return buf.String()
}

func TestEmbeddedTemplatesRenderEveryView(t *testing.T) {
	r, err := NewTemplateRenderer("")
	require.NoError(t, err)

	base := TemplateData{PageTitle: "Title here", BasePath: "/posts"}
	assert.Contains(t, renderString(t, r, ViewIndex, PostsPageData{TemplateData: base}), "<title>Title here - pugblog</title>")
	assert.Contains(t, renderString(t, r, ViewDetail, PostPageData{TemplateData: base}), `href="/posts/"`)
	assert.Contains(t, renderString(t, r, ViewNew, PostFormData{TemplateData: base, Errors: []string{"broken"}}), "<li>broken</li>")

	var buf bytes.Buffer
	assert.Error(t, r.Render(&buf, "missing", nil))
}

func TestTemplateDirOverride(t *testing.T) {
	dir := writeTemplateDir(t, "v1")
	r, err := NewTemplateRenderer(dir)
	require.NoError(t, err)
	assert.Contains(t, renderString(t, r, ViewIndex, TemplateData{}), "index v1")

	_, err = NewTemplateRenderer(filepath.Join(dir, "nope"))
	assert.Error(t, err)
}

func TestReloadKeepsLastGoodSet(t *testing.T) {
	dir := writeTemplateDir(t, "good")
	r, err := NewTemplateRenderer(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(`{{define "content"}}{{.Broken`), 0o644))
	assert.Error(t, r.Reload())
	assert.Contains(t, renderString(t, r, ViewIndex, TemplateData{}), "index good")
}

func TestWatchReloadsChangedTemplates(t *testing.T) {
	dir := writeTemplateDir(t, "before")
	r, err := NewTemplateRenderer(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Watch(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(`{{define "content"}}index after{{end}}`), 0o644))
	assert.Eventually(t, func() bool {
		var buf bytes.Buffer
		return r.Render(&buf, ViewIndex, TemplateData{}) == nil && bytes.Contains(buf.Bytes(), []byte("index after"))
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatchNeedsTemplateDir(t *testing.T) {
	r, err := NewTemplateRenderer("")
	require.NoError(t, err)
	assert.Error(t, r.Watch(context.Background()))
}

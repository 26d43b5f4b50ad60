package models

import (
	"html/template"
	"strings"
	"time"
	"unicode"

	"github.com/russross/blackfriday/v2"
)

// Post represents a blog post
type Post struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// URL returns the post's detail path under basePath
func (p *Post) URL(basePath string) string {
	return basePath + "/" + p.ID
}

// Summary returns a preview of the body of at most n characters plus an
// ellipsis. Bodies that fit are returned unchanged.
func (p *Post) Summary(n int) string {
	return Summarize(p.Body, n)
}

// BodyHTML renders the body as markdown. Raw HTML in the body is dropped.
func (p *Post) BodyHTML() template.HTML {
	r := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.CommonHTMLFlags | blackfriday.SkipHTML,
	})
	out := blackfriday.Run([]byte(p.Body),
		blackfriday.WithRenderer(r),
		blackfriday.WithExtensions(blackfriday.CommonExtensions),
	)
	return template.HTML(out)
}

const ellipsis = "..."

// Summarize truncates s to n runes. The cut backs off to the last
// whitespace when that keeps more than half of the preview.
func Summarize(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	cut := runes[:n]
	for i := len(cut) - 1; i > n/2; i-- {
		if unicode.IsSpace(cut[i]) {
			cut = cut[:i]
			break
		}
	}
	return strings.TrimRightFunc(string(cut), unicode.IsSpace) + ellipsis
}

// PostView is the list-view projection of a post
type PostView struct {
	ID      string
	Title   string
	Body    string
	URL     string
	Summary string
}

// NewPostView builds the list projection of p
func NewPostView(p *Post, basePath string, summaryLen int) PostView {
	return PostView{
		ID:      p.ID,
		Title:   p.Title,
		Body:    p.Body,
		URL:     p.URL(basePath),
		Summary: p.Summary(summaryLen),
	}
}

// PostDetailView is the detail-page projection of a post
type PostDetailView struct {
	ID        string
	Title     string
	Body      string
	BodyHTML  template.HTML
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPostDetailView builds the detail projection of p
func NewPostDetailView(p *Post, basePath string) PostDetailView {
	return PostDetailView{
		ID:        p.ID,
		Title:     p.Title,
		Body:      p.Body,
		BodyHTML:  p.BodyHTML(),
		URL:       p.URL(basePath),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

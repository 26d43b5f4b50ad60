package models

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostURL(t *testing.T) {
	p := &Post{ID: "42"}
	assert.Equal(t, "/posts/42", p.URL("/posts"))
	assert.Equal(t, "/42", p.URL(""))
}

func TestSummarize(t *testing.T) {
	short := "A short body."
	assert.Equal(t, short, Summarize(short, 50), "short bodies are untouched")

	exact := strings.Repeat("x", 50)
	assert.Equal(t, exact, Summarize(exact, 50))

	long := "The quick brown fox jumps over the lazy dog and keeps on running far away"
	got := Summarize(long, 50)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, utf8.RuneCountInString(got), 53)
	assert.Equal(t, "The quick brown fox jumps over the lazy dog and...", got)

	// no whitespace to back off to: hard cut at n runes
	word := strings.Repeat("a", 80)
	assert.Equal(t, strings.Repeat("a", 50)+"...", Summarize(word, 50))

	// multi-byte characters are counted as one
	umlauts := strings.Repeat("ü", 60)
	got = Summarize(umlauts, 50)
	assert.Equal(t, 53, utf8.RuneCountInString(got))

	assert.Equal(t, "", Summarize("anything", 0))
}

func TestPostSummaryMethod(t *testing.T) {
	p := &Post{Body: strings.Repeat("word ", 30)}
	assert.Equal(t, Summarize(p.Body, SummaryLength), p.Summary(SummaryLength))
}

func TestBodyHTML(t *testing.T) {
	p := &Post{Body: "Hello *world*\n\n<script>alert(1)</script>"}
	html := string(p.BodyHTML())
	assert.Contains(t, html, "<em>world</em>")
	assert.NotContains(t, html, "<script>")
}

func TestNewPostView(t *testing.T) {
	p := &Post{ID: "7", Title: "T", Body: strings.Repeat("b", 60)}
	v := NewPostView(p, "/posts", SummaryLength)
	assert.Equal(t, "7", v.ID)
	assert.Equal(t, "T", v.Title)
	assert.Equal(t, p.Body, v.Body)
	assert.Equal(t, "/posts/7", v.URL)
	assert.Equal(t, strings.Repeat("b", 50)+"...", v.Summary)
}

func TestNewPostDetailView(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &Post{ID: "9", Title: "Detail", Body: "**bold**", CreatedAt: created, UpdatedAt: created.Add(time.Hour)}
	v := NewPostDetailView(p, "/posts")
	assert.Equal(t, "/posts/9", v.URL)
	assert.Equal(t, "**bold**", v.Body)
	assert.Contains(t, string(v.BodyHTML), "<strong>bold</strong>")
	assert.True(t, v.CreatedAt.Equal(created))
	assert.True(t, v.UpdatedAt.After(v.CreatedAt))
}

func TestCleanInput(t *testing.T) {
	in := CleanInput("  Title \n", "\tBody  ")
	assert.Equal(t, "Title", in.Title)
	assert.Equal(t, "Body", in.Body)

	// decomposed e + combining acute becomes a single rune
	in = CleanInput("e\u0301", "x")
	assert.Equal(t, "\u00e9", in.Title)
	assert.Equal(t, 1, utf8.RuneCountInString(in.Title))
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		title string
		body  string
		rules PostRules
		want  []string
	}{
		{"valid", "Title", "Body", CreateRules, nil},
		{"empty title", "", "Body", CreateRules, []string{MsgTitleRequired}},
		{"empty body", "Title", "", CreateRules, []string{MsgBodyRequired}},
		{"both empty", "", "", CreateRules, []string{MsgTitleRequired, MsgBodyRequired}},
		{"title at limit", strings.Repeat("t", 200), "Body", CreateRules, nil},
		{"title over limit", strings.Repeat("t", 201), "Body", CreateRules, []string{MsgTitleTooLong}},
		{"body at limit", "Title", strings.Repeat("b", 10000), CreateRules, nil},
		{"body over limit", "Title", strings.Repeat("b", 10001), CreateRules, []string{MsgBodyTooLong}},
		{"both over limit", strings.Repeat("t", 201), strings.Repeat("b", 10001), CreateRules,
			[]string{MsgTitleTooLong, MsgBodyTooLong}},
		{"title over limit, body empty", strings.Repeat("t", 201), "", CreateRules,
			[]string{MsgBodyRequired, MsgTitleTooLong}},
		{"no body limit", "Title", strings.Repeat("b", 10001), PostRules{MaxTitle: 200}, nil},
		{"update rules", "Title", strings.Repeat("b", 10001), UpdateRules, []string{MsgBodyTooLong}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CleanInput(tc.title, tc.body).Validate(tc.rules)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.Equal(t, tc.want, []string(verrs))
		})
	}
}

func TestValidateWhitespaceOnly(t *testing.T) {
	err := CleanInput("   ", "\n\t").Validate(CreateRules)
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, []string{MsgTitleRequired, MsgBodyRequired}, []string(verrs))
	assert.Contains(t, err.Error(), MsgTitleRequired)
}

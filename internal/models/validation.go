package models

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Validation messages shown on the post form
const (
	MsgTitleRequired = "Title is required."
	MsgBodyRequired  = "Body is required."
	MsgTitleTooLong  = "Title must be 200 characters or fewer."
	MsgBodyTooLong   = "Body is too long."
)

// Post field limits, counted in characters
const (
	MaxTitleLength = 200
	MaxBodyLength  = 10000

	// SummaryLength is the preview length used by the post list
	SummaryLength = 50
)

var (
	CreateRules = PostRules{MaxTitle: MaxTitleLength, MaxBody: MaxBodyLength}
	// UpdateRules matches CreateRules so an edit cannot store a body
	// that create would have refused.
	UpdateRules = CreateRules
)

// ValidationErrors lists every rule a submission violated
type ValidationErrors []string

func (v ValidationErrors) Error() string {
	return "invalid post: " + strings.Join(v, " ")
}

// PostInput is a post form submission after cleaning
type PostInput struct {
	Title string
	Body  string
}

// PostRules are the limits a submission is checked against.
// A zero max disables the length check.
type PostRules struct {
	MaxTitle int
	MaxBody  int
}

// CleanInput trims surrounding whitespace and normalizes to NFC so
// lengths are counted the same for composed and decomposed input.
func CleanInput(title, body string) PostInput {
	return PostInput{
		Title: norm.NFC.String(strings.TrimSpace(title)),
		Body:  norm.NFC.String(strings.TrimSpace(body)),
	}
}

// Validate collects every violated rule; it does not stop at the first.
func (in PostInput) Validate(r PostRules) error {
	var errs ValidationErrors
	if in.Title == "" {
		errs = append(errs, MsgTitleRequired)
	}
	if in.Body == "" {
		errs = append(errs, MsgBodyRequired)
	}
	if r.MaxTitle > 0 && in.Title != "" && utf8.RuneCountInString(in.Title) > r.MaxTitle {
		errs = append(errs, MsgTitleTooLong)
	}
	if r.MaxBody > 0 && in.Body != "" && utf8.RuneCountInString(in.Body) > r.MaxBody {
		errs = append(errs, MsgBodyTooLong)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

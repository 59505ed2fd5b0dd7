// Package validate decides whether scraped content is fit to answer from.
package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kalambet/bankassist/internal/errx"
	"github.com/kalambet/bankassist/internal/scrape"
	"github.com/kalambet/bankassist/internal/usecase"
)

// MinTextLength is the shortest page text considered informative.
const MinTextLength = 300

const (
	SourceRBI  = "RBI"
	SourceHDFC = "HDFC"
	SourceWeb  = "web"
)

var (
	validURL      = regexp.MustCompile(`^https?://[\w./%-]+$`)
	interestQuery = regexp.MustCompile(`(?i)\b(interest|repo|fd|deposit|lending|loan)\s+rates?\b`)
)

// Sections holds the parts of a payload that passed validation.
type Sections struct {
	Text   string        `json:"text,omitempty"`
	Tables string        `json:"tables,omitempty"`
	Links  []scrape.Link `json:"links,omitempty"`
}

// Empty reports whether no section passed.
func (s Sections) Empty() bool {
	return s.Text == "" && s.Tables == "" && len(s.Links) == 0
}

// IsValidURL reports whether u is an absolute http(s) URL of plain path
// characters.
func IsValidURL(u string) bool {
	return validURL.MatchString(strings.TrimSpace(u))
}

// Clean drops every section of p that fails its shape rule.
func Clean(p scrape.Payload) Sections {
	var s Sections
	if utf8.RuneCountInString(strings.TrimSpace(p.Text)) >= MinTextLength {
		s.Text = p.Text
	}
	if p.Tables != "" && (strings.Contains(p.Tables, "|") || strings.Contains(p.Tables, "\n")) {
		s.Tables = p.Tables
	}
	for _, l := range p.Links {
		title, u := strings.TrimSpace(l.Title), strings.TrimSpace(l.URL)
		if title != "" && IsValidURL(u) {
			s.Links = append(s.Links, scrape.Link{Title: title, URL: u})
		}
	}
	return s
}

// IsInterestRateQuery reports whether query asks about a rate.
func IsInterestRateQuery(query string) bool {
	return interestQuery.MatchString(query)
}

// ForUseCase applies the minimum-shape rule for uc. A failure is an
// errx.Validation error.
func ForUseCase(uc usecase.UseCase, query string, p scrape.Payload) (Sections, error) {
	const op = "validate.ForUseCase"
	s := Clean(p)
	switch {
	case uc == usecase.KYCUpdate:
		if len(s.Links) == 0 {
			return s, errx.New(errx.Validation, op, "no valid link for KYC request")
		}
	case IsInterestRateQuery(query):
		if s.Tables == "" && s.Text == "" {
			return s, errx.New(errx.Validation, op, "no rate table or text")
		}
	default:
		if s.Empty() {
			return s, errx.New(errx.Validation, op, "no valid section")
		}
	}
	return s, nil
}

// SourceTag classifies where scraped content came from.
func SourceTag(p scrape.Payload, pageURL string) string {
	var sb strings.Builder
	sb.WriteString(pageURL)
	for _, l := range p.Links {
		sb.WriteString(" " + l.URL)
	}
	haystack := strings.ToLower(sb.String())
	text := p.Text + " " + p.Article

	switch {
	case strings.Contains(haystack, "rbi.org.in") || strings.Contains(text, "RBI"):
		return SourceRBI
	case strings.Contains(haystack, "hdfcbank") || strings.Contains(strings.ToLower(text), "hdfcbank"):
		return SourceHDFC
	default:
		return SourceWeb
	}
}

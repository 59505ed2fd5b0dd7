// Package linkresolver finds the official page for a self-service banking
// request.
package linkresolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kalambet/bankassist/internal/errx"
	"github.com/kalambet/bankassist/internal/logx"
)

const (
	MsgNoLink      = "❌ No relevant official link found. Please refine your question."
	resolveTimeout = 20 * time.Second
)

const systemPrompt = `You are an intelligent assistant for HDFC Bank. Given a customer request, return the single best official HDFC Bank or RBI URL for it.

Respond with one JSON object and nothing else:
{"title": "<short page title>", "url": "<absolute https URL>"}
If you do not know an official URL, respond with {"title": "", "url": ""}.`

// KnownLink is a keyword-triggered fallback URL.
type KnownLink struct {
	Keyword string
	URL     string
}

// KnownLinks are checked in order when the model has no usable answer.
var KnownLinks = []KnownLink{
	{"kyc update", "https://instaservices.hdfcbank.com/?journey=116"},
	{"mobile update", "https://instaservices.hdfcbank.com/?journey=105"},
	{"email update", "https://instaservices.hdfcbank.com/?journey=106"},
	{"interest certificate", "https://xpressforms.hdfcbank.com/login?redirect=%2Fforms%2Fic01"},
	{"forms centre", "https://www.hdfcbank.com/personal/resources/forms-centre"},
	{"netbanking login", "https://netbanking.hdfcbank.com/netbanking/"},
	{"block card", "https://www.hdfcbank.com/personal/faq/card-blocking"},
}

// Link is a resolved page.
type Link struct {
	Title string `json:"title" validate:"required"`
	URL   string `json:"url" validate:"required,http_url"`
}

// Completer is the LLM call used for resolution.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Resolver asks the model for a link and falls back to KnownLinks.
type Resolver struct {
	llm      Completer
	validate *validator.Validate
}

func New(llm Completer) *Resolver {
	return &Resolver{llm: llm, validate: validator.New()}
}

// Resolve returns the best link for query, or false when neither the model
// nor the known links produce one.
func (r *Resolver) Resolve(ctx context.Context, query string) (Link, bool) {
	if r.llm != nil {
		ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
		defer cancel()

		raw, err := r.llm.Complete(ctx, systemPrompt, fmt.Sprintf("The user asked: %q", query))
		if err != nil {
			logx.Warn().Err(err).Msg("link resolution call failed")
		} else if link, err := r.Parse(raw); err != nil {
			logx.Warn().Err(err).Str("raw", raw).Msg("link resolution reply rejected")
		} else {
			return link, true
		}
	}
	return FromKnownLinks(query)
}

// Parse decodes a strict {"title","url"} object. Unknown fields, trailing
// data and failed schema checks are errx.Parse errors.
func (r *Resolver) Parse(raw string) (Link, error) {
	const op = "linkresolver.Parse"

	dec := json.NewDecoder(bytes.NewReader([]byte(stripFence(raw))))
	dec.DisallowUnknownFields()

	var link Link
	if err := dec.Decode(&link); err != nil {
		return Link{}, errx.Wrap(errx.Parse, op, err)
	}
	if dec.More() {
		return Link{}, errx.New(errx.Parse, op, "trailing data after link object")
	}
	link.Title = strings.TrimSpace(link.Title)
	link.URL = strings.TrimSpace(link.URL)
	if err := r.validate.Struct(link); err != nil {
		return Link{}, errx.Wrap(errx.Parse, op, err)
	}
	return link, nil
}

// FromKnownLinks matches query against the keyword table.
func FromKnownLinks(query string) (Link, bool) {
	q := strings.ToLower(query)
	for _, k := range KnownLinks {
		if strings.Contains(q, k.Keyword) {
			return Link{Title: titleCase(k.Keyword), URL: k.URL}, true
		}
	}
	return Link{}, false
}

// Format renders the user-facing sentence for a resolution.
func Format(link Link, ok bool) string {
	if !ok || link.Title == "" || !strings.HasPrefix(link.URL, "http") {
		return MsgNoLink
	}
	return fmt.Sprintf("Here is the link for **%s**: [Click here](%s)", link.Title, link.URL)
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

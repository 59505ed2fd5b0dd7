package agent

import (
	"context"

	"github.com/kalambet/bankassist/internal/browser"
	"github.com/kalambet/bankassist/internal/linkresolver"
	"github.com/kalambet/bankassist/internal/planner"
	"github.com/kalambet/bankassist/internal/scrape"
	"github.com/kalambet/bankassist/internal/search"
	"github.com/kalambet/bankassist/internal/validate"
)

const (
	MsgNoResults     = "⚠️ No relevant search results found. Please rephrase your query."
	MsgNoURL         = "⚠️ No URL available to open. A search step must run first."
	MsgNavigate      = "⚠️ Failed to open or capture content from the top result."
	MsgScrape        = "⚠️ Unable to extract meaningful data from the page."
	MsgNothingToTest = "⚠️ Nothing was extracted to validate."
)

// Tool is one step of a plan.
type Tool interface {
	Name() planner.Tool
	Execute(ctx context.Context, st *State) error
}

// SearchTool takes the top result of a web search.
type SearchTool struct {
	Provider search.Provider
}

func (SearchTool) Name() planner.Tool { return planner.Search }

func (t SearchTool) Execute(ctx context.Context, st *State) error {
	results, err := t.Provider.Search(ctx, st.Query, search.Options{Limit: search.DefaultLimit})
	if err != nil {
		return fail(planner.Search, MsgNoResults, err)
	}
	if len(results) == 0 {
		return fail(planner.Search, MsgNoResults, nil)
	}
	st.Results = results
	st.URL = results[0].URL
	st.step("search: %d results, top %s", len(results), st.URL)
	return nil
}

// NavigateTool renders the current URL in a browser.
type NavigateTool struct {
	Renderer browser.Renderer
}

func (NavigateTool) Name() planner.Tool { return planner.Navigate }

func (t NavigateTool) Execute(ctx context.Context, st *State) error {
	if st.URL == "" {
		return fail(planner.Navigate, MsgNoURL, nil)
	}
	html, err := t.Renderer.Render(ctx, st.URL)
	if err != nil {
		return fail(planner.Navigate, MsgNavigate, err)
	}
	if html == "" {
		return fail(planner.Navigate, MsgNavigate, nil)
	}
	st.HTML = html
	st.step("navigate: %d bytes from %s", len(html), st.URL)
	return nil
}

// ScrapeTool extracts text, tables and links from the current page. When
// no navigate step ran it fetches the URL itself.
type ScrapeTool struct {
	Fetcher browser.Renderer
}

func (ScrapeTool) Name() planner.Tool { return planner.Scrape }

func (t ScrapeTool) Execute(ctx context.Context, st *State) error {
	if st.HTML == "" {
		if st.URL == "" {
			return fail(planner.Scrape, MsgNoURL, nil)
		}
		if t.Fetcher == nil {
			return fail(planner.Scrape, MsgScrape, nil)
		}
		html, err := t.Fetcher.Render(ctx, st.URL)
		if err != nil {
			return fail(planner.Scrape, MsgScrape, err)
		}
		st.HTML = html
	}

	payload, err := scrape.Extract(st.HTML, st.URL)
	if err != nil {
		return fail(planner.Scrape, MsgScrape, err)
	}
	if payload.Empty() {
		return fail(planner.Scrape, MsgScrape, nil)
	}
	st.Payload = payload
	st.Source = validate.SourceTag(payload, st.URL)
	st.step("scrape: %d chars text, %d links", len(payload.Text), len(payload.Links))
	return nil
}

// ValidateTool checks the scraped payload against the use-case shape rules.
// A failure is returned as an errx.Validation error for the orchestrator to
// route to document retrieval.
type ValidateTool struct{}

func (ValidateTool) Name() planner.Tool { return planner.Validate }

func (ValidateTool) Execute(_ context.Context, st *State) error {
	if st.Payload.Empty() {
		return fail(planner.Validate, MsgNothingToTest, nil)
	}
	sections, err := validate.ForUseCase(st.UseCase, st.Query, st.Payload)
	if err != nil {
		return err
	}
	st.Sections = sections
	st.Validated = true
	st.step("validate: ok, source %s", st.Source)
	return nil
}

// LinkResolverTool answers with one official self-service link and ends
// the chain.
type LinkResolverTool struct {
	Resolver *linkresolver.Resolver
}

func (LinkResolverTool) Name() planner.Tool { return planner.LinkResolver }

func (t LinkResolverTool) Execute(ctx context.Context, st *State) error {
	link, ok := t.Resolver.Resolve(ctx, st.Query)
	st.Context = linkresolver.Format(link, ok)
	st.Source = SourceLink
	st.Validated = ok
	st.Terminal = true
	st.step("link_resolver: found=%t %s", ok, link.URL)
	return nil
}

package scrape

import (
	"fmt"
	"strings"
)

// Context flattens the payload into generation context, preferring the
// article body over raw page text.
func (p Payload) Context() string {
	var parts []string
	if p.Title != "" {
		parts = append(parts, "Title: "+p.Title)
	}
	switch {
	case p.Article != "":
		parts = append(parts, p.Article)
	case p.Text != "":
		parts = append(parts, p.Text)
	}
	if p.Tables != "" {
		parts = append(parts, p.Tables)
	}
	if len(p.Links) > 0 {
		var sb strings.Builder
		sb.WriteString("Links:")
		for _, l := range p.Links {
			fmt.Fprintf(&sb, "\n- %s: %s", l.Title, l.URL)
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, "\n\n")
}

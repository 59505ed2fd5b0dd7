// Package tabular renders small row sets as aligned plain-text tables.
package tabular

import (
	"strings"
	"text/tabwriter"
)

// Render lays out header and rows in space-aligned columns with no index
// column. Short rows are padded with empty cells.
func Render(header []string, rows [][]string) string {
	width := len(header)
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	if width == 0 {
		return ""
	}

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	writeRow(tw, header, width)
	for _, r := range rows {
		writeRow(tw, r, width)
	}
	tw.Flush()

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.Join(lines, "\n")
}

func writeRow(tw *tabwriter.Writer, cells []string, width int) {
	for i := 0; i < width; i++ {
		if i > 0 {
			tw.Write([]byte{'\t'})
		}
		if i < len(cells) {
			tw.Write([]byte(sanitize(cells[i])))
		}
	}
	tw.Write([]byte{'\n'})
}

func sanitize(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ", "\r", "").Replace(strings.TrimSpace(s))
}

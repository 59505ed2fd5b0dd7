package session

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kalambet/bankassist/internal/tabular"
)

// DateColumn must be present in every ledger file.
const DateColumn = "Date"

// Ledger is a read-only, chronologically ordered transaction table.
type Ledger struct {
	Header []string
	Rows   [][]string
}

// ReadLedgerFile parses a CSV ledger from path.
func ReadLedgerFile(path string) (*Ledger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLedger(f)
}

// ReadLedger parses a CSV ledger. The first record is the header and must
// contain a Date column.
func ReadLedger(r io.Reader) (*Ledger, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing ledger csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("ledger is empty")
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	found := false
	for _, h := range header {
		if strings.TrimSpace(h) == DateColumn {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("ledger has no %s column", DateColumn)
	}
	return &Ledger{Header: header, Rows: records[1:]}, nil
}

// Tail returns the last n rows as a new ledger sharing the header.
func (l *Ledger) Tail(n int) *Ledger {
	if n < 0 || n >= len(l.Rows) {
		return &Ledger{Header: l.Header, Rows: l.Rows}
	}
	return &Ledger{Header: l.Header, Rows: l.Rows[len(l.Rows)-n:]}
}

// Table renders the ledger as an aligned text table without an index.
func (l *Ledger) Table() string {
	return tabular.Render(l.Header, l.Rows)
}

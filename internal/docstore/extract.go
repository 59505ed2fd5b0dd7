package docstore

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/kalambet/bankassist/internal/tabular"
)

// ReadFunc extracts plain text from the file at path.
type ReadFunc func(path string) (string, error)

// xlsxPreviewRows is the number of data rows shown per sheet.
const xlsxPreviewRows = 5

// DefaultReaders maps lower-case file extensions to their extractors.
func DefaultReaders() map[string]ReadFunc {
	return map[string]ReadFunc{
		".pdf":  ReadPDF,
		".docx": ReadDOCX,
		".xlsx": ReadXLSX,
		".txt":  readPlain,
		".md":   readPlain,
	}
}

// ReadPDF returns the plain text of every page. The pdf package panics on
// some malformed files; those panics come back as errors.
func ReadPDF(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return buf.String(), nil
}

// ReadXLSX renders the header and first rows of every sheet.
func ReadXLSX(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	var parts []string
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return "", fmt.Errorf("reading sheet %s: %w", name, err)
		}
		var preview string
		if len(rows) > 0 {
			body := rows[1:]
			if len(body) > xlsxPreviewRows {
				body = body[:xlsxPreviewRows]
			}
			preview = tabular.Render(rows[0], body)
		}
		parts = append(parts, fmt.Sprintf("📄 Sheet: %s\n%s", name, preview))
	}
	return strings.Join(parts, "\n\n"), nil
}

// ReadDOCX returns the non-empty paragraphs of word/document.xml, one per
// line.
func ReadDOCX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("opening docx: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("opening document part: %w", err)
		}
		defer rc.Close()
		return docxParagraphs(rc)
	}
	return "", fmt.Errorf("docx has no word/document.xml")
}

func docxParagraphs(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var paras []string
	var cur strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parsing document xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				cur.WriteByte(' ')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if p := strings.TrimSpace(cur.String()); p != "" {
					paras = append(paras, p)
				}
				cur.Reset()
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	return strings.Join(paras, "\n"), nil
}

func readPlain(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func extOf(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

package docstore

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/bankassist/internal/usecase"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeDOCX(t *testing.T, path string, paragraphs ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)

	var body strings.Builder
	body.WriteString(`<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)
	_, err = w.Write([]byte(body.String()))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}

func TestLoad_FilesAndFolders(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "norms", "b.txt"), "second document about norms")
	writeFile(t, filepath.Join(root, "norms", "a.txt"), "first document about norms")
	writeFile(t, filepath.Join(root, "norms", "skip.bin"), "binary")
	writeDOCX(t, filepath.Join(root, "fd.docx"), "Fixed deposits", "  ", "Rates vary by tenure")

	s := New(root, map[usecase.UseCase][]string{
		usecase.BankingNorms: {"fd.docx", "norms"},
	})
	got := s.Load(context.Background(), usecase.BankingNorms)

	want := "Fixed deposits\nRates vary by tenure" + Separator +
		"first document about norms" + Separator +
		"second document about norms"
	assert.Equal(t, want, got)
	assert.False(t, IsWeak(got))
}

func TestLoad_NotConfigured(t *testing.T) {
	s := New(t.TempDir(), map[usecase.UseCase][]string{})
	assert.Equal(t, MsgNotConfigured, s.Load(context.Background(), usecase.TransactionHistory))
	assert.True(t, IsWeak(MsgNotConfigured))
}

func TestLoad_NothingLoaded(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	s := New(root, map[usecase.UseCase][]string{usecase.Investment: {"empty", "notes.odt"}})

	assert.Equal(t, MsgNoContent, s.Load(context.Background(), usecase.Investment))
}

func TestLoad_FailureBecomesInlineWarning(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ok.txt"), "this file loads without trouble")
	writeFile(t, filepath.Join(root, "bad.pdf"), "not really a pdf")

	s := New(root, map[usecase.UseCase][]string{usecase.KYCUpdate: {"bad.pdf", "ok.txt"}}).
		WithReader(".pdf", func(string) (string, error) { return "", errors.New("corrupt xref") })
	got := s.Load(context.Background(), usecase.KYCUpdate)

	assert.Equal(t, "⚠️ Failed to load bad.pdf: corrupt xref"+Separator+"this file loads without trouble", got)
	assert.True(t, IsWeak(got))
}

func TestLoad_MalformedPDFDoesNotAbortLoad(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "rates", "a.txt"), "savings account rates are revised monthly")
	writeFile(t, filepath.Join(root, "rates", "b.pdf"),
		"%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\nstartxref\n9999\n%%EOF\n")

	s := New(root, map[usecase.UseCase][]string{usecase.BankingNorms: {"rates"}})
	got := s.Load(context.Background(), usecase.BankingNorms)

	parts := strings.Split(got, Separator)
	require.Len(t, parts, 2)
	assert.Equal(t, "savings account rates are revised monthly", parts[0])
	assert.True(t, strings.HasPrefix(parts[1], "⚠️ Failed to load b.pdf:"), parts[1])
}

func TestLoad_ReaderPanicBecomesInlineWarning(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ok.txt"), "this file loads without trouble")
	writeFile(t, filepath.Join(root, "bad.pdf"), "%PDF-1.4")

	s := New(root, map[usecase.UseCase][]string{usecase.KYCUpdate: {"ok.txt", "bad.pdf"}}).
		WithReader(".pdf", func(string) (string, error) { panic("reading at offset 9999: EOF") })
	got := s.Load(context.Background(), usecase.KYCUpdate)

	assert.Equal(t, "this file loads without trouble"+Separator+
		"⚠️ Failed to load bad.pdf: reader panic: reading at offset 9999: EOF", got)
}

func TestReadPDF_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	writeFile(t, path, "%PDF-1.4\nstartxref\n9999\n%%EOF\n")

	text, err := ReadPDF(path)
	assert.Error(t, err)
	assert.Empty(t, text)
}

func TestLoad_Truncates(t *testing.T) {
	root := t.TempDir()
	long := strings.Repeat("ä", 2000)
	writeFile(t, filepath.Join(root, "1.txt"), long)
	writeFile(t, filepath.Join(root, "2.txt"), long)

	s := New(root, map[usecase.UseCase][]string{usecase.Documentation: {"1.txt", "2.txt"}})
	got := s.Load(context.Background(), usecase.Documentation)

	full := long + Separator + long
	assert.Equal(t, MaxChars, len([]rune(got)))
	assert.True(t, strings.HasPrefix(full, got))
}

func TestIsWeak(t *testing.T) {
	assert.True(t, IsWeak("short"))
	assert.True(t, IsWeak("   padded but short      "))
	assert.True(t, IsWeak("plenty of text here but ⚠️ a warning too"))
	assert.False(t, IsWeak("Fixed deposit rates are revised quarterly."))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "hi", Truncate("hi", 10))
}

func TestReadDOCX_Missing(t *testing.T) {
	_, err := ReadDOCX(filepath.Join(t.TempDir(), "nope.docx"))
	assert.Error(t, err)
}

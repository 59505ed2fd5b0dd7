// Package docstore loads the static reference documents configured for each
// use case and flattens them into a bounded block of prompt context.
package docstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/bankassist/internal/logx"
	"github.com/kalambet/bankassist/internal/usecase"
)

const (
	// Separator joins the text of consecutive documents.
	Separator = "\n---\n"
	// MaxChars bounds the loaded context, counted in characters.
	MaxChars = 3000
	// WarningMarker prefixes every inline warning.
	WarningMarker = "⚠️"

	minUsefulChars = 20

	MsgNotConfigured = "⚠️ No documents configured for this use case."
	MsgNoContent     = "⚠️ No retrievable content found."
)

// Store resolves use cases to files under a root directory.
type Store struct {
	root    string
	mapping map[usecase.UseCase][]string
	readers map[string]ReadFunc
}

// New creates a Store rooted at root. A nil mapping uses DefaultMapping.
func New(root string, mapping map[usecase.UseCase][]string) *Store {
	if mapping == nil {
		mapping = DefaultMapping()
	}
	return &Store{root: root, mapping: mapping, readers: DefaultReaders()}
}

// WithReader registers or replaces the extractor for ext.
func (s *Store) WithReader(ext string, fn ReadFunc) *Store {
	s.readers[strings.ToLower(ext)] = fn
	return s
}

// HasDocuments reports whether uc has configured documents.
func (s *Store) HasDocuments(uc usecase.UseCase) bool {
	_, ok := s.mapping[uc]
	return ok
}

type source struct {
	path  string
	label string
	err   error
}

// Load returns the concatenated text of every document configured for uc,
// truncated to MaxChars. It never fails: unreadable files turn into inline
// warnings and missing configuration yields a warning message.
func (s *Store) Load(ctx context.Context, uc usecase.UseCase) string {
	paths, ok := s.mapping[uc]
	if !ok {
		return MsgNotConfigured
	}

	sources := s.expand(paths)
	parts := make([]string, len(sources))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, src := range sources {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			err := src.err
			var text string
			if err == nil {
				text, err = safeRead(s.readers[extOf(src.path)], src.path)
			}
			if err != nil {
				logx.Warn().Err(err).Str("file", src.path).Msg("document extraction failed")
				parts[i] = fmt.Sprintf("%s Failed to load %s: %v", WarningMarker, src.label, err)
				return nil
			}
			parts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logx.Warn().Err(err).Str("use_case", string(uc)).Msg("document load interrupted")
	}

	var loaded []string
	for _, p := range parts {
		if p != "" {
			loaded = append(loaded, p)
		}
	}
	if len(loaded) == 0 {
		return MsgNoContent
	}
	return Truncate(strings.Join(loaded, Separator), MaxChars)
}

// safeRead runs fn, turning a panic into an error so that one bad file
// cannot take down the load.
func safeRead(fn ReadFunc, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("reader panic: %v", r)
		}
	}()
	return fn(path)
}

// expand turns configured paths into an ordered list of readable files.
// Folders are listed lexicographically. Files with no registered reader are
// skipped.
func (s *Store) expand(paths []string) []source {
	var out []source
	for _, p := range paths {
		full := filepath.Join(s.root, p)
		info, err := os.Stat(full)
		if err == nil && info.IsDir() {
			entries, err := os.ReadDir(full)
			if err != nil {
				out = append(out, source{path: full, label: p, err: err})
				continue
			}
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				if _, ok := s.readers[extOf(e.Name())]; !ok {
					continue
				}
				out = append(out, source{path: filepath.Join(full, e.Name()), label: e.Name()})
			}
			continue
		}
		if _, ok := s.readers[extOf(p)]; !ok {
			continue
		}
		out = append(out, source{path: full, label: p})
	}
	return out
}

// Truncate cuts s to at most n characters without splitting a rune.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// IsWeak reports whether loaded context is too poor to answer from: it
// carries a warning marker or is shorter than 20 characters.
func IsWeak(text string) bool {
	return strings.Contains(text, WarningMarker) || utf8.RuneCountInString(strings.TrimSpace(text)) < minUsefulChars
}

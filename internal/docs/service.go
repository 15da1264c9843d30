// Package docs renders the AsciiDoc reference pages shipped under docs/ into
// HTML fragments. Pages are static at runtime, so rendered output is cached
// per file name.
package docs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bytesparadise/libasciidoc"
	"github.com/bytesparadise/libasciidoc/pkg/configuration"
)

// Page is one rendered reference page.
type Page struct {
	Name  string // file name under the docs directory
	Title string // document title from the = header, or the file name
	HTML  string // rendered fragment without header/footer
}

// Service renders .adoc pages from a docs directory.
type Service struct {
	dir   string
	mu    sync.RWMutex
	cache map[string]Page
}

func NewService(dir string) *Service {
	return &Service{
		dir:   dir,
		cache: make(map[string]Page),
	}
}

// List returns the page file names in the docs directory, sorted.
func (s *Service) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read docs directory: %w", err)
	}

	var pages []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".adoc") {
			pages = append(pages, entry.Name())
		}
	}
	sort.Strings(pages)
	return pages, nil
}

// Render converts one page to an HTML fragment. The name must be a bare
// .adoc file name inside the docs directory; paths are rejected.
func (s *Service) Render(name string) (Page, error) {
	if name != filepath.Base(name) || !strings.HasSuffix(name, ".adoc") {
		return Page{}, fmt.Errorf("invalid page name %q", name)
	}

	s.mu.RLock()
	page, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return page, nil
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return Page{}, fmt.Errorf("failed to read doc file: %w", err)
	}

	output := bytes.NewBuffer(nil)
	config := configuration.NewConfiguration(
		configuration.WithHeaderFooter(false), // callers embed fragments in their own shell
	)
	if _, err := libasciidoc.Convert(bytes.NewReader(data), output, config); err != nil {
		return Page{}, fmt.Errorf("failed to convert asciidoc: %w", err)
	}

	page = Page{Name: name, Title: pageTitle(data, name), HTML: output.String()}

	s.mu.Lock()
	s.cache[name] = page
	s.mu.Unlock()

	return page, nil
}

// pageTitle pulls the document title from the first level-0 heading.
func pageTitle(data []byte, fallback string) string {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if title, ok := strings.CutPrefix(line, "= "); ok {
			return strings.TrimSpace(title)
		}
	}
	return strings.TrimSuffix(fallback, ".adoc")
}

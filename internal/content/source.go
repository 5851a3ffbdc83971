package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Source abstracts where rulebook markdown lives. Implementations list the
// available files and fetch one by name.
type Source interface {
	List(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, name string) (string, error)
}

// DirSource reads markdown files from a local directory.
type DirSource struct {
	dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

func (s *DirSource) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read content dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func (s *DirSource) Fetch(ctx context.Context, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return string(data), nil
}

// HTTPSource fetches markdown files from a fixed base URL. The file list is
// static: the caller provides the known rulebook names since plain HTTP has
// no listing operation.
type HTTPSource struct {
	baseURL string
	files   []string
	client  *http.Client
}

func NewHTTPSource(baseURL string, files []string) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		files:   files,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *HTTPSource) List(ctx context.Context) ([]string, error) {
	return append([]string(nil), s.files...), nil
}

func (s *HTTPSource) Fetch(ctx context.Context, name string) (string, error) {
	target := s.baseURL + "/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch %s: status %d", name, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return string(data), nil
}

// DefaultRulebooks is the conventional rulebook file set used when a source
// cannot enumerate its own contents.
var DefaultRulebooks = []string{
	"core-rules.md",
	"rituals.md",
	"combat.md",
	"characters.md",
	"lore.md",
	"glossary.md",
}

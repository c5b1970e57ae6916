// Package aggregate builds the combined transcript and writes it once.
package aggregate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spherical/pdf-transcriber/internal/domain"
)

// Aggregator accumulates page texts in page order.
// Each page is stored as "\n\n--- Page N ---\n" followed by its text.
type Aggregator struct {
	buf      strings.Builder
	lastPage int
}

// New returns an empty Aggregator expecting page 1 first.
func New() *Aggregator {
	return &Aggregator{}
}

// Add appends one page. Pages must arrive as 1, 2, 3, ... with no gaps.
func (a *Aggregator) Add(pageNumber int, text string) error {
	if pageNumber != a.lastPage+1 {
		return domain.ExtractionError(
			fmt.Sprintf("page %d arrived out of order, expected page %d", pageNumber, a.lastPage+1), nil)
	}

	a.buf.WriteString("\n\n")
	a.buf.WriteString(domain.PageDelimiter(pageNumber))
	a.buf.WriteString("\n")
	a.buf.WriteString(text)
	a.lastPage = pageNumber
	return nil
}

// Pages returns how many pages have been added.
func (a *Aggregator) Pages() int {
	return a.lastPage
}

// String returns the combined output.
func (a *Aggregator) String() string {
	return a.buf.String()
}

// WriteFile replaces path with the combined output.
// The content goes to a temporary sibling first and is renamed into place,
// so path holds either its previous content or the complete new output.
func (a *Aggregator) WriteFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.IOError(fmt.Sprintf("Failed to create output directory %s", dir), err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return domain.IOError("Failed to create temporary output file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(a.buf.String()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return domain.IOError("Failed to write output", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return domain.IOError("Failed to close output", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return domain.IOError("Failed to set output permissions", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return domain.IOError(fmt.Sprintf("Failed to move output into place at %s", path), err)
	}

	return nil
}

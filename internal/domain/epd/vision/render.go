package vision

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Renderer turns PDF pages into PNG images.
type Renderer interface {
	Render(ctx context.Context, pdfPath string, dpi int) ([][]byte, error)
}

// PdftoppmRenderer renders pages with the poppler pdftoppm tool.
type PdftoppmRenderer struct {
	// Binary is the pdftoppm executable, looked up in PATH when empty.
	Binary string
}

// Render returns one PNG per page, in page order.
func (r PdftoppmRenderer) Render(ctx context.Context, pdfPath string, dpi int) ([][]byte, error) {
	bin := r.Binary
	if bin == "" {
		bin = "pdftoppm"
	}

	tempDir, err := os.MkdirTemp("", "epd-pages-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	cmd := exec.CommandContext(ctx, bin, "-png", "-r", strconv.Itoa(dpi), pdfPath, filepath.Join(tempDir, "page"))
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed, is poppler installed? %w: %s", err, strings.TrimSpace(string(output)))
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered pages: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".png") {
			names = append(names, e.Name())
		}
	}
	// pdftoppm zero-pads page numbers, so lexical order is page order
	sort.Strings(names)

	pages := make([][]byte, 0, len(names))
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(tempDir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read rendered page %s: %w", name, err)
		}
		pages = append(pages, content)
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no pages")
	}
	return pages, nil
}

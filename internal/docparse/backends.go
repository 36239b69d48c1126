package docparse

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// textParser reads already-extracted plain text (.txt/.md). The whole file
// is treated as a single page. Lowest cost baseline; no tables.
type textParser struct{}

func (p *textParser) Name() string { return "text" }

func (p *textParser) Parse(ctx context.Context, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %q: %w", path, err)
	}

	text := string(data)
	return &Document{
		SourcePath: path,
		Parser:     p.Name(),
		Text:       text,
		Pages:      []string{text},
		Metadata: map[string]any{
			"num_pages":  1,
			"size_bytes": len(data),
		},
	}, nil
}

// pdftotextParser shells out to poppler's pdftotext with layout
// preservation. Pages arrive separated by form feeds.
type pdftotextParser struct{}

func (p *pdftotextParser) Name() string { return "pdftotext" }

func (p *pdftotextParser) Parse(ctx context.Context, path string) (*Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read document %q: %w", path, err)
	}

	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftotext failed for %q: %w (%s)", path, err, strings.TrimSpace(stderr.String()))
	}

	pages := splitPages(stdout.String())
	return &Document{
		SourcePath: path,
		Parser:     p.Name(),
		Text:       strings.Join(pages, "\n\n"),
		Pages:      pages,
		Metadata: map[string]any{
			"num_pages": len(pages),
		},
	}, nil
}

func splitPages(out string) []string {
	// pdftotext emits a trailing form feed after the last page.
	out = strings.TrimSuffix(out, "\f")
	pages := strings.Split(out, "\f")
	for i, page := range pages {
		pages[i] = strings.TrimRight(page, "\n")
	}
	return pages
}

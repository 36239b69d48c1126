package docparse

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Save writes a parsed document into dir: text.txt with the full text,
// pages/page_NNN.txt per page, tables.json when tables were extracted, and
// metadata.json identifying the source and backend.
func Save(doc *Document, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir %q: %w", dir, err)
	}

	if err := os.WriteFile(filepath.Join(dir, "text.txt"), []byte(doc.Text), 0o644); err != nil {
		return fmt.Errorf("failed to write text: %w", err)
	}

	if len(doc.Pages) > 0 {
		pagesDir := filepath.Join(dir, "pages")
		if err := os.MkdirAll(pagesDir, 0o755); err != nil {
			return fmt.Errorf("failed to create pages dir: %w", err)
		}
		for i, page := range doc.Pages {
			name := fmt.Sprintf("page_%03d.txt", i+1)
			if err := os.WriteFile(filepath.Join(pagesDir, name), []byte(page), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", name, err)
			}
		}
	}

	if len(doc.Tables) > 0 {
		data, err := json.MarshalIndent(doc.Tables, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode tables: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "tables.json"), data, 0o644); err != nil {
			return fmt.Errorf("failed to write tables: %w", err)
		}
	}

	meta, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), meta, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// LoadDir reads a document previously written by Save.
func LoadDir(dir string) (*Document, error) {
	meta, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read parsed document in %q: %w", dir, err)
	}
	var doc Document
	if err := json.Unmarshal(meta, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse metadata in %q: %w", dir, err)
	}

	text, err := os.ReadFile(filepath.Join(dir, "text.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to read parsed text in %q: %w", dir, err)
	}
	doc.Text = string(text)

	if data, err := os.ReadFile(filepath.Join(dir, "tables.json")); err == nil {
		if err := json.Unmarshal(data, &doc.Tables); err != nil {
			return nil, fmt.Errorf("failed to parse tables in %q: %w", dir, err)
		}
	}

	pagesDir := filepath.Join(dir, "pages")
	if entries, err := os.ReadDir(pagesDir); err == nil {
		var names []string
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".txt") {
				names = append(names, entry.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			page, err := os.ReadFile(filepath.Join(pagesDir, name))
			if err != nil {
				return nil, fmt.Errorf("failed to read page %s: %w", name, err)
			}
			doc.Pages = append(doc.Pages, string(page))
		}
	}

	return &doc, nil
}

// Package fs provides file-based storage for cached images and scraped recipes.
package fs

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/larder"
	"gopkg.in/yaml.v3"
)

// URLToPath converts a page URL to a relative file path.
// Example: https://example.com/recipes/stew → recipes/stew.md
func URLToPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	path := u.Path

	// Handle root or trailing slash → index.md
	if path == "" || path == "/" {
		return "index.md", nil
	}

	// Remove leading slash
	path = strings.TrimPrefix(path, "/")

	// Trailing slash becomes index.md in that directory
	if strings.HasSuffix(path, "/") {
		return path + "index.md", nil
	}

	// Otherwise append .md
	return path + ".md", nil
}

// frontmatter is the YAML header written above a recipe.
type frontmatter struct {
	Source    string `yaml:"source"`
	Title     string `yaml:"title,omitempty"`
	Image     string `yaml:"image,omitempty"`
	Yields    string `yaml:"yields,omitempty"`
	PrepTime  string `yaml:"prep_time,omitempty"`
	CookTime  string `yaml:"cook_time,omitempty"`
	TotalTime string `yaml:"total_time,omitempty"`
	Scraped   string `yaml:"scraped"`
}

// FormatRecipe formats a recipe as markdown with YAML frontmatter.
func FormatRecipe(r *larder.Recipe, scraped time.Time) (string, error) {
	header, err := yaml.Marshal(frontmatter{
		Source:    r.SourceURL,
		Title:     r.Title,
		Image:     r.ImageURL,
		Yields:    r.Yields,
		PrepTime:  r.PrepTime,
		CookTime:  r.CookTime,
		TotalTime: r.TotalTime,
		Scraped:   scraped.Format("2006-01-02"),
	})
	if err != nil {
		return "", fmt.Errorf("marshal frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n\n")

	if r.Title != "" {
		b.WriteString("# " + r.Title + "\n\n")
	}
	if r.Description != "" {
		b.WriteString(r.Description + "\n\n")
	}
	if len(r.Ingredients) > 0 {
		b.WriteString("## Ingredients\n\n")
		for _, ing := range r.Ingredients {
			b.WriteString("- " + ing + "\n")
		}
		b.WriteString("\n")
	}
	if len(r.Instructions) > 0 {
		b.WriteString("## Instructions\n\n")
		for i, step := range r.Instructions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
		b.WriteString("\n")
	}
	if r.Content != "" {
		b.WriteString(r.Content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// Writer writes recipes to disk as markdown files.
type Writer struct {
	baseDir string
}

// NewWriter creates a new Writer that writes to the given base directory.
func NewWriter(baseDir string) *Writer {
	return &Writer{baseDir: baseDir}
}

// WriteRecipe writes a recipe under baseDir/<host>/<path>.md and returns the
// file path.
func (w *Writer) WriteRecipe(ctx context.Context, r *larder.Recipe) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}

	u, err := url.Parse(r.SourceURL)
	if err != nil {
		return "", larder.Errorf(larder.EINVALID, "invalid recipe URL: %v", err)
	}
	relPath, err := URLToPath(r.SourceURL)
	if err != nil {
		return "", err
	}

	fullPath := filepath.Join(w.baseDir, u.Hostname(), relPath)

	// Create parent directories
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", err
	}

	content, err := FormatRecipe(r, time.Now())
	if err != nil {
		return "", err
	}
	return fullPath, os.WriteFile(fullPath, []byte(content), 0644)
}

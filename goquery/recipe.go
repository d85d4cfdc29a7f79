package goquery

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/larder"
)

// Ensure RecipeParser implements larder.RecipeParser at compile time.
var _ larder.RecipeParser = (*RecipeParser)(nil)

// RecipeParser reads schema.org Recipe objects from JSON-LD script blocks.
type RecipeParser struct{}

// NewRecipeParser creates a new RecipeParser.
func NewRecipeParser() *RecipeParser {
	return &RecipeParser{}
}

// ParseRecipe returns the first schema.org Recipe found in the page's JSON-LD.
// Malformed fields are left empty rather than failing the whole parse.
func (p *RecipeParser) ParseRecipe(html, pageURL string) (*larder.Recipe, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false
	}

	var node map[string]any
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		node = findRecipeNode(data)
		return node == nil
	})
	if node == nil {
		return nil, false
	}

	r := &larder.Recipe{
		SourceURL:    pageURL,
		Title:        larder.Optional("", func() (string, error) { return stringField(node, "name") }),
		Description:  larder.Optional("", func() (string, error) { return stringField(node, "description") }),
		ImageURL:     larder.Optional("", func() (string, error) { return imageField(node["image"]) }),
		Ingredients:  larder.Optional([]string(nil), func() ([]string, error) { return stringList(node["recipeIngredient"]) }),
		Instructions: larder.Optional([]string(nil), func() ([]string, error) { return instructionList(node["recipeInstructions"]) }),
		Yields:       larder.Optional("", func() (string, error) { return yieldField(node["recipeYield"]) }),
		PrepTime:     larder.Optional("", func() (string, error) { return stringField(node, "prepTime") }),
		CookTime:     larder.Optional("", func() (string, error) { return stringField(node, "cookTime") }),
		TotalTime:    larder.Optional("", func() (string, error) { return stringField(node, "totalTime") }),
	}
	return r, true
}

// findRecipeNode searches a decoded JSON-LD value for an object typed Recipe,
// descending into arrays and @graph.
func findRecipeNode(v any) map[string]any {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if n := findRecipeNode(item); n != nil {
				return n
			}
		}
	case map[string]any:
		if isRecipeType(t["@type"]) {
			return t
		}
		if graph, ok := t["@graph"]; ok {
			return findRecipeNode(graph)
		}
	}
	return nil
}

func isRecipeType(v any) bool {
	switch t := v.(type) {
	case string:
		return t == "Recipe"
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s == "Recipe" {
				return true
			}
		}
	}
	return false
}

func stringField(node map[string]any, key string) (string, error) {
	v, ok := node[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s is %T, not string", key, v)
	}
	return cleanText(s), nil
}

// imageField accepts a URL, an ImageObject, or a list of either.
func imageField(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case map[string]any:
		if u, ok := t["url"].(string); ok {
			return u, nil
		}
	case []any:
		for _, item := range t {
			if u, err := imageField(item); err == nil && u != "" {
				return u, nil
			}
		}
	}
	return "", fmt.Errorf("unsupported image value %T", v)
}

func stringList(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected list, got %T", v)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, cleanText(s))
		}
	}
	return out, nil
}

// instructionList flattens plain text, HowToStep and HowToSection forms.
func instructionList(v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		var out []string
		for _, line := range strings.Split(t, "\n") {
			if line = cleanText(line); line != "" {
				out = append(out, line)
			}
		}
		return out, nil
	case map[string]any:
		if items, ok := t["itemListElement"]; ok {
			return instructionList(items)
		}
		if text, ok := t["text"].(string); ok {
			return []string{cleanText(text)}, nil
		}
		return nil, fmt.Errorf("instruction object without text")
	case []any:
		var out []string
		for _, item := range t {
			steps, err := instructionList(item)
			if err != nil {
				continue
			}
			out = append(out, steps...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported instructions value %T", v)
}

func yieldField(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return cleanText(t), nil
	case float64:
		return fmt.Sprintf("%g", t), nil
	case []any:
		if len(t) == 0 {
			return "", fmt.Errorf("empty yield")
		}
		return yieldField(t[0])
	}
	return "", fmt.Errorf("unsupported yield value %T", v)
}

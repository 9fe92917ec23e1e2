// Package importer fetches a recipe page from the web and extracts a Recipe
// from its structured markup: schema.org JSON-LD first, DOM heuristics as a
// fallback. Imported recipes carry zero macros; nutrition values are not
// estimated.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"macro-meal-planner/internal/recipe"
)

// Importer handles fetching and extracting recipes from URLs.
type Importer struct {
	httpClient *http.Client
}

// New creates an Importer with a sane fetch timeout.
func New() *Importer {
	return &Importer{
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Import fetches the URL and extracts a recipe. The result has source "web"
// and is not yet persisted.
func (i *Importer) Import(ctx context.Context, url string) (*recipe.Recipe, error) {
	doc, err := i.fetchDocument(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}

	rec := extractJSONLD(doc)
	if rec == nil {
		rec = extractDOM(doc)
	}
	if rec == nil || rec.Name == "" || len(rec.Ingredients) == 0 {
		return nil, fmt.Errorf("no recipe found at %s", url)
	}

	rec.Source = recipe.SourceWeb
	rec.SourceURL = url
	rec.ApplyDefaults()
	return rec, nil
}

func (i *Importer) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

// ldRecipe mirrors the schema.org/Recipe fields we consume. Instructions can
// arrive as plain strings or HowToStep objects.
type ldRecipe struct {
	Type         any    `json:"@type"`
	Name         string `json:"name"`
	Image        any    `json:"image"`
	RecipeYield  any    `json:"recipeYield"`
	Ingredients  []string
	Instructions any `json:"recipeInstructions"`
}

func (r *ldRecipe) UnmarshalJSON(data []byte) error {
	type alias ldRecipe
	aux := struct {
		*alias
		RecipeIngredient []string `json:"recipeIngredient"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Ingredients = aux.RecipeIngredient
	return nil
}

// extractJSONLD scans ld+json script blocks for a schema.org Recipe node,
// including @graph containers.
func extractJSONLD(doc *goquery.Document) *recipe.Recipe {
	var found *recipe.Recipe
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, node := range ldNodes([]byte(s.Text())) {
			if !isRecipeNode(node.Type) {
				continue
			}
			found = fromLDRecipe(node)
			return false
		}
		return true
	})
	return found
}

// ldNodes flattens a JSON-LD payload (single object, array, or @graph) into
// candidate recipe nodes.
func ldNodes(raw []byte) []ldRecipe {
	var single struct {
		Graph []json.RawMessage `json:"@graph"`
	}
	if err := json.Unmarshal(raw, &single); err == nil && len(single.Graph) > 0 {
		var nodes []ldRecipe
		for _, item := range single.Graph {
			var node ldRecipe
			if json.Unmarshal(item, &node) == nil {
				nodes = append(nodes, node)
			}
		}
		return nodes
	}

	var list []ldRecipe
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var node ldRecipe
	if err := json.Unmarshal(raw, &node); err == nil {
		return []ldRecipe{node}
	}
	return nil
}

func isRecipeNode(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "Recipe"
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == "Recipe" {
				return true
			}
		}
	}
	return false
}

func fromLDRecipe(node ldRecipe) *recipe.Recipe {
	rec := &recipe.Recipe{
		Name:        strings.TrimSpace(node.Name),
		Ingredients: node.Ingredients,
	}

	rec.Instructions = flattenInstructions(node.Instructions)
	rec.ImageURL = firstImage(node.Image)
	if servings := parseYield(node.RecipeYield); servings > 0 {
		rec.Servings = servings
	}
	return rec
}

func flattenInstructions(v any) string {
	var steps []string
	switch inst := v.(type) {
	case string:
		return strings.TrimSpace(inst)
	case []any:
		for _, item := range inst {
			switch step := item.(type) {
			case string:
				steps = append(steps, strings.TrimSpace(step))
			case map[string]any:
				if text, ok := step["text"].(string); ok {
					steps = append(steps, strings.TrimSpace(text))
				}
			}
		}
	}
	return strings.Join(steps, "\n")
}

func firstImage(v any) string {
	switch img := v.(type) {
	case string:
		return img
	case []any:
		if len(img) > 0 {
			if s, ok := img[0].(string); ok {
				return s
			}
		}
	case map[string]any:
		if u, ok := img["url"].(string); ok {
			return u
		}
	}
	return ""
}

// parseYield pulls the first integer out of recipeYield, which arrives as a
// number, a string like "4 servings", or a list of either.
func parseYield(v any) int {
	switch y := v.(type) {
	case float64:
		return int(y)
	case string:
		for _, field := range strings.Fields(y) {
			if n, err := strconv.Atoi(field); err == nil {
				return n
			}
		}
	case []any:
		for _, item := range y {
			if n := parseYield(item); n > 0 {
				return n
			}
		}
	}
	return 0
}

// extractDOM is the fallback for pages without structured data: strip noise,
// take the first heading as the title and itemprop/class-marked lists as
// ingredients.
func extractDOM(doc *goquery.Document) *recipe.Recipe {
	// Remove scripts, styles, navigation, footers, iframes and ad blocks.
	doc.Find("script, style, nav, footer, iframe, ads, .ads, #ads").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})

	rec := &recipe.Recipe{}

	if h1 := doc.Find("h1").First(); h1.Length() > 0 {
		rec.Name = strings.TrimSpace(h1.Text())
	} else {
		rec.Name = strings.TrimSpace(doc.Find("title").First().Text())
	}

	doc.Find(`[itemprop="recipeIngredient"]`).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			rec.Ingredients = append(rec.Ingredients, text)
		}
	})
	if len(rec.Ingredients) == 0 {
		doc.Find(".ingredients li, .ingredient-list li, ul.ingredients li").Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" {
				rec.Ingredients = append(rec.Ingredients, text)
			}
		})
	}

	if len(rec.Ingredients) == 0 {
		return nil
	}
	return rec
}

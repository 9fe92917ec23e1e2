package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"macro-meal-planner/internal/recipe"
)

func serve(t *testing.T, html string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(html))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestImport_JSONLD(t *testing.T) {
	html := `
	<html><head>
	<script type="application/ld+json">
	{
		"@context": "https://schema.org",
		"@type": "Recipe",
		"name": "Weeknight Bolognese",
		"image": ["https://img.test/bolognese.jpg"],
		"recipeYield": "4 servings",
		"recipeIngredient": ["1 lb ground beef", "1 onion, diced", "2 cups crushed tomatoes"],
		"recipeInstructions": [
			{"@type": "HowToStep", "text": "Brown the beef."},
			{"@type": "HowToStep", "text": "Simmer with tomatoes."}
		]
	}
	</script>
	</head><body><h1>Something else entirely</h1></body></html>`
	ts := serve(t, html)

	rec, err := New().Import(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Name != "Weeknight Bolognese" {
		t.Errorf("Expected name 'Weeknight Bolognese', got '%s'", rec.Name)
	}
	if len(rec.Ingredients) != 3 {
		t.Fatalf("Expected 3 ingredients, got %d", len(rec.Ingredients))
	}
	if rec.Ingredients[0] != "1 lb ground beef" {
		t.Errorf("Unexpected first ingredient: '%s'", rec.Ingredients[0])
	}
	if !strings.Contains(rec.Instructions, "Brown the beef.") {
		t.Errorf("Expected instructions to contain first step, got '%s'", rec.Instructions)
	}
	if rec.Servings != 4 {
		t.Errorf("Expected 4 servings, got %d", rec.Servings)
	}
	if rec.ImageURL != "https://img.test/bolognese.jpg" {
		t.Errorf("Unexpected image URL: '%s'", rec.ImageURL)
	}
	if rec.Source != recipe.SourceWeb {
		t.Errorf("Expected source 'web', got '%s'", rec.Source)
	}
	if rec.SourceURL != ts.URL {
		t.Errorf("Expected source URL '%s', got '%s'", ts.URL, rec.SourceURL)
	}
	if rec.Calories != 0 {
		t.Errorf("Imported recipes must not carry estimated macros, got %v calories", rec.Calories)
	}
}

func TestImport_JSONLDGraph(t *testing.T) {
	html := `
	<html><head>
	<script type="application/ld+json">
	{"@graph": [
		{"@type": "WebPage", "name": "Not a recipe"},
		{"@type": ["Recipe", "Thing"], "name": "Graph Granola",
		 "recipeIngredient": ["3 cups oats", "1/2 cup honey"],
		 "recipeInstructions": "Mix and bake."}
	]}
	</script>
	</head><body></body></html>`
	ts := serve(t, html)

	rec, err := New().Import(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Name != "Graph Granola" {
		t.Errorf("Expected name 'Graph Granola', got '%s'", rec.Name)
	}
	if rec.Instructions != "Mix and bake." {
		t.Errorf("Unexpected instructions: '%s'", rec.Instructions)
	}
}

func TestImport_DOMFallback(t *testing.T) {
	html := `
	<html>
		<head><script>tracking()</script></head>
		<body>
			<h1>Garden Salad</h1>
			<div class="ads">Buy stuff!</div>
			<ul class="ingredients">
				<li>2 cups lettuce</li>
				<li>1 tomato, sliced</li>
			</ul>
		</body>
	</html>`
	ts := serve(t, html)

	rec, err := New().Import(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Name != "Garden Salad" {
		t.Errorf("Expected name 'Garden Salad', got '%s'", rec.Name)
	}
	if len(rec.Ingredients) != 2 {
		t.Errorf("Expected 2 ingredients, got %d", len(rec.Ingredients))
	}
}

func TestImport_NoRecipe(t *testing.T) {
	ts := serve(t, `<html><body><p>Just a blog post.</p></body></html>`)

	_, err := New().Import(context.Background(), ts.URL)
	if err == nil {
		t.Fatal("Expected an error for a page without a recipe, got nil")
	}
}

func TestImport_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := New().Import(context.Background(), ts.URL)
	if err == nil {
		t.Fatal("Expected an error for a 404 page, got nil")
	}
}

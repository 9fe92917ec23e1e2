package recipe

import (
	"sort"
	"strings"
)

// proteinKeywords maps a protein category to the substrings that identify it
// in a recipe name or ingredient line. Matching is case-insensitive.
var proteinKeywords = map[string][]string{
	"chicken": {"chicken"},
	"beef":    {"beef", "steak", "ground chuck", "brisket"},
	"pork":    {"pork", "bacon", "ham", "sausage", "prosciutto", "chorizo"},
	"turkey":  {"turkey"},
	"lamb":    {"lamb"},
	"fish":    {"salmon", "tuna", "cod", "tilapia", "halibut", "trout", "mackerel", "sardine", "anchov", "white fish", "fish fillet"},
	"seafood": {"shrimp", "prawn", "scallop", "crab", "lobster", "mussel", "clam", "oyster", "squid", "calamari"},
	"egg":     {"egg"},
	"tofu":    {"tofu", "tempeh", "seitan", "edamame"},
	"legume":  {"lentil", "chickpea", "black bean", "kidney bean", "pinto bean", "white bean", "cannellini", "navy bean"},
}

// DetectProteins returns the sorted set of protein categories present in the
// recipe's name or ingredient lines.
func DetectProteins(r Recipe) []string {
	haystack := strings.ToLower(r.Name)
	for _, ing := range r.Ingredients {
		haystack += "\n" + strings.ToLower(ing)
	}

	found := make(map[string]struct{})
	for category, words := range proteinKeywords {
		for _, w := range words {
			if strings.Contains(haystack, w) {
				found[category] = struct{}{}
				break
			}
		}
	}

	result := make([]string, 0, len(found))
	for c := range found {
		result = append(result, c)
	}
	sort.Strings(result)
	return result
}

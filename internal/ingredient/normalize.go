package ingredient

import (
	"regexp"
	"strings"
)

var (
	trailingPhraseRe = regexp.MustCompile(`(?i)[\s,]*(to taste|divided|or more\b.*|as needed|plus more\b.*|at room temperature|cut into\b.*|like\s+\S.*|such as\s+\S.*|for\s+\S.*|preferably\b.*|store-bought|if available)\s*$`)
	measurementRe    = regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*(oz|ounce|ounces|cup|cups|tbsp|tsp|tablespoon|tablespoons|teaspoon|teaspoons|lb|lbs|pound|pounds|g|gram|grams|kg|ml|liter|liters)\b\.?`)
	numberTokenRe    = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// leadingConjunctions are dropped from the front of a name.
var leadingConjunctions = map[string]struct{}{
	"and": {}, "or": {}, "then": {}, "plus": {},
}

// stripWords are prep verbs, size adjectives, freshness markers and
// connective prepositions removed from every position of a name.
var stripWords = map[string]struct{}{
	// prep verbs
	"chopped": {}, "minced": {}, "diced": {}, "sliced": {}, "grated": {},
	"shredded": {}, "crushed": {}, "peeled": {}, "seeded": {}, "trimmed": {},
	"rinsed": {}, "drained": {}, "melted": {}, "softened": {}, "beaten": {},
	"cooked": {}, "uncooked": {}, "toasted": {}, "halved": {}, "quartered": {},
	"cubed": {}, "julienned": {}, "mashed": {}, "packed": {}, "sifted": {},
	"zested": {}, "juiced": {}, "pitted": {}, "stemmed": {}, "deveined": {},
	// size and shape adjectives
	"large": {}, "small": {}, "medium": {}, "thin": {}, "thick": {},
	"thinly": {}, "finely": {}, "coarsely": {}, "roughly": {}, "lightly": {},
	"extra": {}, "jumbo": {}, "baby": {}, "mini": {},
	// freshness markers
	"fresh": {}, "freshly": {}, "frozen": {}, "ripe": {}, "raw": {},
	"boneless": {}, "skinless": {}, "lean": {},
	// connectives and filler
	"of": {}, "into": {}, "with": {}, "about": {}, "optional": {}, "and": {},
	"more": {}, "other": {}, "your": {}, "favorite": {},
}

// NormalizeName reduces a raw ingredient name to its canonical form.
// The function is idempotent: normalizing an already-normalized name
// returns it unchanged.
func NormalizeName(raw string) string {
	s := parensRe.ReplaceAllString(raw, " ")

	// Trailing qualifier phrases, applied until stable ("..., divided, or
	// more to taste" collapses in stages).
	for {
		next := trailingPhraseRe.ReplaceAllString(s, "")
		if next == s {
			break
		}
		s = next
	}

	// Keep only the part before the first comma.
	if idx := strings.Index(s, ","); idx >= 0 {
		s = s[:idx]
	}

	// Embedded measurements like "8 oz" or "2 cups".
	s = measurementRe.ReplaceAllString(s, " ")

	s = strings.ToLower(s)

	tokens := strings.Fields(s)
	for len(tokens) > 0 {
		if _, ok := leadingConjunctions[tokens[0]]; !ok {
			break
		}
		tokens = tokens[1:]
	}

	var kept []string
	for _, tok := range tokens {
		tok = strings.Trim(tok, ".;:!&")
		if tok == "" {
			continue
		}
		if _, ok := stripWords[tok]; ok {
			continue
		}
		if numberTokenRe.MatchString(tok) {
			continue
		}
		kept = append(kept, singularize(tok))
	}

	result := strings.Join(kept, " ")
	if len(strings.TrimSpace(result)) <= 1 {
		return ""
	}
	return result
}

// irregularSingular wins over the suffix rules.
var irregularSingular = map[string]string{
	"leaves":   "leaf",
	"loaves":   "loaf",
	"halves":   "half",
	"knives":   "knife",
	"molasses": "molasses",
}

// singularize reduces a plural English noun token to singular form via the
// irregular table first, then suffix rules.
func singularize(tok string) string {
	if s, ok := irregularSingular[tok]; ok {
		return s
	}
	n := len(tok)
	switch {
	case n > 3 && strings.HasSuffix(tok, "ies"):
		return tok[:n-3] + "y"
	case n > 3 && strings.HasSuffix(tok, "oes"):
		return tok[:n-2]
	case n > 4 && (strings.HasSuffix(tok, "ches") || strings.HasSuffix(tok, "shes")):
		return tok[:n-2]
	case n > 3 && strings.HasSuffix(tok, "ses"):
		return tok[:n-1]
	case n > 1 && strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss") && !strings.HasSuffix(tok, "us"):
		return tok[:n-1]
	}
	return tok
}

// Package ingredient converts free-text ingredient strings into structured
// (quantity, unit, name, category) tuples for shopping-list aggregation.
package ingredient

import (
	"regexp"
	"strconv"
	"strings"
)

// Parsed is the structured form of one ingredient line.
type Parsed struct {
	Quantity float64
	Unit     string
	Name     string
	Category string
}

// vulgarFractions maps unicode vulgar fraction runes to their values.
var vulgarFractions = map[rune]float64{
	'½': 1.0 / 2, '⅓': 1.0 / 3, '⅔': 2.0 / 3,
	'¼': 1.0 / 4, '¾': 3.0 / 4,
	'⅕': 1.0 / 5, '⅖': 2.0 / 5, '⅗': 3.0 / 5, '⅘': 4.0 / 5,
	'⅙': 1.0 / 6, '⅚': 5.0 / 6,
	'⅛': 1.0 / 8, '⅜': 3.0 / 8, '⅝': 5.0 / 8, '⅞': 7.0 / 8,
}

// unitCanonical folds every accepted unit spelling (case-insensitive,
// optional trailing period) to its canonical singular form. "lb" is the
// canonical form for pounds.
var unitCanonical = map[string]string{
	"cup": "cup", "cups": "cup",
	"tbsp": "tbsp", "tsp": "tsp",
	"tablespoon": "tablespoon", "tablespoons": "tablespoon",
	"teaspoon": "teaspoon", "teaspoons": "teaspoon",
	"oz": "oz", "ounce": "ounce", "ounces": "ounce",
	"lb": "lb", "lbs": "lb", "pound": "lb", "pounds": "lb",
	"g": "g", "gram": "gram", "grams": "gram", "kg": "kg",
	"ml": "ml", "liter": "liter", "liters": "liter",
	"clove": "clove", "cloves": "clove",
	"can": "can", "cans": "can",
	"bunch": "bunch", "bunches": "bunch",
	"pinch": "pinch", "dash": "dash",
	"slice": "slice", "slices": "slice",
	"piece": "piece", "pieces": "piece",
	"stalk": "stalk", "stalks": "stalk",
	"head": "head", "heads": "head",
	"sprig": "sprig", "sprigs": "sprig",
}

// pluralExceptions overrides the default +s pluralization in PluralizeUnit.
var pluralExceptions = map[string]string{
	"bunch": "bunches",
	"pinch": "pinches",
	"dash":  "dashes",
}

// invariantUnits never pluralize.
var invariantUnits = map[string]struct{}{
	"oz": {}, "g": {}, "kg": {}, "ml": {}, "tbsp": {}, "tsp": {},
}

var (
	parensRe        = regexp.MustCompile(`\([^)]*\)`)
	plainFractionRe = regexp.MustCompile(`^(\d+)/(\d+)$`)
	integerRe       = regexp.MustCompile(`^\d+$`)
	decimalRe       = regexp.MustCompile(`^(\d+(?:\.\d+)?)(\x{00BC}|\x{00BD}|\x{00BE}|[\x{2150}-\x{215E}])?$`)
)

// Parse converts one free-text ingredient string into its structured form.
// A missing quantity defaults to 1; an unrecognized unit is left empty and
// the token flows into the name.
func Parse(raw string) Parsed {
	text := parensRe.ReplaceAllString(raw, " ")
	fields := strings.Fields(text)

	qty, fields := parseQuantity(fields)
	unit, fields := parseUnit(fields)
	name := NormalizeName(strings.Join(fields, " "))

	return Parsed{
		Quantity: qty,
		Unit:     unit,
		Name:     name,
		Category: Categorize(name),
	}
}

// parseQuantity consumes a leading quantity, trying in priority order:
// mixed fraction, plain fraction, decimal/integer (optionally glued to or
// followed by a vulgar fraction), then a bare vulgar fraction.
func parseQuantity(fields []string) (float64, []string) {
	if len(fields) == 0 {
		return 1, fields
	}

	// Mixed fraction: "1 1/2"
	if integerRe.MatchString(fields[0]) && len(fields) > 1 {
		if m := plainFractionRe.FindStringSubmatch(fields[1]); m != nil {
			whole, _ := strconv.ParseFloat(fields[0], 64)
			num, _ := strconv.ParseFloat(m[1], 64)
			den, _ := strconv.ParseFloat(m[2], 64)
			if den != 0 {
				return whole + num/den, fields[2:]
			}
		}
	}

	// Plain fraction: "1/2"
	if m := plainFractionRe.FindStringSubmatch(fields[0]); m != nil {
		num, _ := strconv.ParseFloat(m[1], 64)
		den, _ := strconv.ParseFloat(m[2], 64)
		if den != 0 {
			return num / den, fields[1:]
		}
	}

	// Decimal or integer, possibly glued to a vulgar fraction ("1½").
	if m := decimalRe.FindStringSubmatch(fields[0]); m != nil {
		value, _ := strconv.ParseFloat(m[1], 64)
		if m[2] != "" {
			value += vulgarValue(m[2])
			return value, fields[1:]
		}
		// "1 ½": a decimal immediately followed by a vulgar fraction token.
		if len(fields) > 1 {
			if v := vulgarValue(fields[1]); v > 0 {
				return value + v, fields[2:]
			}
		}
		return value, fields[1:]
	}

	// Bare vulgar fraction: "½"
	if v := vulgarValue(fields[0]); v > 0 {
		return v, fields[1:]
	}

	return 1, fields
}

// vulgarValue returns the value of a single vulgar-fraction token, or 0.
func vulgarValue(tok string) float64 {
	runes := []rune(tok)
	if len(runes) != 1 {
		return 0
	}
	return vulgarFractions[runes[0]]
}

// parseUnit consumes a unit token when the next field is a known unit,
// and discards a following "of".
func parseUnit(fields []string) (string, []string) {
	if len(fields) == 0 {
		return "", fields
	}
	tok := strings.ToLower(strings.TrimSuffix(fields[0], "."))
	canonical, ok := unitCanonical[tok]
	if !ok {
		return "", fields
	}
	rest := fields[1:]
	if len(rest) > 0 && strings.EqualFold(rest[0], "of") {
		rest = rest[1:]
	}
	return canonical, rest
}

// PluralizeUnit returns the display form of a unit for quantities above one.
func PluralizeUnit(unit string) string {
	if unit == "" {
		return ""
	}
	if _, ok := invariantUnits[unit]; ok {
		return unit
	}
	if p, ok := pluralExceptions[unit]; ok {
		return p
	}
	return unit + "s"
}

package ingredient

import "strings"

// Ingredient categories for shopping-list grouping.
const (
	CategoryProduce = "produce"
	CategoryProtein = "protein"
	CategoryDairy   = "dairy"
	CategoryGrains  = "grains"
	CategoryPantry  = "pantry"
	CategoryOther   = "other"
)

// categoryOrder fixes the iteration order; the first list containing a
// matching keyword wins.
var categoryOrder = []string{
	CategoryProduce,
	CategoryProtein,
	CategoryDairy,
	CategoryGrains,
	CategoryPantry,
}

// categoryKeywords holds singular keywords checked by substring containment
// against the normalized name.
var categoryKeywords = map[string][]string{
	CategoryProduce: {
		"lettuce", "spinach", "kale", "arugula", "cabbage", "carrot", "celery",
		"onion", "garlic", "tomato", "potato", "broccoli", "cauliflower",
		"zucchini", "cucumber", "mushroom", "avocado", "bell pepper",
		"jalapeno", "green bean", "pea", "corn", "squash", "eggplant",
		"asparagus", "scallion", "shallot", "leek", "ginger", "cilantro",
		"parsley", "basil", "thyme", "rosemary", "dill", "mint", "chive",
		"lemon", "lime", "orange", "apple", "banana", "berry", "strawberry",
		"blueberry", "raspberry", "grape", "mango", "pineapple", "peach",
		"pear", "melon", "radish", "beet", "turnip", "sweet potato", "celeriac",
	},
	CategoryProtein: {
		"chicken", "beef", "steak", "pork", "bacon", "ham", "sausage",
		"turkey", "lamb", "fish", "salmon", "tuna", "cod", "tilapia",
		"shrimp", "prawn", "scallop", "crab", "egg", "tofu", "tempeh",
		"seitan", "lentil", "chickpea", "bean", "edamame",
	},
	CategoryDairy: {
		"milk", "cheese", "yogurt", "butter", "cream", "mozzarella",
		"parmesan", "cheddar", "feta", "ricotta", "mascarpone", "ghee",
		"half-and-half", "buttermilk",
	},
	CategoryGrains: {
		"flour", "rice", "pasta", "spaghetti", "macaroni", "noodle", "bread",
		"tortilla", "oat", "quinoa", "couscous", "barley", "farro", "cereal",
		"cracker", "breadcrumb", "panko", "bagel", "pita", "bun",
	},
	CategoryPantry: {
		"oil", "vinegar", "sugar", "honey", "maple syrup", "salt", "pepper",
		"cumin", "paprika", "cinnamon", "oregano", "chili powder", "curry",
		"turmeric", "vanilla", "soy sauce", "fish sauce", "worcestershire",
		"broth", "stock", "mustard", "ketchup", "mayonnaise", "salsa",
		"sauce", "paste", "peanut butter", "almond", "walnut", "pecan",
		"cashew", "nut", "seed", "sesame", "baking powder", "baking soda",
		"yeast", "cocoa", "chocolate", "raisin", "date", "wine", "caper",
		"olive", "coconut milk", "cornstarch",
	},
}

// Categorize assigns one of the shopping categories to a normalized name.
// Unmatched names fall through to "other".
func Categorize(name string) string {
	if name == "" {
		return CategoryOther
	}
	for _, category := range categoryOrder {
		for _, keyword := range categoryKeywords[category] {
			if strings.Contains(name, keyword) {
				return category
			}
		}
	}
	return CategoryOther
}

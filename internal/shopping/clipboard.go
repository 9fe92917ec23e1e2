package shopping

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"macro-meal-planner/internal/ingredient"
)

// FormatClipboard renders items grouped by category for pasting into a notes
// app. Categories are sorted alphabetically, one section each:
//
//	--- PRODUCE ---
//	[ ] garlic — 2 cloves
func FormatClipboard(items []ShoppingItem) string {
	byCategory := make(map[string][]ShoppingItem)
	for _, item := range items {
		byCategory[item.Category] = append(byCategory[item.Category], item)
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var sb strings.Builder
	for i, category := range categories {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "--- %s ---\n", strings.ToUpper(category))
		for _, item := range byCategory[category] {
			sb.WriteString(formatItem(item))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func formatItem(item ShoppingItem) string {
	box := "[ ]"
	if item.Checked {
		box = "[x]"
	}

	qty := strconv.FormatFloat(item.Quantity, 'f', -1, 64)

	unit := item.Unit
	if unit != "" && item.Quantity > 1 {
		unit = ingredient.PluralizeUnit(unit)
	}

	if unit == "" {
		return fmt.Sprintf("%s %s — %s", box, item.Name, qty)
	}
	return fmt.Sprintf("%s %s — %s %s", box, item.Name, qty, unit)
}

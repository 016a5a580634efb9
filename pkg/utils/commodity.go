package utils

import (
	"strings"
)

// Common regional names for commodities, mapped to the canonical key.
var commodityAliases = map[string]string{
	"gehun":        "wheat",
	"gehu":         "wheat",
	"dhan":         "paddy",
	"rice paddy":   "paddy",
	"chana":        "gram",
	"bengal gram":  "gram",
	"chickpea":     "gram",
	"arhar":        "tur",
	"tur dal":      "tur",
	"pigeon pea":   "tur",
	"soyabean":     "soybean",
	"soya bean":    "soybean",
	"kapas":        "cotton",
	"sarson":       "mustard",
	"rapeseed":     "mustard",
	"mustard seed": "mustard",
	"makka":        "maize",
	"makki":        "maize",
	"corn":         "maize",
	"moong":        "moong",
	"green gram":   "moong",
	"groundnut":    "groundnut",
	"moongphali":   "groundnut",
	"peanut":       "groundnut",
	"pyaz":         "onion",
	"aloo":         "potato",
}

// NormalizeCommodity normalizes a user-input commodity name to its
// canonical lowercase key. It handles aliases, case, and whitespace.
func NormalizeCommodity(name string) string {
	name = strings.ToLower(strings.Join(strings.Fields(name), " "))

	if canonical, ok := commodityAliases[name]; ok {
		return canonical
	}
	return name
}

// CommodityDisplayName returns a title-cased display name for a key.
// e.g., "mustard" → "Mustard", "green gram" → "Green Gram"
func CommodityDisplayName(key string) string {
	words := strings.Fields(key)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

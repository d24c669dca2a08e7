package shopping

import "strings"

// Uncategorized is the fallback category, also used when migrating items
// saved before categories existed.
const Uncategorized = "Uncategorized"

// DefaultCategories are the categories seeded into every new trip.
var DefaultCategories = []string{"Cosmetics", "Snacks", "Souvenirs", "Clothing", "Electronics"}

// Categorize returns a shopping category for the given item name.
// It performs case-insensitive matching: exact match first, then substring
// match. Falls back to Uncategorized if no match is found.
func Categorize(itemName string) string {
	name := strings.ToLower(strings.TrimSpace(itemName))
	if name == "" {
		return Uncategorized
	}

	if cat, ok := exactMatch[name]; ok {
		return cat
	}

	for _, entry := range substringMatches {
		if strings.Contains(name, entry.keyword) {
			return entry.category
		}
	}

	return Uncategorized
}

var exactMatch = map[string]string{
	// Cosmetics
	"sunscreen":   "Cosmetics",
	"face mask":   "Cosmetics",
	"sheet mask":  "Cosmetics",
	"sheet masks": "Cosmetics",
	"lip balm":    "Cosmetics",
	"lipstick":    "Cosmetics",
	"toner":       "Cosmetics",
	"serum":       "Cosmetics",
	"cushion":     "Cosmetics",
	"eye cream":   "Cosmetics",
	"hand cream":  "Cosmetics",
	"shampoo":     "Cosmetics",
	"perfume":     "Cosmetics",

	// Snacks
	"chocolate":  "Snacks",
	"chocolates": "Snacks",
	"candy":      "Snacks",
	"gum":        "Snacks",
	"chips":      "Snacks",
	"cookies":    "Snacks",
	"biscuits":   "Snacks",
	"ramen":      "Snacks",
	"instant noodles": "Snacks",
	"seaweed":    "Snacks",
	"mochi":      "Snacks",
	"kitkat":     "Snacks",
	"pocky":      "Snacks",

	// Souvenirs
	"magnet":    "Souvenirs",
	"magnets":   "Souvenirs",
	"postcard":  "Souvenirs",
	"postcards": "Souvenirs",
	"keychain":  "Souvenirs",
	"keychains": "Souvenirs",
	"fridge magnet": "Souvenirs",

	// Clothing
	"socks":    "Clothing",
	"t-shirt":  "Clothing",
	"tshirt":   "Clothing",
	"hoodie":   "Clothing",
	"hat":      "Clothing",
	"cap":      "Clothing",
	"scarf":    "Clothing",
	"gloves":   "Clothing",
	"sneakers": "Clothing",

	// Electronics
	"adapter":    "Electronics",
	"charger":    "Electronics",
	"power bank": "Electronics",
	"powerbank":  "Electronics",
	"earphones":  "Electronics",
	"headphones": "Electronics",
	"sd card":    "Electronics",
	"camera":     "Electronics",
}

// Ordered with longer, more specific keywords first so that e.g.
// "travel adapter" matches before "travel".
var substringMatches = []struct {
	keyword  string
	category string
}{
	{"sunscreen", "Cosmetics"},
	{"moisturizer", "Cosmetics"},
	{"cleanser", "Cosmetics"},
	{"essence", "Cosmetics"},
	{"mascara", "Cosmetics"},
	{"skincare", "Cosmetics"},
	{"cosmetic", "Cosmetics"},
	{"makeup", "Cosmetics"},
	{"cream", "Cosmetics"},
	{"mask", "Cosmetics"},

	{"chocolate", "Snacks"},
	{"cookie", "Snacks"},
	{"biscuit", "Snacks"},
	{"cracker", "Snacks"},
	{"noodle", "Snacks"},
	{"candy", "Snacks"},
	{"snack", "Snacks"},
	{"tea", "Snacks"},
	{"coffee", "Snacks"},
	{"sake", "Snacks"},
	{"whisky", "Snacks"},

	{"souvenir", "Souvenirs"},
	{"postcard", "Souvenirs"},
	{"keychain", "Souvenirs"},
	{"magnet", "Souvenirs"},
	{"figurine", "Souvenirs"},
	{"plush", "Souvenirs"},

	{"shirt", "Clothing"},
	{"jacket", "Clothing"},
	{"pants", "Clothing"},
	{"jeans", "Clothing"},
	{"dress", "Clothing"},
	{"shoes", "Clothing"},
	{"bag", "Clothing"},

	{"charger", "Electronics"},
	{"adapter", "Electronics"},
	{"battery", "Electronics"},
	{"cable", "Electronics"},
	{"usb", "Electronics"},
	{"phone", "Electronics"},
	{"console", "Electronics"},
	{"game", "Electronics"},
}

package shopping

import "testing"

func TestCategorizeExactMatch(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Sunscreen", "Cosmetics"},
		{"sheet masks", "Cosmetics"},
		{"KitKat", "Snacks"},
		{"pocky", "Snacks"},
		{"Postcards", "Souvenirs"},
		{"socks", "Clothing"},
		{"power bank", "Electronics"},
	}
	for _, tt := range tests {
		if got := Categorize(tt.name); got != tt.want {
			t.Errorf("Categorize(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestCategorizeSubstringMatch(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"matcha chocolate box", "Snacks"},
		{"hydrating face cream", "Cosmetics"},
		{"USB-C travel adapter", "Electronics"},
		{"baseball shirt", "Clothing"},
		{"station keychain set", "Souvenirs"},
	}
	for _, tt := range tests {
		if got := Categorize(tt.name); got != tt.want {
			t.Errorf("Categorize(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestCategorizeFallback(t *testing.T) {
	if got := Categorize("mystery box"); got != Uncategorized {
		t.Errorf("Categorize(mystery box) = %q, want %q", got, Uncategorized)
	}
	if got := Categorize("   "); got != Uncategorized {
		t.Errorf("Categorize(blank) = %q, want %q", got, Uncategorized)
	}
}

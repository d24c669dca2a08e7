package model

import "github.com/google/uuid"

// ShoppingItem is an entry on the trip's shopping checklist. The id is
// generated once at creation and never changes.
type ShoppingItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsBought bool   `json:"isBought"`
	Category string `json:"category"`
	Owner    string `json:"owner"`
}

// NewShoppingItemID returns a fresh shopping item identifier.
func NewShoppingItemID() string {
	return uuid.NewString()
}

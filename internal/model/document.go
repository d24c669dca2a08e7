package model

// TripDocument is the wire form of a trip in the remote document store.
// Pointer fields distinguish "absent" from "present but empty": when a
// document is applied locally, every present field replaces the matching
// in-memory field wholesale and absent fields are left untouched.
//
// The JSON keys are the shared document format and must not change without
// migrating every collaborator.
type TripDocument struct {
	Days               *[]DayPlan      `json:"days,omitempty"`
	Expenses           *[]Expense      `json:"expenses,omitempty"`
	ShoppingList       *[]ShoppingItem `json:"shoppingList,omitempty"`
	Setup              *SetupConfig    `json:"setup,omitempty"`
	Participants       *[]string       `json:"participants,omitempty"`
	ShoppingCategories *[]string       `json:"shoppingCategories,omitempty"`
	ExchangeRate       *float64        `json:"exchangeRate,omitempty"`

	// LastUpdated is a unix-millisecond server timestamp; UpdatedBy the
	// anonymous actor id of the writer. Both are write-tagging only.
	LastUpdated int64  `json:"lastUpdated,omitempty"`
	UpdatedBy   string `json:"updatedBy,omitempty"`
}

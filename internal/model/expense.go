package model

// Expense is a shared cost paid by one participant on behalf of the group.
// Settled expenses stay in the list for history but are excluded from the
// outstanding-balance computation.
type Expense struct {
	Item      string  `json:"item"`
	Amount    float64 `json:"amount"`
	Payer     string  `json:"payer"`
	IsSettled bool    `json:"isSettled,omitempty"`
}

// Transfer is a single settle-up instruction. It is derived for display and
// never stored.
type Transfer struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

package domain

import "github.com/shopspring/decimal"

// Account is a user's cash record on the ledger. IDs are 1-based and
// contiguous in creation order.
type Account struct {
	ID        int64
	FirstName string
	LastName  string
	UserName  string
	Password  string
	Cash      decimal.Decimal
}

// NewAccount carries the fields needed to create an account.
type NewAccount struct {
	FirstName      string
	LastName       string
	UserName       string
	Password       string
	InitialBalance decimal.Decimal
}

// Holding is the quantity of one symbol owned by one account. A zero
// quantity is never stored; it means the holding does not exist.
type Holding struct {
	Symbol   string
	Quantity decimal.Decimal
}

// DemoAccounts is the account set seeded into an empty ledger.
func DemoAccounts() []NewAccount {
	start := decimal.NewFromInt(1000)
	return []NewAccount{
		{FirstName: "Ada", LastName: "Lovelace", UserName: "ada", Password: "ada", InitialBalance: start},
		{FirstName: "Alan", LastName: "Turing", UserName: "alan", Password: "alan", InitialBalance: start},
		{FirstName: "Grace", LastName: "Hopper", UserName: "grace", Password: "grace", InitialBalance: start},
	}
}

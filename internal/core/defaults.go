package core

var (
	defaultExpenseCategories = []string{
		"Electric Bills",
		"Groceries",
		"Rent / Mortgage",
		"Transport",
		"Entertainment",
		"Dining Out",
		"Subscriptions",
		"Healthcare",
		"Shopping",
		"Utilities",
	}
	defaultIncomeCategories = []string{
		"Salary",
		"Other",
	}
)

// DefaultCategories returns the categories a fresh ledger starts with.
func DefaultCategories() []Category {
	out := make([]Category, 0, len(defaultExpenseCategories)+len(defaultIncomeCategories))
	for _, name := range defaultExpenseCategories {
		out = append(out, Category{Name: name, Kind: Expense})
	}
	for _, name := range defaultIncomeCategories {
		out = append(out, Category{Name: name, Kind: Income})
	}
	return out
}

package entity

// Expense type codes seeded by the initial migration
const (
	ExpenseTypeLodging        int64 = 1
	ExpenseTypeAirfare        int64 = 2
	ExpenseTypeMeals          int64 = 3
	ExpenseTypeGroundTransfer int64 = 4
	ExpenseTypeFuel           int64 = 5
	ExpenseTypeOther          int64 = 6
)

// IsKnownExpenseType reports whether id is one of the seeded expense types
func IsKnownExpenseType(id int64) bool {
	return id >= ExpenseTypeLodging && id <= ExpenseTypeOther
}

package core

// Account categories offered to users when recording an expense.
const (
	CategoryMaintenance = "Maintenance Expenses"
	CategoryStaff       = "Staff Payments"
	CategoryPurchases   = "Purchases"
	CategoryCashFlow    = "Cash Flow / Credit Transactions"
)

// CategoryGroup is one account category and its subcategories.
type CategoryGroup struct {
	Category      string   `json:"category"`
	Subcategories []string `json:"subcategories"`
}

var taxonomy = []CategoryGroup{
	{CategoryMaintenance, []string{"MAINT-CIV", "MAINT-ELE", "MAINT-STP", "MAINT-GEN", "MAINT-HK", "MAINT-CLB"}},
	{CategoryStaff, []string{"SAL-INT", "SAL-EXT", "SAL-BONUS", "SAL-CONV"}},
	{CategoryPurchases, []string{"PUR-MTRL", "PUR-ELEC", "PUR-GARD", "PUR-OFF", "PUR-HK", "PUR-WATER", "PUR-PRINT"}},
	{CategoryCashFlow, []string{"CASH-WD", "CASH-CR", "CREDIT"}},
}

// Taxonomy returns a copy of the fixed two-level category list.
func Taxonomy() []CategoryGroup {
	out := make([]CategoryGroup, len(taxonomy))
	for i, g := range taxonomy {
		out[i] = CategoryGroup{
			Category:      g.Category,
			Subcategories: append([]string(nil), g.Subcategories...),
		}
	}
	return out
}

// Categories returns the account categories in display order.
func Categories() []string {
	out := make([]string, len(taxonomy))
	for i, g := range taxonomy {
		out[i] = g.Category
	}
	return out
}

// Subcategories returns the subcategories of category, or nil if the
// category is unknown.
func Subcategories(category string) []string {
	for _, g := range taxonomy {
		if g.Category == category {
			return append([]string(nil), g.Subcategories...)
		}
	}
	return nil
}

// ValidatePair checks a category and, unless empty, its subcategory.
func ValidatePair(category, subcategory string) error {
	subs := Subcategories(category)
	if subs == nil {
		return ErrUnknownCategory
	}
	if subcategory == "" {
		return nil
	}
	for _, s := range subs {
		if s == subcategory {
			return nil
		}
	}
	return ErrUnknownSubcategory
}

package domain

// Category is one of the canonical spend/income classifications.
type Category string

const (
	CategoryClothes        Category = "clothes"
	CategoryEducation      Category = "education"
	CategoryEntertainment  Category = "entertainment"
	CategoryFood           Category = "food"
	CategoryGift           Category = "gift"
	CategoryHealth         Category = "health"
	CategoryHome           Category = "home"
	CategoryTaxes          Category = "taxes"
	CategoryVehicle        Category = "vehicle"
	CategorySolidarity     Category = "solidarity"
	CategorySaving         Category = "saving"
	CategoryRestaurant     Category = "restaurant"
	CategoryPublicServices Category = "public_services"
	CategoryLoan           Category = "loan"
	CategoryParents        Category = "parents"
	CategoryPassiveIncome  Category = "passive_income"
	CategorySalary         Category = "salary"
	CategoryPension        Category = "pension"
	CategoryTransport      Category = "transport"
	CategoryInsurance      Category = "insurance"
	CategoryOther          Category = "other"
)

var categories = []Category{
	CategoryClothes,
	CategoryEducation,
	CategoryEntertainment,
	CategoryFood,
	CategoryGift,
	CategoryHealth,
	CategoryHome,
	CategoryTaxes,
	CategoryVehicle,
	CategorySolidarity,
	CategorySaving,
	CategoryRestaurant,
	CategoryPublicServices,
	CategoryLoan,
	CategoryParents,
	CategoryPassiveIncome,
	CategorySalary,
	CategoryPension,
	CategoryTransport,
	CategoryInsurance,
	CategoryOther,
}

var categorySet = func() map[Category]bool {
	m := make(map[Category]bool, len(categories))
	for _, c := range categories {
		m[c] = true
	}
	return m
}()

// Categories returns the canonical categories in declaration order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Valid reports whether c belongs to the canonical set.
func (c Category) Valid() bool {
	return categorySet[c]
}

package normalize

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/dvloznov/pfm-ledger/internal/domain"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// categoryLabels maps folded Spanish and English labels to canonical
// categories. Canonical names themselves are added at init.
var categoryLabels = map[string]domain.Category{
	"ropa":      domain.CategoryClothes,
	"vestuario": domain.CategoryClothes,
	"clothing":  domain.CategoryClothes,

	"educacion":   domain.CategoryEducation,
	"estudio":     domain.CategoryEducation,
	"colegio":     domain.CategoryEducation,
	"universidad": domain.CategoryEducation,

	"entretenimiento": domain.CategoryEntertainment,
	"diversion":       domain.CategoryEntertainment,
	"ocio":            domain.CategoryEntertainment,

	"comida":       domain.CategoryFood,
	"alimentacion": domain.CategoryFood,
	"alimentos":    domain.CategoryFood,
	"mercado":      domain.CategoryFood,
	"groceries":    domain.CategoryFood,

	"regalo":  domain.CategoryGift,
	"regalos": domain.CategoryGift,
	"gifts":   domain.CategoryGift,

	"salud":    domain.CategoryHealth,
	"medicina": domain.CategoryHealth,

	"hogar":    domain.CategoryHome,
	"casa":     domain.CategoryHome,
	"arriendo": domain.CategoryHome,
	"vivienda": domain.CategoryHome,
	"housing":  domain.CategoryHome,

	"impuestos": domain.CategoryTaxes,
	"impuesto":  domain.CategoryTaxes,
	"tax":       domain.CategoryTaxes,

	"vehiculo": domain.CategoryVehicle,
	"carro":    domain.CategoryVehicle,
	"moto":     domain.CategoryVehicle,
	"gasolina": domain.CategoryVehicle,
	"car":      domain.CategoryVehicle,

	"solidaridad": domain.CategorySolidarity,
	"donacion":    domain.CategorySolidarity,
	"donaciones":  domain.CategorySolidarity,
	"charity":     domain.CategorySolidarity,

	"ahorro":  domain.CategorySaving,
	"ahorros": domain.CategorySaving,
	"savings": domain.CategorySaving,

	"restaurante":  domain.CategoryRestaurant,
	"restaurantes": domain.CategoryRestaurant,
	"domicilios":   domain.CategoryRestaurant,

	"servicios publicos": domain.CategoryPublicServices,
	"servicios":          domain.CategoryPublicServices,
	"utilities":          domain.CategoryPublicServices,

	"prestamo":  domain.CategoryLoan,
	"prestamos": domain.CategoryLoan,
	"credito":   domain.CategoryLoan,
	"deuda":     domain.CategoryLoan,

	"padres": domain.CategoryParents,
	"papas":  domain.CategoryParents,

	"ingreso pasivo":   domain.CategoryPassiveIncome,
	"ingresos pasivos": domain.CategoryPassiveIncome,
	"rendimientos":     domain.CategoryPassiveIncome,
	"intereses":        domain.CategoryPassiveIncome,

	"salario": domain.CategorySalary,
	"sueldo":  domain.CategorySalary,
	"nomina":  domain.CategorySalary,

	"pension":   domain.CategoryPension,
	"pensiones": domain.CategoryPension,

	"transporte": domain.CategoryTransport,
	"taxi":       domain.CategoryTransport,
	"bus":        domain.CategoryTransport,

	"seguro":  domain.CategoryInsurance,
	"seguros": domain.CategoryInsurance,

	"otro":  domain.CategoryOther,
	"otros": domain.CategoryOther,
	"misc":  domain.CategoryOther,
}

// typeLabels maps folded type labels to canonical types. "expensive" is the
// label used by the legacy ledger file.
var typeLabels = map[string]domain.Type{
	"income":    domain.TypeIncome,
	"ingreso":   domain.TypeIncome,
	"ingresos":  domain.TypeIncome,
	"entrada":   domain.TypeIncome,
	"expense":   domain.TypeExpense,
	"expenses":  domain.TypeExpense,
	"expensive": domain.TypeExpense,
	"gasto":     domain.TypeExpense,
	"gastos":    domain.TypeExpense,
	"egreso":    domain.TypeExpense,
	"egresos":   domain.TypeExpense,
	"salida":    domain.TypeExpense,
}

func init() {
	for _, c := range domain.Categories() {
		categoryLabels[Fold(string(c))] = c
	}
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lower-cases s, removes accents, turns "_" and "-" into blanks and
// collapses runs of whitespace. It is the key function for every label table.
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = strings.Map(func(r rune) rune {
		if r == '_' || r == '-' {
			return ' '
		}
		return r
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}

// MapCategory resolves a free-text label to a canonical category. Unknown
// labels resolve to CategoryOther with needsConfirmation set.
func MapCategory(label string) (category domain.Category, needsConfirmation bool) {
	if c, ok := categoryLabels[Fold(label)]; ok {
		return c, false
	}
	return domain.CategoryOther, true
}

// LookupCategory is MapCategory without the fallback.
func LookupCategory(label string) (domain.Category, bool) {
	c, ok := categoryLabels[Fold(label)]
	return c, ok
}

// NormalizeType resolves a type label, including the "expensive" and Spanish
// synonyms, to a canonical type.
func NormalizeType(raw string) (domain.Type, error) {
	if t, ok := typeLabels[Fold(raw)]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q want income or expense", domain.ErrInvalidType, raw)
}

// NormalizeConcept returns the key under which receipt concepts are grouped.
func NormalizeConcept(raw string) string {
	return Fold(raw)
}

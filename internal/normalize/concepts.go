package normalize

import "github.com/dvloznov/pfm-ledger/internal/domain"

// ConceptMapping is the canonical classification of a payslip concept.
type ConceptMapping struct {
	Category domain.Category
	Type     domain.Type
}

// receiptConcepts maps folded payslip/receipt concepts to their
// classification. Keys must already be folded (see Fold).
var receiptConcepts = map[string]ConceptMapping{
	// earnings
	"sueldo basico":           {domain.CategorySalary, domain.TypeIncome},
	"sueldo":                  {domain.CategorySalary, domain.TypeIncome},
	"salario":                 {domain.CategorySalary, domain.TypeIncome},
	"salario basico":          {domain.CategorySalary, domain.TypeIncome},
	"salario integral":        {domain.CategorySalary, domain.TypeIncome},
	"auxilio de transporte":   {domain.CategorySalary, domain.TypeIncome},
	"auxilio de conectividad": {domain.CategorySalary, domain.TypeIncome},
	"horas extras":            {domain.CategorySalary, domain.TypeIncome},
	"recargo nocturno":        {domain.CategorySalary, domain.TypeIncome},
	"bonificacion":            {domain.CategorySalary, domain.TypeIncome},
	"prima de servicios":      {domain.CategorySalary, domain.TypeIncome},
	"prima":                   {domain.CategorySalary, domain.TypeIncome},
	"vacaciones":              {domain.CategorySalary, domain.TypeIncome},
	"comisiones":              {domain.CategorySalary, domain.TypeIncome},
	"cesantias":               {domain.CategorySaving, domain.TypeIncome},
	"intereses de cesantias":  {domain.CategoryPassiveIncome, domain.TypeIncome},
	"mesada pensional":        {domain.CategoryPension, domain.TypeIncome},

	// deductions
	"retencion en la fuente":         {domain.CategoryTaxes, domain.TypeExpense},
	"retefuente":                     {domain.CategoryTaxes, domain.TypeExpense},
	"salud":                          {domain.CategoryHealth, domain.TypeExpense},
	"aporte salud":                   {domain.CategoryHealth, domain.TypeExpense},
	"aporte a salud":                 {domain.CategoryHealth, domain.TypeExpense},
	"eps":                            {domain.CategoryHealth, domain.TypeExpense},
	"medicina prepagada":             {domain.CategoryHealth, domain.TypeExpense},
	"pension":                        {domain.CategoryPension, domain.TypeExpense},
	"aporte pension":                 {domain.CategoryPension, domain.TypeExpense},
	"aporte a pension":               {domain.CategoryPension, domain.TypeExpense},
	"fondo de pensiones":             {domain.CategoryPension, domain.TypeExpense},
	"pension voluntaria":             {domain.CategorySaving, domain.TypeExpense},
	"fondo de solidaridad pensional": {domain.CategorySolidarity, domain.TypeExpense},
	"fondo de solidaridad":           {domain.CategorySolidarity, domain.TypeExpense},
	"libranza":                       {domain.CategoryLoan, domain.TypeExpense},
	"prestamo":                       {domain.CategoryLoan, domain.TypeExpense},
	"credito":                        {domain.CategoryLoan, domain.TypeExpense},
	"ahorro":                         {domain.CategorySaving, domain.TypeExpense},
	"ahorro voluntario":              {domain.CategorySaving, domain.TypeExpense},
	"fondo de empleados":             {domain.CategorySaving, domain.TypeExpense},
	"cuenta afc":                     {domain.CategorySaving, domain.TypeExpense},
	"seguro de vida":                 {domain.CategoryInsurance, domain.TypeExpense},
	"poliza":                         {domain.CategoryInsurance, domain.TypeExpense},
}

// MapConcept classifies a receipt concept. Concepts missing from the receipt
// table fall back to the category label table with no expected type; anything
// else resolves to CategoryOther with needsConfirmation set.
func MapConcept(concept string) (m ConceptMapping, needsConfirmation bool) {
	key := Fold(concept)
	if m, ok := receiptConcepts[key]; ok {
		return m, false
	}
	if c, ok := categoryLabels[key]; ok {
		return ConceptMapping{Category: c}, false
	}
	return ConceptMapping{Category: domain.CategoryOther}, true
}

package normalize

import (
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    civil.Date
		wantErr bool
	}{
		{name: "iso", input: "2024-03-05", want: civil.Date{Year: 2024, Month: 3, Day: 5}},
		{name: "iso single digits", input: "2024-3-5", want: civil.Date{Year: 2024, Month: 3, Day: 5}},
		{name: "day first", input: "03/04/2025", want: civil.Date{Year: 2025, Month: 4, Day: 3}},
		{name: "surrounding blanks", input: "  2024-12-31 ", want: civil.Date{Year: 2024, Month: 12, Day: 31}},
		{name: "leap day", input: "29/02/2024", want: civil.Date{Year: 2024, Month: 2, Day: 29}},
		{name: "not a leap year", input: "2023-02-29", wantErr: true},
		{name: "month out of range", input: "2024-13-01", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "month first text", input: "March 5, 2024", wantErr: true},
		{name: "dashes day first", input: "05-03-2024", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidDate) {
					t.Errorf("ParseDate(%q) err = %v, want ErrInvalidDate", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if again, err := ParseDate(FormatDate(got)); err != nil || again != got {
				t.Errorf("FormatDate round trip = %v, %v", again, err)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "thousands", input: "3.000.000", want: "3000000"},
		{name: "decimal comma", input: "1.234,50", want: "1234.5"},
		{name: "currency symbol", input: "$ 45.000", want: "45000"},
		{name: "plain", input: "200000", want: "200000"},
		{name: "zero", input: "0", want: "0"},
		{name: "letters", input: "12a", wantErr: true},
		{name: "negative", input: "-5", wantErr: true},
		{name: "two commas", input: "1,2,3", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidAmount) {
					t.Errorf("ParseAmount(%q) err = %v, want ErrInvalidAmount", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tt.input, err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestParsePositiveAmount_RejectsZero(t *testing.T) {
	if _, err := ParsePositiveAmount("0"); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("err = %v, want ErrInvalidAmount", err)
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"999", "999"},
		{"1000", "1.000"},
		{"3000000", "3.000.000"},
		{"1234.5", "1.234,5"},
		{"-200000", "-200.000"},
	}

	for _, tt := range tests {
		d := decimal.RequireFromString(tt.in)
		if got := FormatAmount(d); got != tt.want {
			t.Errorf("FormatAmount(%s) = %q, want %q", tt.in, got, tt.want)
		}
		if d.IsNegative() {
			continue
		}
		back, err := ParseAmount(FormatAmount(d))
		if err != nil || !back.Equal(d) {
			t.Errorf("round trip of %s = %s, %v", tt.in, back, err)
		}
	}
}

func TestNormalizeCurrency(t *testing.T) {
	tests := []struct {
		raw      string
		fallback string
		want     string
		wantErr  bool
	}{
		{raw: "usd", fallback: "COP", want: "USD"},
		{raw: "", fallback: "COP", want: "COP"},
		{raw: " eur ", fallback: "COP", want: "EUR"},
		{raw: "XYZ", fallback: "COP", wantErr: true},
	}

	for _, tt := range tests {
		got, err := NormalizeCurrency(tt.raw, tt.fallback)
		if tt.wantErr {
			if !errors.Is(err, domain.ErrInvalidCurrency) {
				t.Errorf("NormalizeCurrency(%q) err = %v, want ErrInvalidCurrency", tt.raw, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("NormalizeCurrency(%q) = %q, %v, want %q", tt.raw, got, err, tt.want)
		}
	}
}

func TestMapCategory(t *testing.T) {
	tests := []struct {
		label       string
		want        domain.Category
		wantConfirm bool
	}{
		{"comida", domain.CategoryFood, false},
		{"Educación", domain.CategoryEducation, false},
		{"  SALUD ", domain.CategoryHealth, false},
		{"public_services", domain.CategoryPublicServices, false},
		{"Public Services", domain.CategoryPublicServices, false},
		{"salario", domain.CategorySalary, false},
		{"something new", domain.CategoryOther, true},
		{"", domain.CategoryOther, true},
	}

	for _, tt := range tests {
		got, confirm := MapCategory(tt.label)
		if got != tt.want || confirm != tt.wantConfirm {
			t.Errorf("MapCategory(%q) = %s, %v, want %s, %v", tt.label, got, confirm, tt.want, tt.wantConfirm)
		}
	}
}

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		raw     string
		want    domain.Type
		wantErr bool
	}{
		{raw: "income", want: domain.TypeIncome},
		{raw: "Ingreso", want: domain.TypeIncome},
		{raw: "Expensive", want: domain.TypeExpense},
		{raw: "GASTO", want: domain.TypeExpense},
		{raw: "transfer", wantErr: true},
	}

	for _, tt := range tests {
		got, err := NormalizeType(tt.raw)
		if tt.wantErr {
			if !errors.Is(err, domain.ErrInvalidType) {
				t.Errorf("NormalizeType(%q) err = %v, want ErrInvalidType", tt.raw, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("NormalizeType(%q) = %q, %v, want %q", tt.raw, got, err, tt.want)
		}
	}
}

func TestMapConcept(t *testing.T) {
	tests := []struct {
		concept     string
		want        ConceptMapping
		wantConfirm bool
	}{
		{"Sueldo Básico", ConceptMapping{domain.CategorySalary, domain.TypeIncome}, false},
		{"RETENCIÓN EN LA FUENTE", ConceptMapping{domain.CategoryTaxes, domain.TypeExpense}, false},
		{"mercado", ConceptMapping{Category: domain.CategoryFood}, false},
		{"Descuento libranza xyz", ConceptMapping{Category: domain.CategoryOther}, true},
	}

	for _, tt := range tests {
		got, confirm := MapConcept(tt.concept)
		if got != tt.want || confirm != tt.wantConfirm {
			t.Errorf("MapConcept(%q) = %+v, %v, want %+v, %v", tt.concept, got, confirm, tt.want, tt.wantConfirm)
		}
	}
}

func TestFold(t *testing.T) {
	if got := Fold("  Ñoño_Crédito-Plus  "); got != "nono credito plus" {
		t.Errorf("Fold = %q", got)
	}
	if NormalizeConcept("Sueldo  básico") != NormalizeConcept("SUELDO BASICO") {
		t.Error("concept keys differ")
	}
}

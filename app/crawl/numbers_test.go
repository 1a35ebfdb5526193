package crawl

import "testing"

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"$ 2.500.000", 2500000, true},
		{"$2,500,000.00", 2500000, true},
		{"COP 1.800.000,00 / mes", 1800000, true},
		{"0", 0, true},
		{"Consultar", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got := parseAmount(tt.in)
		if (got != nil) != tt.ok || (got != nil && *got != tt.want) {
			t.Errorf("parseAmount(%q) = %v, want %v (ok=%v)", tt.in, got, tt.want, tt.ok)
		}
	}
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"70 m²", 70, true},
		{"70,5 m²", 70.5, true},
		{"85.25 m2", 85.25, true},
		{"1.200 m2", 1200, true},
		{"Área: n/a", 0, false},
	}

	for _, tt := range tests {
		got := parseDecimal(tt.in)
		if (got != nil) != tt.ok || (got != nil && *got != tt.want) {
			t.Errorf("parseDecimal(%q) = %v, want %v (ok=%v)", tt.in, got, tt.want, tt.ok)
		}
	}
}

func TestParseCount(t *testing.T) {
	if got := parseCount("3 alcobas"); got == nil || *got != 3 {
		t.Errorf("Expected 3, got %v", got)
	}
	if got := parseCount("0 baños"); got == nil || *got != 0 {
		t.Errorf("Expected an explicit zero, got %v", got)
	}
	if got := parseCount("baños"); got != nil {
		t.Errorf("Expected unknown, got %v", *got)
	}
}

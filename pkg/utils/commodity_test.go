package utils

import "testing"

func TestNormalizeCommodity(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"wheat", "wheat"},
		{"  Wheat ", "wheat"},
		{"GEHUN", "wheat"},
		{"Chana", "gram"},
		{"soyabean", "soybean"},
		{"Mustard   Seed", "mustard"},
		{"kapas", "cotton"},
		{"barley", "barley"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeCommodity(tt.input); got != tt.expected {
				t.Errorf("NormalizeCommodity(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCommodityDisplayName(t *testing.T) {
	if got := CommodityDisplayName("green gram"); got != "Green Gram" {
		t.Errorf("CommodityDisplayName = %q, want %q", got, "Green Gram")
	}
	if got := CommodityDisplayName(""); got != "" {
		t.Errorf("CommodityDisplayName(\"\") = %q, want empty", got)
	}
}

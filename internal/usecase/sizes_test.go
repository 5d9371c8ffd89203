package usecase

import (
	"testing"
)

func TestParseSizes(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Size
	}{
		{"grams", "Acme Soap 250g pack", []Size{{250, "g"}}},
		{"kilograms normalized", "Rice 2kg bag", []Size{{2000, "g"}}},
		{"milliliters", "Cola 330ml can", []Size{{330, "ml"}}},
		{"liters normalized", "Milk 1.5L bottle", []Size{{1500, "ml"}}},
		{"litre spelling", "Juice 2 litre", []Size{{2000, "ml"}}},
		{"comma decimal", "Oil 0,75l", []Size{{750, "ml"}}},
		{"multiple sizes", "Soap 250g or 500g multipack", []Size{{250, "g"}, {500, "g"}}},
		{"no size", "Acme Soap original", nil},
		{"unit needs boundary", "glitter 5groove", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSizes(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseSizes(%q) = %v, want %v", tt.text, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("size %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSizesConflict(t *testing.T) {
	tests := []struct {
		name      string
		itemValue float64
		itemUnit  string
		text      string
		want      bool
	}{
		{"exact match", 250, "g", "Acme Soap 250g", false},
		{"within tolerance", 250, "g", "Acme Soap 260g", false},
		{"beyond tolerance", 250, "g", "Acme Soap 500g", true},
		{"kg vs g normalized", 2000, "g", "Rice 2kg", false},
		{"no size in text is neutral", 250, "g", "Acme Soap family pack", false},
		{"different unit class is neutral", 250, "g", "Acme Wash 250ml", false},
		{"item without size is neutral", 0, "", "Soap 500g", false},
		{"one of several sizes matches", 500, "g", "available as 250g and 500g", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SizesConflict(tt.itemValue, tt.itemUnit, tt.text, 10)
			if got != tt.want {
				t.Errorf("SizesConflict(%v %s, %q) = %v, want %v", tt.itemValue, tt.itemUnit, tt.text, got, tt.want)
			}
		})
	}
}

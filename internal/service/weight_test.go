package service

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNetWeightTonnes(t *testing.T) {
	tests := []struct {
		name   string
		weight decimal.NullDecimal
		want   string
	}{
		{"absent", decimal.NullDecimal{}, "0"},
		{"zero", kg(0), "0"},
		{"whole tonnes", kg(2000), "2"},
		{"fractional", kg(1250), "1.25"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NetWeightTonnes(tt.weight).String(); got != tt.want {
				t.Errorf("NetWeightTonnes() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBillableTonnes_MissingWeightBillsOneTonne(t *testing.T) {
	if got := billableTonnes(decimal.NullDecimal{}); !got.Equal(decimal.NewFromInt(1)) {
		t.Errorf("billableTonnes(absent) = %s, want 1", got)
	}
	if got := billableTonnes(kg(0)); !got.IsZero() {
		t.Errorf("billableTonnes(0) = %s, want 0", got)
	}
	if got := billableTonnes(kg(3500)); got.String() != "3.5" {
		t.Errorf("billableTonnes(3500) = %s, want 3.5", got)
	}
}

package service

import "github.com/shopspring/decimal"

var kgPerTonne = decimal.NewFromInt(1000)

// NetWeightTonnes converts a kg weight to tonnes; a missing weight reads as zero.
func NetWeightTonnes(netWeight decimal.NullDecimal) decimal.Decimal {
	if !netWeight.Valid || netWeight.Decimal.IsZero() {
		return decimal.Zero
	}
	return netWeight.Decimal.Div(kgPerTonne)
}

// billableTonnes is the invoice quantity of a bill-on-weight line.
// A missing weight bills as one tonne.
func billableTonnes(netWeight decimal.NullDecimal) decimal.Decimal {
	if !netWeight.Valid {
		return decimal.NewFromInt(1)
	}
	return netWeight.Decimal.Div(kgPerTonne)
}

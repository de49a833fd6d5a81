package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseBRL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.234,56", "1234.56"},
		{"50,00", "50"},
		{"0,00", "0"},
		{" 12,5 ", "12.5"},
		{"1.000.000", "1000000"},
		{"-3,10", "-3.1"},
		{"abc", "0"},
		{"", "0"},
		{"12,34,56", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseBRL(tt.in)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "ParseBRL(%q) = %s", tt.in, got)
		})
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"50,00", true},
		{"0,01", true},
		{"0,005", true},
		{"0,004", false},
		{"0,001", false},
		{"0,00", false},
		{"-3,10", false},
		{"9.999.999.999,99", true},
		{"9.999.999.999,995", false},
		{"99.999.999.999,00", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(ParseBRL(tt.in)))
		})
	}
}

func TestCents(t *testing.T) {
	assert.Equal(t, "0.01", Cents(ParseBRL("0,005")).StringFixed(2))
	assert.True(t, Cents(ParseBRL("0,001")).IsZero())
	assert.Equal(t, "10.01", Cents(decimal.RequireFromString("10.005")).String())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "R$ 50.00", Format(decimal.RequireFromString("50")))
	assert.Equal(t, "R$ 1234.56", Format(ParseBRL("1.234,56")))
	assert.Equal(t, "R$ 0.00", Format(decimal.Zero))
}

func TestFormatInput(t *testing.T) {
	assert.Equal(t, "1234,56", FormatInput(decimal.RequireFromString("1234.56")))
	assert.Equal(t, "0,00", FormatInput(decimal.Zero))
}

package money

import (
	"fmt"
	"strings"
)

// symbols maps ISO currency codes to display symbols. Codes without an
// entry are rendered as the code itself.
var symbols = map[string]string{
	"VND": "₫",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CNY": "¥",
	"KRW": "₩",
	"UAH": "₴",
	"RUB": "₽",
}

// Format renders an amount with a thousands separator and the currency
// symbol for the given code, e.g. Format(165000, "VND") -> "165 000 ₫".
func Format(amount float64, code string) string {
	return FormatDecimals(amount, code, 0)
}

// FormatDecimals is Format with explicit decimal places.
func FormatDecimals(amount float64, code string, decimals int) string {
	s := fmt.Sprintf("%.*f", decimals, amount)

	// Group the integer part with spaces when the amount exceeds 1000.
	if amount > 1000 {
		intPart := s
		fracPart := ""
		if i := strings.IndexByte(s, '.'); i >= 0 {
			intPart, fracPart = s[:i], s[i:]
		}
		s = group(intPart) + fracPart
	}

	symbol, ok := symbols[code]
	if !ok {
		symbol = code
	}
	return s + " " + symbol
}

func group(digits string) string {
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

package types

import "strings"

// currencySymbols maps ISO 4217 codes to their display symbol
var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"AUD": "AU$",
	"CAD": "CA$",
	"CHF": "CHF",
	"SEK": "kr",
	"NZD": "NZ$",
	"HKD": "HK$",
	"SGD": "S$",
	"JPY": "¥",
	"CNY": "¥",
	"INR": "₹",
	"BRL": "R$",
	"MXN": "MX$",
	"KRW": "₩",
	"TRY": "₺",
	"ZAR": "R",
	"MYR": "RM",
}

// NormalizeCurrency upper-cases a currency code so that "eur" and "EUR"
// compare equal
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func IsKnownCurrency(code string) bool {
	_, ok := currencySymbols[NormalizeCurrency(code)]
	return ok
}

// GetCurrencySymbol returns the symbol for a given currency code
// if the code is not found, it returns the code itself
func GetCurrencySymbol(code string) string {
	if symbol, ok := currencySymbols[NormalizeCurrency(code)]; ok {
		return symbol
	}
	return code
}

package vat

import "github.com/shopspring/decimal"

func rate(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// StandardRates holds EU member state standard rates plus the UK. A country
// row with its own vat_rate takes precedence.
var StandardRates = StaticRates{
	"AT": rate("0.20"),
	"BE": rate("0.21"),
	"BG": rate("0.20"),
	"CY": rate("0.19"),
	"CZ": rate("0.21"),
	"DE": rate("0.19"),
	"DK": rate("0.25"),
	"EE": rate("0.22"),
	"ES": rate("0.21"),
	"FI": rate("0.255"),
	"FR": rate("0.20"),
	"GB": rate("0.20"),
	"GR": rate("0.24"),
	"HR": rate("0.25"),
	"HU": rate("0.27"),
	"IE": rate("0.23"),
	"IT": rate("0.22"),
	"LT": rate("0.21"),
	"LU": rate("0.17"),
	"LV": rate("0.21"),
	"MT": rate("0.18"),
	"NL": rate("0.21"),
	"PL": rate("0.23"),
	"PT": rate("0.23"),
	"RO": rate("0.19"),
	"SE": rate("0.25"),
	"SI": rate("0.22"),
	"SK": rate("0.23"),
}

package vat

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidNumber is returned for a VAT identification number whose format
// does not match the billing country.
var ErrInvalidNumber = errors.New("vat: invalid identification number")

var numberFormats = map[string]*regexp.Regexp{
	"AT": regexp.MustCompile(`^ATU\d{8}$`),
	"BE": regexp.MustCompile(`^BE[01]\d{9}$`),
	"BG": regexp.MustCompile(`^BG\d{9,10}$`),
	"CY": regexp.MustCompile(`^CY\d{8}[A-Z]$`),
	"CZ": regexp.MustCompile(`^CZ\d{8,10}$`),
	"DE": regexp.MustCompile(`^DE\d{9}$`),
	"DK": regexp.MustCompile(`^DK\d{8}$`),
	"EE": regexp.MustCompile(`^EE\d{9}$`),
	"ES": regexp.MustCompile(`^ES[A-Z0-9]\d{7}[A-Z0-9]$`),
	"FI": regexp.MustCompile(`^FI\d{8}$`),
	"FR": regexp.MustCompile(`^FR[A-HJ-NP-Z0-9]{2}\d{9}$`),
	"GB": regexp.MustCompile(`^GB(\d{9}|\d{12}|GD\d{3}|HA\d{3})$`),
	"GR": regexp.MustCompile(`^EL\d{9}$`),
	"HR": regexp.MustCompile(`^HR\d{11}$`),
	"HU": regexp.MustCompile(`^HU\d{8}$`),
	"IE": regexp.MustCompile(`^IE\d[A-Z0-9+*]\d{5}[A-Z]{1,2}$`),
	"IT": regexp.MustCompile(`^IT\d{11}$`),
	"LT": regexp.MustCompile(`^LT(\d{9}|\d{12})$`),
	"LU": regexp.MustCompile(`^LU\d{8}$`),
	"LV": regexp.MustCompile(`^LV\d{11}$`),
	"MT": regexp.MustCompile(`^MT\d{8}$`),
	"NL": regexp.MustCompile(`^NL\d{9}B\d{2}$`),
	"PL": regexp.MustCompile(`^PL\d{10}$`),
	"PT": regexp.MustCompile(`^PT\d{9}$`),
	"RO": regexp.MustCompile(`^RO\d{2,10}$`),
	"SE": regexp.MustCompile(`^SE\d{12}$`),
	"SI": regexp.MustCompile(`^SI\d{8}$`),
	"SK": regexp.MustCompile(`^SK\d{10}$`),
}

var genericFormat = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{2,13}$`)

// NormalizeNumber uppercases and strips spaces, dots and dashes.
func NormalizeNumber(number string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '.', '-':
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(number)))
}

// ValidateNumber checks the format of a VAT identification number against the
// billing country. Countries without a known pattern only need a plausible
// prefixed identifier.
func ValidateNumber(countryCode, number string) error {
	n := NormalizeNumber(number)
	code := strings.ToUpper(countryCode)
	if n == "" {
		return ErrInvalidNumber
	}
	if re, ok := numberFormats[code]; ok {
		if !re.MatchString(n) {
			return ErrInvalidNumber
		}
		return nil
	}
	if !genericFormat.MatchString(n) {
		return ErrInvalidNumber
	}
	return nil
}

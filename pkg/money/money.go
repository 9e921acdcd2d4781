package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// ErrInvalidRate is returned when a conversion rate is not a positive finite number.
var ErrInvalidRate = errors.New("money: conversion rate must be positive")

// Formatter renders minor-unit amounts for a locale.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
}

// NewFormatter builds a formatter for the given BCP 47 locale. Unknown locales fall back to English.
func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil || tag == language.Und {
		tag = language.English
	}
	return &Formatter{tag: tag, printer: message.NewPrinter(tag)}
}

// Locale returns the resolved language tag.
func (f *Formatter) Locale() language.Tag {
	return f.tag
}

// Format renders cents as a grouped decimal followed by the ISO currency code.
func (f *Formatter) Format(cents int64, code string) (string, error) {
	unit, err := ParseCurrency(code)
	if err != nil {
		return "", err
	}
	scale, _ := currency.Standard.Rounding(unit)
	value := float64(cents) / math.Pow10(scale)
	amount := f.printer.Sprint(number.Decimal(value, number.Scale(scale)))
	return fmt.Sprintf("%s %s", amount, unit.String()), nil
}

// FormatDual renders the amount in the primary currency with the converted secondary amount in parentheses.
func (f *Formatter) FormatDual(cents int64, primary, secondary string, rate float64) (string, error) {
	first, err := f.Format(cents, primary)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(secondary) == "" || strings.EqualFold(strings.TrimSpace(primary), strings.TrimSpace(secondary)) {
		return first, nil
	}
	converted, err := Convert(cents, primary, secondary, rate)
	if err != nil {
		return "", err
	}
	second, err := f.Format(converted, secondary)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s (~ %s)", first, second), nil
}

// Convert turns an amount in from's minor units into to's minor units at rate (one unit of from in to),
// rounding half away from zero. Currencies with different decimal places are rescaled.
func Convert(cents int64, from, to string, rate float64) (int64, error) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, ErrInvalidRate
	}
	source, err := ParseCurrency(from)
	if err != nil {
		return 0, err
	}
	target, err := ParseCurrency(to)
	if err != nil {
		return 0, err
	}
	sourceScale, _ := currency.Standard.Rounding(source)
	targetScale, _ := currency.Standard.Rounding(target)
	return int64(math.Round(float64(cents) * rate * math.Pow10(targetScale-sourceScale))), nil
}

// ParseCurrency validates an ISO 4217 code.
func ParseCurrency(code string) (currency.Unit, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return currency.Unit{}, fmt.Errorf("money: unknown currency %q: %w", code, err)
	}
	return unit, nil
}

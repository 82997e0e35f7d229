// format.go — Locale-aware money and number formatting for block props.
package blocks

import (
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders amounts in one currency for one locale.
type Formatter struct {
	printer *message.Printer
	symbol  string
}

// NewFormatter returns a formatter for the given locale and ISO 4217 code.
// An unknown code is printed verbatim in front of the amount.
func NewFormatter(tag language.Tag, code string) *Formatter {
	p := message.NewPrinter(tag)
	f := &Formatter{printer: p, symbol: strings.ToUpper(code) + " "}
	if unit, err := currency.ParseISO(code); err == nil {
		f.symbol = p.Sprint(currency.Symbol(unit))
	}
	return f
}

// DefaultFormatter formats US dollars in English.
func DefaultFormatter() *Formatter {
	return NewFormatter(language.English, "USD")
}

// Money formats an amount with two decimals and the currency symbol.
func (f *Formatter) Money(v float64) string {
	return f.symbol + f.printer.Sprint(number.Decimal(v, number.Scale(2)))
}

// Percent formats a whole percentage such as a discount.
func (f *Formatter) Percent(v int) string {
	return f.printer.Sprintf("%d%%", v)
}

// Rating formats a review score with one decimal.
func (f *Formatter) Rating(v float64) string {
	return f.printer.Sprint(number.Decimal(v, number.Scale(1)))
}

// Count formats an integer with locale grouping.
func (f *Formatter) Count(v int) string {
	return f.printer.Sprint(number.Decimal(v))
}

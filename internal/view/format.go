package view

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"schoolportal/internal/model"
)

const (
	dateTimeLayout = "1/2/2006, 3:04:05 PM"
	dateLayout     = "1/2/2006"
)

// Formatter renders amounts and dates for display.
type Formatter struct {
	Currency string
	Location *time.Location

	printer *message.Printer
}

// NewFormatter returns an English formatter. An unknown zone falls back to UTC.
func NewFormatter(currency, zone string) Formatter {
	loc, err := time.LoadLocation(zone)
	if err != nil || zone == "" {
		loc = time.UTC
	}
	if currency == "" {
		currency = "GHS"
	}
	return Formatter{Currency: currency, Location: loc, printer: message.NewPrinter(language.English)}
}

func (f Formatter) p() *message.Printer {
	if f.printer == nil {
		return message.NewPrinter(language.English)
	}
	return f.printer
}

// Number groups thousands and keeps up to three decimals: 1234.5 -> "1,234.5".
func (f Formatter) Number(v float64) string {
	return f.p().Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(3)))
}

// Money prefixes the currency code: "GHS 1,234".
func (f Formatter) Money(v float64) string {
	return f.Currency + " " + f.Number(v)
}

// Amount formats a loosely typed amount, showing text that is not a number
// as entered.
func (f Formatter) Amount(v model.Loose) string {
	n, ok := v.Number()
	if !ok {
		return f.Currency + " " + string(v)
	}
	return f.Money(n)
}

func (f Formatter) DateTime(t time.Time) string {
	return t.In(f.loc()).Format(dateTimeLayout)
}

func (f Formatter) Date(t time.Time) string {
	return t.In(f.loc()).Format(dateLayout)
}

func (f Formatter) loc() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}

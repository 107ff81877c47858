package money

import (
	"strconv"
	"strings"
)

// Formatter renders amounts for display in a single configured currency.
// The aggregator guarantees totals never go negative, so the formatter does
// not clamp; negative inputs (e.g. a rendered "- discount") keep their sign.
type Formatter struct {
	symbol string
	digits int
}

// NewFormatter creates a Formatter with the given currency symbol and
// number of fraction digits. Digits below zero are treated as zero.
func NewFormatter(symbol string, digits int) *Formatter {
	if digits < 0 {
		digits = 0
	}
	return &Formatter{symbol: symbol, digits: digits}
}

// Format renders the amount with the currency symbol and a fixed number of
// fraction digits, e.g. Amount(45065) -> "$450.65".
func (f *Formatter) Format(a Amount) string {
	var b strings.Builder
	minor := int64(a)
	if minor < 0 {
		b.WriteByte('-')
		minor = -minor
	}
	b.WriteString(f.symbol)

	whole := minor / 100
	frac := minor % 100
	b.WriteString(strconv.FormatInt(whole, 10))

	switch {
	case f.digits == 0:
	case f.digits == 2:
		b.WriteByte('.')
		if frac < 10 {
			b.WriteByte('0')
		}
		b.WriteString(strconv.FormatInt(frac, 10))
	default:
		// Other precisions render the two stored fraction digits and pad
		// with zeros; the store never holds sub-cent precision.
		b.WriteByte('.')
		s := strconv.FormatInt(frac, 10)
		if len(s) < 2 {
			s = "0" + s
		}
		if f.digits < 2 {
			s = s[:f.digits]
		} else {
			s += strings.Repeat("0", f.digits-2)
		}
		b.WriteString(s)
	}
	return b.String()
}

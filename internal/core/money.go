// Package core holds the domain model of the ledger: entries, cards,
// categories, goals and the money/date primitives everything else is
// built on. Amounts are integer cents; floats only ever appear at the
// display boundary.
package core

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money is a currency-agnostic amount in cents.
type Money struct {
	Cents int64
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) IsZero() bool { return m.Cents == 0 }

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// Split divides the amount into n equal shares. The first share absorbs
// the remainder cents so the shares always sum back to the original
// amount exactly.
func (m Money) Split(n int) []Money {
	if n <= 1 {
		return []Money{m}
	}
	share := m.Cents / int64(n)
	rem := m.Cents % int64(n)
	out := make([]Money, n)
	for i := range out {
		out[i] = Money{Cents: share}
	}
	out[0].Cents += rem
	return out
}

// ParseDecimalToCents converts a decimal string to cents with half-up
// rounding on the third decimal place. Both dot (12.34) and comma
// (12,34) separators are accepted. Only positive amounts are valid.
func ParseDecimalToCents(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return Money{}, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents}, nil
}

var currencyDisplay = map[string]struct {
	symbol string
	tag    language.Tag
}{
	"BRL": {"R$", language.BrazilianPortuguese},
	"EUR": {"€", language.Italian},
	"USD": {"$", language.English},
}

// Format renders the amount for display under the given currency tag.
// Grouping and decimal separators follow the currency's usual locale;
// unknown currencies fall back to the tag itself with English grouping.
func (m Money) Format(currency string) string {
	disp, ok := currencyDisplay[currency]
	if !ok {
		disp.symbol = currency
		disp.tag = language.English
	}
	p := message.NewPrinter(disp.tag)
	return p.Sprintf("%s %.2f", disp.symbol, float64(m.Cents)/100.0)
}

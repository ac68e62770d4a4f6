package transaction

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ErrMalformedAmount is returned when an amount token has digits in the
// wrong places, e.g. broken thousands grouping.
var ErrMalformedAmount = errors.New("malformed amount")

var (
	groupedAmount = regexp.MustCompile(`^\d{1,3}(,\d{3})*\.\d+$`)
	plainAmount   = regexp.MustCompile(`^\d+\.\d+$`)
)

// Amount is a monetary value left readable on a redacted statement
type Amount struct {
	Page  int             `json:"page"`
	Text  string          `json:"text"`
	Value decimal.Decimal `json:"value"`
}

// AmountList holds the residual amounts of one document
type AmountList struct {
	Amounts []Amount        `json:"amounts"`
	Total   decimal.Decimal `json:"total"`
	Skipped int             `json:"skipped"`
}

// AddAmount appends an amount and keeps the running total current
func (al *AmountList) AddAmount(a Amount) {
	al.Amounts = append(al.Amounts, a)
	al.Total = al.Total.Add(a.Value)
}

// GetByPage returns all amounts found on the given page
func (al *AmountList) GetByPage(page int) []Amount {
	var filtered []Amount
	for _, a := range al.Amounts {
		if a.Page == page {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

// ParseAmount parses a digit run such as "1,234.56" with its thousands
// separators stripped.
func ParseAmount(token string) (decimal.Decimal, error) {
	token = strings.TrimSpace(token)
	if !groupedAmount.MatchString(token) && !plainAmount.MatchString(token) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, token)
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(token, ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q: %v", ErrMalformedAmount, token, err)
	}
	return d, nil
}

// FormatTotal renders an amount in the given ISO-4217 currency, e.g. "£4.50".
// Unknown currency codes fall back to two decimal places with no symbol.
func FormatTotal(d decimal.Decimal, currencyCode string) string {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		return d.StringFixed(2)
	}
	minor := d.Shift(int32(currency.Fraction)).Round(0).IntPart()
	return money.New(minor, currency.Code).Display()
}

package redact

import (
	"fmt"
	"regexp"
	"strings"
)

// RegistryMode selects how amounts sharing a row key are tracked.
type RegistryMode string

const (
	// RegistryOverwrite keeps only the last amount seen on a row key.
	RegistryOverwrite RegistryMode = "overwrite"
	// RegistryMulti keeps every amount seen on a row key.
	RegistryMulti RegistryMode = "multi"
)

// Config holds the statement-layout constants used by the classifier
type Config struct {
	SectionTitle   string
	CurrencySymbol string
	LimitLabel     string
	Months         []string
	RowTolerance   int
	Registry       RegistryMode
}

// DefaultConfig returns the layout of a UK credit-card statement
func DefaultConfig() Config {
	return Config{
		SectionTitle:   "Transaction Details",
		CurrencySymbol: "£",
		LimitLabel:     "Limit",
		Months:         []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
		RowTolerance:   1,
		Registry:       RegistryOverwrite,
	}
}

// Patterns are the compiled text classifiers for one Config
type Patterns struct {
	decimal     *regexp.Regexp
	currency    *regexp.Regexp
	date        *regexp.Regexp
	limitMarker string
}

const decimalExpr = `\d{1,3}(?:,\d{3})*\.\d+`

// Compile builds the patterns for cfg.
func Compile(cfg Config) (*Patterns, error) {
	if cfg.CurrencySymbol == "" {
		return nil, fmt.Errorf("currency symbol must not be empty")
	}
	if len(cfg.Months) == 0 {
		return nil, fmt.Errorf("at least one month abbreviation is required")
	}

	months := make([]string, 0, len(cfg.Months))
	for _, m := range cfg.Months {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		months = append(months, regexp.QuoteMeta(m))
	}
	if len(months) == 0 {
		return nil, fmt.Errorf("at least one month abbreviation is required")
	}

	date, err := regexp.Compile(`\b(?:` + strings.Join(months, "|") + `)\s+\d{1,2}\b`)
	if err != nil {
		return nil, fmt.Errorf("failed to compile date pattern: %w", err)
	}
	currency, err := regexp.Compile(regexp.QuoteMeta(cfg.CurrencySymbol) + `\d{1,3}(?:,\d{3})*(?:\.\d+)?`)
	if err != nil {
		return nil, fmt.Errorf("failed to compile currency pattern: %w", err)
	}

	label := strings.TrimSpace(cfg.LimitLabel)
	if label == "" {
		label = "Limit"
	}

	return &Patterns{
		decimal:     regexp.MustCompile(decimalExpr),
		currency:    currency,
		date:        date,
		limitMarker: label + " " + cfg.CurrencySymbol,
	}, nil
}

// decimalMatch returns the byte offsets of the first decimal amount in
// text. Matches touching a '%' on either side are percentages, not amounts.
func (p *Patterns) decimalMatch(text string) (int, int, bool) {
	for _, loc := range p.decimal.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if end < len(text) && text[end] == '%' {
			continue
		}
		if start > 0 && text[start-1] == '%' {
			continue
		}
		return start, end, true
	}
	return 0, 0, false
}

// IsDecimal reports whether text contains a decimal amount
func (p *Patterns) IsDecimal(text string) bool {
	_, _, ok := p.decimalMatch(text)
	return ok
}

// IsCurrency reports whether text contains a currency-prefixed amount
func (p *Patterns) IsCurrency(text string) bool {
	return p.currency.MatchString(text)
}

// IsDate reports whether text contains a month abbreviation and day
func (p *Patterns) IsDate(text string) bool {
	return p.date.MatchString(text)
}

// HasLimit reports whether text carries the credit-limit marker
func (p *Patterns) HasLimit(text string) bool {
	return strings.Contains(text, p.limitMarker)
}

// AmountToken returns the full digit run of the first decimal amount in
// text. The match is widened to the left over digits and commas so that
// "1000.00" yields "1000.00" rather than the "000.00" the pattern anchors on.
func (p *Patterns) AmountToken(text string) (string, bool) {
	start, end, ok := p.decimalMatch(text)
	if !ok {
		return "", false
	}
	for start > 0 && (isDigit(text[start-1]) || text[start-1] == ',') {
		start--
	}
	return strings.TrimLeft(text[start:end], ","), true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

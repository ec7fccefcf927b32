package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidMoney is returned when a decimal string cannot be read as a non-negative amount.
var ErrInvalidMoney = errors.New("invalid money amount")

// Money is an amount in minor units (hundredths).
type Money int64

// ParseMoney reads decimal strings such as "2.50", "2.5" or "3". More than two fractional digits are rejected.
func ParseMoney(raw string) (Money, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidMoney)
	}
	whole, frac, hasFrac := strings.Cut(trimmed, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && (frac == "" || len(frac) > 2) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, raw)
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units < 0 || strings.HasPrefix(whole, "+") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, raw)
	}
	var cents int64
	if hasFrac {
		for len(frac) < 2 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil || cents < 0 || strings.HasPrefix(frac, "+") || strings.HasPrefix(frac, "-") {
			return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, raw)
		}
	}
	return Money(units*100 + cents), nil
}

// MustParseMoney is ParseMoney for literals known to be valid.
func MustParseMoney(raw string) Money {
	m, err := ParseMoney(raw)
	if err != nil {
		panic(err)
	}
	return m
}

// String renders the amount with exactly two fractional digits.
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Times multiplies the amount by an integer quantity.
func (m Money) Times(qty int) Money {
	return m * Money(qty)
}

// ApplyRate returns m * bps / 10000 rounded half-up to the nearest minor unit.
func (m Money) ApplyRate(bps int) Money {
	if bps <= 0 || m <= 0 {
		return 0
	}
	return Money((int64(m)*int64(bps) + 5000) / 10000)
}

// Float returns the amount in major units, used for numeric wire fields.
func (m Money) Float() float64 {
	return float64(m) / 100
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both decimal strings and bare JSON numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*m = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	} else if f, err := strconv.ParseFloat(raw, 64); err == nil {
		raw = strconv.FormatFloat(f, 'f', 2, 64)
	}
	parsed, err := parseWireMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// parseWireMoney is ParseMoney with fractional digits past the second rounded half-up.
func parseWireMoney(raw string) (Money, error) {
	trimmed := strings.TrimSpace(raw)
	whole, frac, hasFrac := strings.Cut(trimmed, ".")
	if !hasFrac || len(frac) <= 2 {
		return ParseMoney(trimmed)
	}
	for _, r := range frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, raw)
		}
	}
	m, err := ParseMoney(whole + "." + frac[:2])
	if err != nil {
		return 0, err
	}
	if frac[2] >= '5' {
		m++
	}
	return m, nil
}

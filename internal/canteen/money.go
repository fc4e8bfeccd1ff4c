package canteen

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Cents is an amount of money in hundredths of the currency unit.
type Cents int64

// MaxAmount is the largest amount a NUMERIC(10,2) column holds.
const MaxAmount Cents = 99_999_999_99

// ParseCents reads a decimal amount such as "12", "12.5", "12.50" or "-1.25".
// Only a single leading minus sign is accepted.
func ParseCents(s string) (Cents, error) {
	in := strings.TrimSpace(s)
	neg := strings.HasPrefix(in, "-")
	whole, frac, _ := strings.Cut(strings.TrimPrefix(in, "-"), ".")
	if (whole == "" && frac == "") || !digits(whole) || !digits(frac) {
		return 0, errors.Errorf("invalid amount %q", s)
	}
	if len(frac) > 2 {
		return 0, errors.Errorf("amount %q has more than two decimals", s)
	}
	if whole == "" {
		whole = "0"
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || Cents(w) > MaxAmount/100 {
		return 0, errors.Errorf("amount %q out of range", s)
	}
	f, _ := strconv.ParseInt(frac, 10, 64)
	c := Cents(w*100 + f)
	if neg {
		c = -c
	}
	return c, nil
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// String formats c with two decimals.
func (c Cents) String() string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// Times multiplies c by a quantity.
func (c Cents) Times(qty int) Cents { return c * Cents(qty) }

// MarshalJSON encodes c as a JSON number with two decimals.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal.
func (c *Cents) UnmarshalJSON(b []byte) error {
	v, err := ParseCents(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Value stores c as a NUMERIC literal.
func (c Cents) Value() (driver.Value, error) {
	return c.String(), nil
}

// Scan reads a NUMERIC column.
func (c *Cents) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = 0
		return nil
	case string:
		return c.parse(v)
	case []byte:
		return c.parse(string(v))
	case int64:
		*c = Cents(v * 100)
		return nil
	case float64:
		return c.parse(strconv.FormatFloat(v, 'f', 2, 64))
	}
	return errors.Errorf("cannot scan %T into Cents", src)
}

func (c *Cents) parse(s string) error {
	v, err := ParseCents(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

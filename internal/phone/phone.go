// Package phone normalizes roster phone numbers to E.164.
package phone

import (
	"errors"

	"github.com/nyaruka/phonenumbers"
)

// ErrInvalid is returned for input that does not parse to a valid number.
var ErrInvalid = errors.New("invalid phone number")

// DefaultRegion is assumed for numbers entered without a country code.
const DefaultRegion = "US"

// Normalize parses raw input and returns the E.164 representation.
func Normalize(raw string) (string, error) {
	num, err := phonenumbers.Parse(raw, DefaultRegion)
	if err != nil {
		return "", ErrInvalid
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalid
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// FormatNational renders a stored E.164 number for display, falling back to
// the input when it does not parse.
func FormatNational(e164 string) string {
	num, err := phonenumbers.Parse(e164, "")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return e164
	}
	return phonenumbers.Format(num, phonenumbers.NATIONAL)
}

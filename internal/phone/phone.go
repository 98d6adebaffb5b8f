// Package phone converts free-form phone number text to the canonical
// +<digits> form used as the storage and lookup key, and back to a display form.
package phone

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPhoneNumber is returned when input cannot be normalized
var ErrInvalidPhoneNumber = errors.New("invalid phone number")

const (
	minDigits = 7
	maxDigits = 15
)

// digitsOf strips every non-digit character
func digitsOf(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValid reports whether input has between 7 and 15 digits.
// Inputs with 10 or more digits must be a US/Canada number (10 digits, or 11
// with a leading 1) or fit the international range.
func IsValid(input string) bool {
	digits := digitsOf(input)
	n := len(digits)

	if n < minDigits || n > maxDigits {
		return false
	}

	if n >= 10 {
		if n == 10 || (n == 11 && digits[0] == '1') {
			return true
		}
		return n >= minDigits && n <= maxDigits
	}

	// 7-9 digits: short international numbers
	return true
}

// format applies the E.164-like rules without the IsValid gate
func format(input string) (string, error) {
	digits := digitsOf(input)
	n := len(digits)

	switch {
	case n == 0:
		return "", fmt.Errorf("%w: no digits found", ErrInvalidPhoneNumber)
	case n == 10:
		return "+1" + digits, nil
	case n == 11 && digits[0] == '1':
		return "+" + digits, nil
	case n == 11:
		// international, no country code assumption
		return "+" + digits, nil
	case n >= minDigits && n <= maxDigits:
		return "+" + digits, nil
	default:
		return "", fmt.Errorf("%w: %d digits", ErrInvalidPhoneNumber, n)
	}
}

// Normalize converts input to canonical +<digits> form.
// 10 digits get a +1 prefix; everything else in range gets a + prefix.
func Normalize(input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", fmt.Errorf("%w: empty input", ErrInvalidPhoneNumber)
	}
	if !IsValid(input) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhoneNumber, input)
	}
	return format(input)
}

// ToDisplay renders a number for humans: (XXX) XXX-XXXX for US/Canada,
// +CC XXX XXX XXXX for longer international numbers. Input that cannot be
// normalized is returned unchanged.
func ToDisplay(input string) string {
	canonical, err := Normalize(input)
	if err != nil {
		return input
	}

	digits := canonical[1:]

	if len(digits) == 11 && digits[0] == '1' {
		national := digits[1:]
		return fmt.Sprintf("(%s) %s-%s", national[:3], national[3:6], national[6:])
	}

	if len(digits) > 11 {
		cc := digits[:len(digits)-10]
		national := digits[len(digits)-10:]
		return fmt.Sprintf("+%s %s %s %s", cc, national[:3], national[3:6], national[6:])
	}

	return canonical
}

// Equal reports whether a and b normalize to the same canonical number
func Equal(a, b string) bool {
	na, err := Normalize(a)
	if err != nil {
		return false
	}
	nb, err := Normalize(b)
	if err != nil {
		return false
	}
	return na == nb
}

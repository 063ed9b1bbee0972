package checkout

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode"
)

var (
	ErrPickupTimeRequired = errors.New("pickup time is required")
	ErrInvalidPickupTime  = errors.New("pickup time must look like YYYY-MM-DDTHH:MM")
	ErrPhoneRequired      = errors.New("phone number is required")
	ErrPhoneTooShort      = errors.New("phone number must contain at least 10 digits")
	ErrGuestNameRequired  = errors.New("name is required for guest checkout")
	ErrEmptyCart          = errors.New("your cart is empty")
)

const (
	pickupLayout   = "2006-01-02T15:04:05"
	minPhoneDigits = 10
)

var zoneSuffix = regexp.MustCompile(`(Z|[+-]\d{2}:?\d{2})$`)

// NormalizePickupTime returns t as local wall-clock time without a zone:
// YYYY-MM-DDTHH:MM:SS. A trailing Z or ±HH:MM offset and any fractional
// seconds are dropped; missing seconds become :00.
func NormalizePickupTime(t string) (string, error) {
	t = strings.TrimSpace(t)
	if t == "" {
		return "", ErrPickupTimeRequired
	}
	if len(t) > 10 && t[10] == ' ' {
		t = t[:10] + "T" + t[11:]
	}
	i := strings.IndexByte(t, 'T')
	if i < 0 {
		return "", ErrInvalidPickupTime
	}
	date, clock := t[:i], t[i+1:]
	clock = zoneSuffix.ReplaceAllString(clock, "")
	if dot := strings.IndexByte(clock, '.'); dot >= 0 {
		clock = clock[:dot]
	}
	if strings.Count(clock, ":") == 1 {
		clock += ":00"
	}
	t = date + "T" + clock

	if _, err := time.Parse(pickupLayout, t); err != nil {
		return "", ErrInvalidPickupTime
	}
	return t, nil
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// Validate checks the shopper-entered fields. guest selects the extra
// checks of guest checkout.
func (r *Request) Validate(guest bool) error {
	pickup, err := NormalizePickupTime(r.PickupTime)
	if err != nil {
		return err
	}
	r.PickupTime = pickup

	r.Phone = strings.TrimSpace(r.Phone)
	if r.Phone == "" {
		return ErrPhoneRequired
	}
	if countDigits(r.Phone) < minPhoneDigits {
		return ErrPhoneTooShort
	}
	if guest && strings.TrimSpace(r.GuestName) == "" {
		return ErrGuestNameRequired
	}
	return nil
}

// IsValidationError reports whether err came from input checks, as
// opposed to the backend.
func IsValidationError(err error) bool {
	for _, e := range []error{
		ErrPickupTimeRequired, ErrInvalidPickupTime, ErrPhoneRequired,
		ErrPhoneTooShort, ErrGuestNameRequired, ErrEmptyCart,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

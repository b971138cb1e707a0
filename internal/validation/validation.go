package validation

import (
	"errors"
	"net/mail"
	"strings"
	"unicode"
)

// ErrCityEmpty is returned when the city is empty or whitespace-only after trim.
// Its message is shown to users as-is.
var ErrCityEmpty = errors.New("City name cannot be empty")

// ErrCityTooShort is returned when the city length is below the minimum.
var ErrCityTooShort = errors.New("city name too short")

// ErrCityTooLong is returned when the city length exceeds the maximum.
var ErrCityTooLong = errors.New("city name too long")

// ErrCityInvalidChars is returned when the city contains disallowed characters.
var ErrCityInvalidChars = errors.New("city name contains invalid characters")

// ErrMissingCredentials is returned when username or password is blank.
var ErrMissingCredentials = errors.New("Please enter username and password")

// ErrContactNameRequired is returned when a contact has no name.
var ErrContactNameRequired = errors.New("contact name is required")

// ErrContactEmailInvalid is returned when a contact email does not parse.
var ErrContactEmailInvalid = errors.New("contact email is invalid")

// ErrContactPhoneInvalid is returned when a contact phone has characters other than digits, spaces and +-().
var ErrContactPhoneInvalid = errors.New("contact phone is invalid")

var sentinels = []error{
	ErrCityEmpty, ErrCityTooShort, ErrCityTooLong, ErrCityInvalidChars,
	ErrMissingCredentials,
	ErrContactNameRequired, ErrContactEmailInvalid, ErrContactPhoneInvalid,
}

// Message returns the user-facing text of the validation error err wraps.
// ok is false when err does not wrap one.
func Message(err error) (msg string, ok bool) {
	for _, target := range sentinels {
		if errors.Is(err, target) {
			return target.Error(), true
		}
	}
	return "", false
}

// ValidateCity trims the input, enforces length bounds (minLen, maxLen in runes; 0 disables),
// and restricts to letters (Unicode), digits, space, comma, hyphen, period and apostrophe
// so that "St. John's, CA" passes. Returns the trimmed city.
// Normalization (e.g. lowercase) is left to the service layer.
func ValidateCity(input string, minLen, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	n := len(r)
	if n == 0 {
		return "", ErrCityEmpty
	}
	if minLen > 0 && n < minLen {
		return "", ErrCityTooShort
	}
	if maxLen > 0 && n > maxLen {
		return "", ErrCityTooLong
	}
	for _, c := range r {
		if !isAllowedCityRune(c) {
			return "", ErrCityInvalidChars
		}
	}
	return s, nil
}

func isAllowedCityRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', ',', '-', '.', '\'':
		return true
	}
	return false
}

// ValidateCredentials rejects blank usernames or passwords. The username is trimmed;
// the password is returned untouched.
func ValidateCredentials(username, password string) (string, string, error) {
	u := strings.TrimSpace(username)
	if u == "" || password == "" {
		return "", "", ErrMissingCredentials
	}
	return u, password, nil
}

// ValidateContact trims all fields and checks them. Phone and email are optional.
func ValidateContact(name, phone, email string) (string, string, string, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	email = strings.TrimSpace(email)
	if name == "" {
		return "", "", "", ErrContactNameRequired
	}
	if phone != "" {
		for _, c := range phone {
			if !isAllowedPhoneRune(c) {
				return "", "", "", ErrContactPhoneInvalid
			}
		}
	}
	if email != "" {
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			return "", "", "", ErrContactEmailInvalid
		}
	}
	return name, phone, email, nil
}

func isAllowedPhoneRune(r rune) bool {
	if r >= '0' && r <= '9' {
		return true
	}
	switch r {
	case ' ', '+', '-', '(', ')':
		return true
	}
	return false
}

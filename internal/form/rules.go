package form

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// validate is safe for concurrent use and caches its rule parsing.
var validate = validator.New()

var digitsRe = regexp.MustCompile(`^\d+$`)

// UsernamePattern matches the characters the backend allows in a username.
var UsernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// Required fails on an empty value and stops further rules on that field.
func Required() Rule {
	return func(value string, _ url.Values) string {
		if value == "" {
			return "This field is required"
		}
		return ""
	}
}

// optional wraps a rule so it only runs on non-empty values.
func optional(check func(string) string) Rule {
	return func(value string, _ url.Values) string {
		if value == "" {
			return ""
		}
		return check(value)
	}
}

// Email checks the value is a syntactically valid email address.
func Email() Rule {
	return optional(func(value string) string {
		if err := validate.Var(value, "email"); err != nil {
			return "Enter a valid email address"
		}
		return ""
	})
}

// Pattern checks the value matches re, reporting msg otherwise.
func Pattern(re *regexp.Regexp, msg string) Rule {
	return optional(func(value string) string {
		if !re.MatchString(value) {
			return msg
		}
		return ""
	})
}

// MaxLength limits the value to n characters.
func MaxLength(n int) Rule {
	return optional(func(value string) string {
		if utf8.RuneCountInString(value) > n {
			return fmt.Sprintf("Use at most %d characters", n)
		}
		return ""
	})
}

// Digits requires a non-negative integer written with digits only.
func Digits() Rule {
	return Pattern(digitsRe, "Enter a whole number")
}

// IntRange requires an integer between min and max inclusive.
func IntRange(min, max int) Rule {
	return optional(func(value string) string {
		n, err := strconv.Atoi(value)
		if err != nil || !digitsRe.MatchString(value) {
			return "Enter a whole number"
		}
		if n < min || n > max {
			return fmt.Sprintf("Enter a number from %d to %d", min, max)
		}
		return ""
	})
}

// EqualTo requires the value to equal the submitted value of another field.
func EqualTo(other, msg string) Rule {
	return func(value string, all url.Values) string {
		if value != all.Get(other) {
			return msg
		}
		return ""
	}
}

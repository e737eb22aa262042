// Package validation provides the email and password predicates used by the
// account lifecycle, and registers them as gin binding tags
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// MaxPasswordStrength is the highest score PasswordStrength can return
const MaxPasswordStrength = 5

// minPasswordLength earns the length point
const minPasswordLength = 8

// specialChars is the fixed punctuation set that earns the special character point
const specialChars = `!@#$%^&*(),.?":{}|<>`

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Initialize registers all custom validators
func Initialize() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := Register(v); err != nil {
			panic(err)
		}
	}
}

// Register adds the custom tags to a validator instance
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation("nospaces", validateNoSpaces); err != nil {
		return err
	}
	return v.RegisterValidation("account_email", validateAccountEmail)
}

// NormalizeEmail trims surrounding whitespace and lower-cases the address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail reports whether email looks like local@domain.tld.
// No MX lookup is performed.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// PasswordStrength scores a password from 0 to MaxPasswordStrength, one point each for
// length >= 8, a lowercase letter, an uppercase letter, a digit and a special character.
func PasswordStrength(password string) int {
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(specialChars, r):
			special = true
		}
	}

	score := 0
	for _, ok := range []bool{utf8.RuneCountInString(password) >= minPasswordLength, lower, upper, digit, special} {
		if ok {
			score++
		}
	}
	return score
}

// validateNoSpaces checks if a string contains non-space characters
func validateNoSpaces(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return strings.TrimSpace(value) != ""
}

func validateAccountEmail(fl validator.FieldLevel) bool {
	return ValidateEmail(NormalizeEmail(fl.Field().String()))
}

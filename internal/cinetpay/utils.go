package cinetpay

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var phoneRegex = regexp.MustCompile(`^\+?[\d\s\-()]{8,}$`)

// GenerateTransactionID returns a random UUID suitable as a transaction id.
func GenerateTransactionID() string {
	return uuid.NewString()
}

func IsValidEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

// IsValidPhoneNumber is a loose check: an optional leading "+" followed by at
// least eight digits, spaces, dashes or parentheses.
func IsValidPhoneNumber(phone string) bool {
	return phoneRegex.MatchString(strings.TrimSpace(phone))
}

package customvalidator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var cnpjDigits = regexp.MustCompile(`\D`)

// RegisterCustomValidations wires the project-specific rules into the
// validator instance used by echo.
func RegisterCustomValidations(v *validator.Validate) error {
	return v.RegisterValidation("cnpj", isValidCNPJ)
}

// isValidCNPJ verifies the two check digits of a Brazilian company number.
// Formatting characters are ignored.
func isValidCNPJ(fl validator.FieldLevel) bool {
	digits := cnpjDigits.ReplaceAllString(fl.Field().String(), "")
	if len(digits) != 14 {
		return false
	}
	allSame := true
	for i := 1; i < 14; i++ {
		if digits[i] != digits[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return false
	}
	return checkDigit(digits, 12) == int(digits[12]-'0') &&
		checkDigit(digits, 13) == int(digits[13]-'0')
}

func checkDigit(digits string, length int) int {
	weight := length - 7
	sum := 0
	for i := 0; i < length; i++ {
		sum += int(digits[i]-'0') * weight
		weight--
		if weight < 2 {
			weight = 9
		}
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}

package bot

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"housebot/pkg/domain"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9]{5,15}$`)
	phoneCleaner = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// inputValidator checks free-text dialog answers.
type inputValidator struct {
	v *validator.Validate
}

func newInputValidator() *inputValidator {
	v := validator.New()
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return &inputValidator{v: v}
}

func (iv *inputValidator) check(field, value, tag string) error {
	if err := iv.v.Var(value, tag); err != nil {
		reason := err.Error()
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			reason = "failed " + errs[0].Tag()
		}
		return domain.ErrValidation{Field: field, Value: value, Reason: reason}
	}
	return nil
}

// Apartment accepts a positive decimal number.
func (iv *inputValidator) Apartment(input string) error {
	return iv.check("apartment", normalizeApartment(input), "required,number,max=9")
}

// Name accepts a non-blank resident name of at most 64 characters.
func (iv *inputValidator) Name(input string) error {
	return iv.check("name", normalizeName(input), "required,max=64")
}

// Phone accepts an optional plus followed by 5 to 15 digits, ignoring
// spaces, dashes and parentheses.
func (iv *inputValidator) Phone(input string) error {
	return iv.check("phone", normalizePhone(input), "required,phone")
}

func normalizeApartment(input string) string { return strings.TrimSpace(input) }

func normalizeName(input string) string { return strings.TrimSpace(input) }

func normalizePhone(input string) string { return phoneCleaner.Replace(strings.TrimSpace(input)) }

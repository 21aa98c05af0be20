package locker

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

var (
	pin4Tag   = "pin4"
	pin4Text  = "PIN must be exactly 4 digits"
	pin4Regex = regexp.MustCompile(`^\d{4}$`)
)

// InitValidators registers locker-specific validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(pin4Tag, pin4Validation)
	core.RegisterCustomTranslation(validate, translator, pin4Tag, pin4Text)
}

// pin4Validation only allows exactly 4 decimal digits.
func pin4Validation(fl validator.FieldLevel) bool {
	return pin4Regex.MatchString(fl.Field().String())
}

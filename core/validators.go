package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const (
	tagAlphaNumUnder = "alphanum_"
	tagRequired      = "required"
	tagRequiredWith  = "required_with"

	textAlphaNumUnder = "only alphanumeric characters and underscores are allowed"
	textRequired      = "this field is required"
)

var alphaNumUnderRx = regexp.MustCompile(`^[\w\s]+$`)

// InitValidators wires the shared validator instance: default English
// translations, JSON tag names in error output, and the app-wide custom tags.
// Domain packages register their own tags on top of this.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// report errors under the field's JSON name, not the Go name
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(tagAlphaNumUnder, func(fl validator.FieldLevel) bool {
		return alphaNumUnderRx.MatchString(fl.Field().String())
	})
	RegisterCustomTranslation(validate, translator, tagAlphaNumUnder, textAlphaNumUnder)

	RegisterCustomTranslation(validate, translator, tagRequired, textRequired, true)
	RegisterCustomTranslation(validate, translator, tagRequiredWith, textRequired, true)
}

// RegisterCustomTranslation maps a validation tag to a fixed error text.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// CleanString strips surrounding whitespace; pass true to also lower-case the
// result (usernames, emails, document types).
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		s = strings.ToLower(s)
	}
	return s
}

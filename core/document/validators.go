package document

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

var (
	docTypeTag  = "doctype"
	docTypeText = "invalid document type"

	docTypes = map[string]struct{}{
		TypeNotes:        {},
		TypeAssignment:   {},
		TypeQuestionBank: {},
		TypePresentation: {},
		TypeProject:      {},
		TypeOther:        {},
	}
)

// InitValidators registers document-specific validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(docTypeTag, docTypeValidation)
	core.RegisterCustomTranslation(validate, translator, docTypeTag, docTypeText)
}

// docTypeValidation checks that the provided type is a known document type.
func docTypeValidation(fl validator.FieldLevel) bool {
	_, ok := docTypes[fl.Field().String()]
	return ok
}

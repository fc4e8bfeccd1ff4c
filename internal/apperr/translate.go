package apperr

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	translator ut.Translator
	initOnce   sync.Once

	requiredTag  = "required"
	requiredText = "this field is required"
)

// InitValidator registers English translations and JSON field names on gin's validator engine.
func InitValidator() {
	initOnce.Do(func() {
		locale := en.New()
		translator, _ = ut.New(locale, locale).GetTranslator("en")

		validate, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = en_translations.RegisterDefaultTranslations(validate, translator)

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})

		_ = validate.RegisterTranslation(
			requiredTag, translator,
			func(t ut.Translator) error { return t.Add(requiredTag, requiredText, true) },
			func(t ut.Translator, fe validator.FieldError) string {
				s, _ := t.T(requiredTag, fe.Field())
				return s
			},
		)
	})
}

// FromBinding converts a gin binding error into a ValidationError with per-field messages.
func FromBinding(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return &ValidationError{Err: err}
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Error()
		if translator != nil {
			msg = fe.Translate(translator)
		}
		fields = append(fields, FieldError{Field: fe.Field(), Error: msg})
	}
	return &ValidationError{Err: stderrors.New("invalid request"), Fields: fields}
}

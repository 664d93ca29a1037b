// Package validation wraps go-playground/validator with English messages
// keyed by JSON field names.
package validation

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	once     sync.Once
	validate *govalidator.Validate
	trans    ut.Translator
)

func setup() {
	validate = govalidator.New(govalidator.WithRequiredStructEnabled())

	// Use JSON tag name for field names in error messages.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
	en_translations.RegisterDefaultTranslations(validate, trans)
	registerMinDuration()
}

// registerMinDuration adds `mindur=<duration>` for time.Duration fields. The
// stock gte tag compares durations but its English message cannot format a
// parameter like "1s".
func registerMinDuration() {
	validate.RegisterValidation("mindur", func(fl govalidator.FieldLevel) bool {
		minimum, err := time.ParseDuration(fl.Param())
		if err != nil {
			panic("validation: bad mindur parameter " + fl.Param())
		}
		d, ok := fl.Field().Interface().(time.Duration)
		return ok && d >= minimum
	})
	validate.RegisterTranslation("mindur", trans,
		func(ut ut.Translator) error {
			return ut.Add("mindur", "{0} must be at least {1}", true)
		},
		func(ut ut.Translator, fe govalidator.FieldError) string {
			msg, err := ut.T("mindur", fe.Field(), fe.Param())
			if err != nil {
				return fe.Error()
			}
			return msg
		},
	)
}

// Struct validates v against its `validate` tags
func Struct(v interface{}) error {
	once.Do(setup)
	return validate.Struct(v)
}

// TranslateErrors turns a validation error into a map of field name to
// human-readable message. Other errors are returned under "detail".
func TranslateErrors(err error) map[string]string {
	once.Do(setup)
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	fields["detail"] = err.Error()
	return fields
}

// Message flattens a validation error into one line, fields sorted by name
func Message(err error) string {
	fields := TranslateErrors(err)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fields[k])
	}
	return strings.Join(parts, "; ")
}

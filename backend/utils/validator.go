package utils

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gofiber/fiber/v2"

	"github.com/aimastery/academy/backend/models"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator
)

const tierTag = "tier"

func init() {
	Validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// report JSON names instead of Go field names
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = Validate.RegisterValidation(tierTag, func(fl validator.FieldLevel) bool {
		return models.Tier(fl.Field().String()).Valid()
	})
	_ = Validate.RegisterTranslation(tierTag, Translator,
		func(t ut.Translator) error {
			return t.Add(tierTag, "{0} must be one of free, starter, pro, master", true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(tierTag, fe.Field())
			return msg
		},
	)
}

// ValidateStruct returns field -> message for every failed rule, or nil.
func ValidateStruct(s interface{}) map[string]string {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Translate(Translator)
	}
	return out
}

// ParseBody decodes the JSON body into out and validates it. The returned
// error has already been written to the response.
func ParseBody(c *fiber.Ctx, out interface{}) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, BadRequest(c, "Cannot parse JSON")
	}
	if errs := ValidateStruct(out); errs != nil {
		return false, ValidationError(c, errs)
	}
	return true, nil
}

package validator

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/learnhub/lms-backend/internal/response"
)

// trans is the singleton English translator for validation errors.
var (
	trans     ut.Translator
	setupOnce sync.Once
)

// Failure is a rejected request body.
type Failure struct {
	Code   response.ErrCode
	Fields map[string]string
}

// Setup registers the validator with English translations on Gin's binding engine.
// It is safe to call more than once.
func Setup() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*govalidator.Validate)
		if !ok {
			return
		}

		// Use JSON tag name for field names in error messages.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		enLocale := en.New()
		uni := ut.New(enLocale, enLocale)
		trans, _ = uni.GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		_ = v.RegisterTranslation("mongodb", trans,
			func(ut ut.Translator) error {
				return ut.Add("mongodb", "{0} must be a 24 character hex id", true)
			},
			func(ut ut.Translator, fe govalidator.FieldError) string {
				msg, _ := ut.T("mongodb", fe.Field())
				return msg
			},
		)
	})
}

// TranslateErrors maps a validation error to field name → message.
// Anything else becomes a single "body" entry.
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fieldPath(fe)] = fe.Translate(trans)
		}
		return fields
	}

	fields["body"] = "request body must be valid JSON"
	return fields
}

// Bind binds and validates the request body into dst.
// It returns nil on success.
func Bind(c *gin.Context, dst interface{}) *Failure {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		return &Failure{Code: response.ErrValidation, Fields: TranslateErrors(err)}
	}
	if isMalformedBody(err) {
		return &Failure{Code: response.ErrInvalidPayload, Fields: TranslateErrors(err)}
	}
	return &Failure{Code: response.ErrValidation, Fields: map[string]string{"body": err.Error()}}
}

func isMalformedBody(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// fieldPath drops the top-level struct name so nested fields read
// "questions[0].options[1].optionText".
func fieldPath(fe govalidator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

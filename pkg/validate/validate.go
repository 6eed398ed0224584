package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/ovaphlow/pitchfork/service-learning/pkg/apperr"
)

var (
	personNamePattern   = regexp.MustCompile(`^[a-zA-Z\s\-']+$`)
	categoryNamePattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-]+$`)
	phoneSeparators     = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return PersonName(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return Phone(fl.Field().String())
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	_ = v.RegisterValidation("catname", func(fl validator.FieldLevel) bool {
		return CategoryName(fl.Field().String())
	})
	return v
}

// PersonName accepts 2-100 ASCII letters, spaces, hyphens and apostrophes.
func PersonName(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) >= 2 && len(s) <= 100 && personNamePattern.MatchString(s)
}

// Phone accepts 10-15 digits once spaces, dashes and parentheses are
// removed, with an optional leading plus.
func Phone(s string) bool {
	digits := strings.TrimPrefix(phoneSeparators.Replace(s), "+")
	if len(digits) < 10 || len(digits) > 15 {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// StrongPassword requires 8+ characters with an upper, a lower and a digit.
func StrongPassword(s string) bool {
	if len(s) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

func CategoryName(s string) bool {
	return categoryNamePattern.MatchString(strings.TrimSpace(s))
}

// Struct validates v by its `validate` tags.
func Struct(v any) error {
	if err := validate.Struct(v); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// Var validates a single value, reporting it under field.
func Var(field string, value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) && len(errs) > 0 {
			msg := validationMessage(errs[0])
			return apperr.Newf(apperr.KindValidation, "%s %s", field, msg).
				WithDetails(map[string]string{field: msg})
		}
		return apperr.Wrap(apperr.KindValidation, err, "validation failed")
	}
	return nil
}

// MaxBodyBytes caps every JSON request body.
const MaxBodyBytes int64 = 1 << 20

// DecodeJSON decodes a single JSON value from the request body into dest
// and validates it. Bodies over MaxBodyBytes and trailing data are rejected.
func DecodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, MaxBodyBytes))
	if err := decoder.Decode(dest); err != nil {
		return bodyError(err)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("trailing data after JSON value")
		}
		return bodyError(err)
	}
	return Struct(dest)
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperr.Wrap(apperr.KindPayloadTooLarge, err, "request body too large")
	}
	return apperr.Wrap(apperr.KindValidation, err, "invalid request body")
}

func formatValidationErrors(err error) *apperr.Error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return apperr.Wrap(apperr.KindValidation, err, "validation failed")
	}
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		details[fe.Field()] = validationMessage(fe)
	}
	first := errs[0]
	return apperr.Newf(apperr.KindValidation, "%s %s", first.Field(), validationMessage(first)).
		WithDetails(details)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "personname":
		return "must be 2-100 characters of letters, spaces, hyphens or apostrophes"
	case "phone":
		return "must contain 10-15 digits"
	case "strongpassword":
		return "must be at least 8 characters with an uppercase letter, a lowercase letter and a digit"
	case "catname":
		return "can only contain letters, numbers, spaces, and hyphens"
	}
	return "is invalid"
}

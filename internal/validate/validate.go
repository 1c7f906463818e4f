// Package validate checks test definitions and account payloads before use.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/verte-zerg/ieltsmock/internal/apperrors"
	"github.com/verte-zerg/ieltsmock/internal/model"
)

// Difficulties lists the accepted difficulty levels. Empty is allowed.
var Difficulties = []string{"Beginner", "Intermediate", "Advanced"}

// Validator wraps a configured go-playground validator.
type Validator struct {
	v *validator.Validate
}

// New builds a validator with the custom rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(questionRules, model.Question{})
	v.RegisterStructValidation(testRules, model.Test{})
	return &Validator{v: v}
}

func questionRules(sl validator.StructLevel) {
	q := sl.Current().Interface().(model.Question)
	if q.IsChoice() && len(q.Options) == 0 {
		sl.ReportError(q.Options, "options", "Options", "choice_options", "")
	}
}

func testRules(sl validator.StructLevel) {
	t := sl.Current().Interface().(model.Test)
	if t.Difficulty == "" {
		return
	}
	for _, d := range Difficulties {
		if d == t.Difficulty {
			return
		}
	}
	sl.ReportError(t.Difficulty, "difficulty", "Difficulty", "difficulty_level", "")
}

// Test validates a loaded test definition.
func (v *Validator) Test(t model.Test) error {
	return v.check("validate test", t)
}

// Registration validates a sign-up payload.
func (v *Validator) Registration(r model.Registration) error {
	return v.check("validate registration", r)
}

// ProfileUpdate validates a profile change.
func (v *Validator) ProfileUpdate(p model.ProfileUpdate) error {
	return v.check("validate profile", p)
}

func (v *Validator) check(op string, s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.New(apperrors.KindValidation, op, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return apperrors.New(apperrors.KindValidation, op, errors.New(strings.Join(msgs, "; ")))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s needs at least %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be an email address", field)
	case "choice_options":
		return fmt.Sprintf("%s must list the choices", field)
	case "difficulty_level":
		return fmt.Sprintf("%s must be one of %s", field, strings.Join(Difficulties, ", "))
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

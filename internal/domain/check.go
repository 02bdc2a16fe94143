package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// checker validates input at the edges (CLI, TUI). The session core trusts
// its callers and never calls it.
var checker = newChecker()

// newChecker reports fields by their JSON names.
func newChecker() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CheckValidation reports every field of v that falls outside its allowed
// range. Pending validations only need a finding id: their scores are
// never stored.
func CheckValidation(v Validation) error {
	if v.Status.IsPending() {
		if strings.TrimSpace(v.FindingID) == "" {
			return errors.New("findingId: required")
		}
		return nil
	}
	return describe(checker.Struct(v))
}

// CheckFinding reports malformed findings in ingested input.
func CheckFinding(f Finding) error {
	return describe(checker.Struct(f))
}

// CheckRating reports whether score is a legal 1-5 rating.
func CheckRating(score int) error {
	return describe(checker.Var(score, "min=1,max=5"))
}

// describe flattens validator errors into one readable error.
func describe(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if field == "" {
			field = "value"
		}
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s: required", field))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s: must be one of [%s]", field, fe.Param()))
		case "min":
			parts = append(parts, fmt.Sprintf("%s: must be at least %s, got %v", field, fe.Param(), value(fe)))
		case "max":
			parts = append(parts, fmt.Sprintf("%s: must be at most %s, got %v", field, fe.Param(), value(fe)))
		default:
			parts = append(parts, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(parts, "; "))
}

// value dereferences optional fields for messages.
func value(fe validator.FieldError) any {
	if p, ok := fe.Value().(*int); ok && p != nil {
		return *p
	}
	return fe.Value()
}

package types

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// ValidationPassed is the single message of an entity that passes every rule.
const ValidationPassed = "Validation Passed!"

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9_.+-]+@[A-Za-z0-9-]+\.[A-Za-z0-9.-]+$`)

// validate is shared; validator caches struct metadata per instance.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// The built-in "email" tag is far stricter than the school's rule.
	if err := v.RegisterValidation("school_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("types: register school_email: %v", err))
	}
	return v
}

// fieldMessages maps a struct field to the message reported when any of
// its rules fail.
var fieldMessages = map[string]string{
	"StudentID":    "Not a valid student_id",
	"InstructorID": "Not a valid instructor_id",
	"CourseID":     "Not a valid course id",
	"CourseName":   "Not a valid course name",
	"Name":         "Not a valid name",
	"Age":          "Not a valid age",
	"Email":        "Not a valid email",
}

// check runs the struct tags of v and reports every failing field, in field
// declaration order, never stopping at the first.
func check(v any) Result {
	err := validate.Struct(v)
	if err == nil {
		return Success(ValidationPassed)
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return Failure(ErrValidation, err.Error())
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := fieldMessages[fe.StructField()]
		if !ok {
			msg = fmt.Sprintf("Not a valid %s", fe.Field())
		}
		messages = append(messages, msg)
	}
	return Failure(ErrValidation, messages...)
}

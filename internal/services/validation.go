package services

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// maxPasswordBytes is the longest input bcrypt hashes without truncating.
const maxPasswordBytes = 72

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// FieldError describes one rejected input field.
type FieldError struct {
	Param string `json:"param"`
	Msg   string `json:"msg"`
}

// ValidationError is returned when input fails validation. No write has
// happened when it is returned.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Param+": "+fe.Msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// trimmed returns a copy of *p without surrounding whitespace, or nil.
func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

// invalid returns a ValidationError for a single field.
func invalid(param, msg string) error {
	return &ValidationError{Errors: []FieldError{{Param: param, Msg: msg}}}
}

// fieldMessages maps a field's JSON name to the message shown when it fails.
var fieldMessages = map[string]string{
	"username":    "Username must be at least 3 characters long",
	"fatherName":  "Father name must be at least 3 characters long",
	"familyName":  "Family name must be at least 3 characters long",
	"address":     "Address must be at least 10 characters long",
	"phoneNumber": "Invalid phone number format",
	"email":       "Invalid email format",
	"password":    "Password must be between 5 and 72 characters long",
	"accountType": "Invalid account type",
	"userid":      "User id is required",
	"bookid":      "Book id is required",
	"bookname":    "Book name is required",
	"grade":       "Grade is required",
	"subject":     "Subject is required",
	"name":        "Name is required",
	"status":      "Status is required",
	"count":       "Count must be a non-negative number",
	"category":    "Invalid category",
}

// Validator wraps go-playground/validator with the portal's custom rules
// and error shape.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("bcryptmax", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= maxPasswordBytes
	})
	return &Validator{v: v}
}

// Struct validates s and converts failures into a *ValidationError.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Errors: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, FieldError{
			Param: fe.Field(),
			Msg:   messageFor(fe),
		})
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Field()]; ok {
		return msg
	}
	return "Invalid value"
}

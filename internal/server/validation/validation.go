// Package validation checks user input before anything reaches a store or
// a credential backend. Failures are reported as *Error, a list of
// per-field messages suitable for a 400 response.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/hiinen/internal/server/models"
)

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// bcrypt rejects longer input.
const maxPasswordBytes = 72

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is returned for invalid input. Fields is never empty.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// As unwraps err into *Error.
func As(err error) (*Error, bool) {
	var ve *Error
	ok := errors.As(err, &ve)
	return ve, ok
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("useremail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= n
	})
	return v
}

type signUp struct {
	FullName string `json:"fullName" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,max=254,useremail"`
	Password string `json:"password" validate:"required,min=6,maxbytes=72"`
	UserType string `json:"userType" validate:"omitempty,oneof=entrepreneur mentor"`
}

// SignUp validates a registration request. Only the entrepreneur and mentor
// types may be self-assigned.
func SignUp(fullName, email, password, userType string) error {
	return check(validate.Struct(signUp{
		FullName: strings.TrimSpace(fullName),
		Email:    models.NormalizeEmail(email),
		Password: password,
		UserType: userType,
	}))
}

type login struct {
	Email    string `json:"email" validate:"required,useremail"`
	Password string `json:"password" validate:"required"`
}

func Login(email, password string) error {
	return check(validate.Struct(login{Email: models.NormalizeEmail(email), Password: password}))
}

type user struct {
	FullName   string   `json:"fullName" validate:"required,min=2,max=50"`
	Email      string   `json:"email" validate:"required,max=254,useremail"`
	UserType   string   `json:"userType" validate:"required,oneof=entrepreneur mentor admin"`
	Bio        string   `json:"bio" validate:"max=500"`
	Experience string   `json:"experience" validate:"required,oneof=beginner intermediate advanced expert"`
	Avatar     string   `json:"avatar" validate:"omitempty,url"`
	Skills     []string `json:"skills" validate:"max=50,dive,max=100"`
	Interests  []string `json:"interests" validate:"max=50,dive,max=100"`
}

// User validates the persisted shape of u.
func User(u *models.User) error {
	return check(validate.Struct(user{
		FullName:   u.Name,
		Email:      u.Email,
		UserType:   string(u.Role),
		Bio:        u.Profile.Bio,
		Experience: string(u.Profile.Experience),
		Avatar:     u.Profile.Avatar,
		Skills:     u.Profile.Skills,
		Interests:  u.Profile.Interests,
	}))
}

// NewUser validates u plus its initial password. The password may be empty
// only when an external identity is linked.
func NewUser(u *models.User, password string) error {
	var fields []FieldError
	if ve, ok := As(User(u)); ok {
		fields = append(fields, ve.Fields...)
	}
	if password != "" || u.External.IsZero() {
		if ve, ok := As(Password("password", password)); ok {
			fields = append(fields, ve.Fields...)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &Error{Fields: fields}
}

// Password checks a plaintext password reported under field.
func Password(field, password string) error {
	return checkVar(field, validate.Var(password, fmt.Sprintf("required,min=6,maxbytes=%d", maxPasswordBytes)))
}

// ChangePassword validates a password change request.
func ChangePassword(current, next string) error {
	var fields []FieldError
	if current == "" {
		fields = append(fields, FieldError{Field: "currentPassword", Message: "currentPassword is required"})
	}
	if ve, ok := As(Password("newPassword", next)); ok {
		fields = append(fields, ve.Fields...)
	}
	if len(fields) == 0 {
		return nil
	}
	return &Error{Fields: fields}
}

// Required reports a single missing field.
func Required(field string) error {
	return &Error{Fields: []FieldError{{Field: field, Message: field + " is required"}}}
}

func check(err error) error {
	return checkVar("", err)
}

func checkVar(field string, err error) error {
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("validation: %w", err)
	}

	out := &Error{Fields: make([]FieldError, 0, len(ve))}
	for _, fe := range ve {
		name := field
		if name == "" {
			name = fieldPath(fe)
		}
		out.Fields = append(out.Fields, FieldError{Field: name, Message: message(name, fe)})
	}
	return out
}

// fieldPath drops the struct name from the namespace, e.g. "skills[2]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func message(name string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "useremail":
		return "Please enter a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at most %s entries", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url":
		return name + " must be a valid URL"
	default:
		return fmt.Sprintf("%s failed the %q check", name, fe.Tag())
	}
}

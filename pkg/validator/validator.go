package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator collects structural violations for a submitted request. Checks are
// pure: nothing here consults stored account state.
type Validator struct {
	errors ValidationErrors
}

func New() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

func (v *Validator) MinLength(field, value string, min int) *Validator {
	if utf8.RuneCountInString(value) < min {
		v.AddError(field, fmt.Sprintf("must be at least %d characters", min))
	}
	return v
}

func (v *Validator) MaxLength(field, value string, max int) *Validator {
	if utf8.RuneCountInString(value) > max {
		v.AddError(field, fmt.Sprintf("must be at most %d characters", max))
	}
	return v
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func (v *Validator) Email(field, value string) *Validator {
	if value != "" && !emailRegex.MatchString(value) {
		v.AddError(field, "must be a valid email address")
	}
	return v
}

const minPasswordLength = 8

// ValidateRegistrationRequest checks a registration submission: names, email
// and password must be non-blank, the email well-formed, the password at least
// eight characters.
func ValidateRegistrationRequest(firstName, lastName, email, password string) ValidationErrors {
	v := New()

	v.Required("first_name", firstName)
	v.Required("last_name", lastName)

	v.Required("email", email).
		MaxLength("email", email, 255).
		Email("email", email)

	v.Required("password", password).
		MinLength("password", password, minPasswordLength)

	return v.Errors()
}

// ValidateAuthenticationRequest checks a login submission.
func ValidateAuthenticationRequest(email, password string) ValidationErrors {
	v := New()

	v.Required("email", email).
		MaxLength("email", email, 255).
		Email("email", email)

	v.Required("password", password).
		MinLength("password", password, minPasswordLength)

	return v.Errors()
}

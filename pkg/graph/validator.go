package graph

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// FieldError is the structured, field-scoped error returned by the
// register/login/password flows instead of a raw failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type fieldValidator struct {
	field string
	value string
}

func (v *fieldValidator) empty() *FieldError {
	if utf8.RuneCountInString(v.value) == 0 {
		return &FieldError{Field: v.field, Message: "cannot be blank"}
	}

	return nil
}

func (v *fieldValidator) minLength(min int) *FieldError {
	if utf8.RuneCountInString(v.value) < min {
		return &FieldError{Field: v.field, Message: fmt.Sprintf("must be at least %d characters long", min)}
	}

	return nil
}

func (v *fieldValidator) maxLength(max int) *FieldError {
	if utf8.RuneCountInString(v.value) > max {
		return &FieldError{Field: v.field, Message: fmt.Sprintf("must be at most %d characters long", max)}
	}

	return nil
}

func (v *fieldValidator) matches(regexpStr, msg string) *FieldError {
	r, _ := regexp.Compile(regexpStr)
	if !r.MatchString(v.value) {
		return &FieldError{Field: v.field, Message: msg}
	}

	return nil
}

func (v *fieldValidator) custom(validate func(string) bool, msg string) *FieldError {
	if !validate(v.value) {
		return &FieldError{Field: v.field, Message: msg}
	}

	return nil
}

func validateRegister(username, email, password string) []*FieldError {
	usr := &fieldValidator{field: "username", value: username}
	usrErr := func() *FieldError {
		if err := usr.empty(); err != nil {
			return err
		}
		if err := usr.minLength(3); err != nil {
			return err
		}
		if err := usr.maxLength(32); err != nil {
			return err
		}
		if err := usr.custom(func(value string) bool {
			return !strings.Contains(value, "@")
		}, "cannot include an @ symbol"); err != nil {
			return err
		}
		return usr.matches("^[a-zA-Z0-9_-]+$", "contains invalid characters")
	}()

	eml := &fieldValidator{field: "email", value: email}
	emlErr := func() *FieldError {
		if err := eml.empty(); err != nil {
			return err
		}
		return eml.matches("^[^@\\s]+@[^@\\s]+$", "invalid email address")
	}()

	pwd := &fieldValidator{field: "password", value: password}
	pwdErr := func() *FieldError {
		if err := pwd.empty(); err != nil {
			return err
		}
		if err := pwd.minLength(3); err != nil {
			return err
		}
		return pwd.maxLength(72)
	}()

	return mergeErrors(usrErr, emlErr, pwdErr)
}

func mergeErrors(validations ...*FieldError) []*FieldError {
	result := make([]*FieldError, 0, 2)

	for _, err := range validations {
		if err == nil {
			continue
		}

		result = append(result, err)
	}

	return result
}

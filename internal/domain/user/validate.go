package user

import "regexp"

const (
	MaxEmailLen    = 30
	MinPasswordLen = 6
	MaxPasswordLen = 30
)

// Borrowed from https://www.regextester.com/19
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// ValidateEmail enforces the registration rules: present, at most 30
// characters, and a valid address.
func ValidateEmail(email string) error {
	if email == "" || len(email) > MaxEmailLen || !emailPattern.MatchString(email) {
		return &ValidationError{Field: "email", Reason: "Invalid email address"}
	}

	return nil
}

// ValidatePassword enforces the 6-30 character plaintext length rule.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLen || len(password) > MaxPasswordLen {
		return &ValidationError{Field: "password", Reason: "Invalid password, must be between 6 and 30 characters"}
	}

	return nil
}

// ValidateCreate runs the field validators in registration order: email
// first, then password. The first failure wins.
func ValidateCreate(req CreateUserRequest) error {
	if err := ValidateEmail(req.Email); err != nil {
		return err
	}

	return ValidatePassword(req.Password)
}

// ValidateUpdate runs the same field validators, but only for the fields
// present in the partial payload.
func ValidateUpdate(req UpdateUserRequest) error {
	if req.Email != nil {
		if err := ValidateEmail(*req.Email); err != nil {
			return err
		}
	}

	if req.Password != nil {
		if err := ValidatePassword(*req.Password); err != nil {
			return err
		}
	}

	return nil
}

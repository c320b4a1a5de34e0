// Package validation checks operator input before it is handed to the panel CLI.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/pandeptwidyaop/panelctl/internal/apperr"
)

var (
	// ErrPasswordTooShort indicates password is less than minimum length.
	ErrPasswordTooShort = fmt.Errorf("%w: password must be at least 8 characters", apperr.ErrValidation)
	// ErrPasswordNoUppercase indicates password has no uppercase letter.
	ErrPasswordNoUppercase = fmt.Errorf("%w: password must contain at least one uppercase letter", apperr.ErrValidation)
	// ErrPasswordNoLowercase indicates password has no lowercase letter.
	ErrPasswordNoLowercase = fmt.Errorf("%w: password must contain at least one lowercase letter", apperr.ErrValidation)
	// ErrPasswordNoDigit indicates password has no digit.
	ErrPasswordNoDigit = fmt.Errorf("%w: password must contain at least one digit", apperr.ErrValidation)
	// ErrPasswordNoSpecial indicates password has no special character.
	ErrPasswordNoSpecial = fmt.Errorf("%w: password must contain at least one special character", apperr.ErrValidation)
	// ErrPasswordCommon indicates password is too common.
	ErrPasswordCommon = fmt.Errorf("%w: password is too common, please choose a stronger password", apperr.ErrValidation)
	// ErrInputTooLong indicates input exceeds maximum length.
	ErrInputTooLong = fmt.Errorf("%w: input exceeds maximum length", apperr.ErrValidation)
	// ErrInputInvalid indicates input contains invalid characters.
	ErrInputInvalid = fmt.Errorf("%w: input contains invalid characters", apperr.ErrValidation)
	// ErrInputEmpty indicates a required value was left blank.
	ErrInputEmpty = fmt.Errorf("%w: value is required", apperr.ErrValidation)
)

var (
	emailPattern    = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.\-]*$`)
	namePattern     = regexp.MustCompile(`^[\p{L}\p{M}0-9 '\-.]+$`)
)

// PasswordPolicy defines password requirements.
type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireDigit     bool
	RequireSpecial   bool
	CheckCommon      bool
}

// DefaultPasswordPolicy mirrors the rules the panel enforces for accounts.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireDigit:     true,
		CheckCommon:      true,
	}
}

// Common passwords that should be rejected
var commonPasswords = map[string]bool{
	"password":    true,
	"12345678":    true,
	"password1":   true,
	"password123": true,
	"qwerty123":   true,
	"passw0rd":    true,
	"letmein1":    true,
	"welcome1":    true,
	"admin123":    true,
	"iloveyou1":   true,
}

// ValidatePassword validates a password against the policy.
func ValidatePassword(password string, policy PasswordPolicy) error {
	if len(password) < policy.MinLength {
		return ErrPasswordTooShort
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	if policy.RequireUppercase && !hasUpper {
		return ErrPasswordNoUppercase
	}
	if policy.RequireLowercase && !hasLower {
		return ErrPasswordNoLowercase
	}
	if policy.RequireDigit && !hasDigit {
		return ErrPasswordNoDigit
	}
	if policy.RequireSpecial && !hasSpecial {
		return ErrPasswordNoSpecial
	}

	if policy.CheckCommon && commonPasswords[strings.ToLower(password)] {
		return ErrPasswordCommon
	}

	return nil
}

// ValidatePasswordWithDefault validates using default policy.
func ValidatePasswordWithDefault(password string) error {
	return ValidatePassword(password, DefaultPasswordPolicy())
}

// ValidateEmail checks the address is plausible and safe to embed in a
// single-quoted PHP string.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrInputEmpty
	}
	if len(email) > 191 {
		return ErrInputTooLong
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: %q is not a valid email address", apperr.ErrValidation, email)
	}
	return nil
}

// ValidateUsername validates a panel username.
func ValidateUsername(username string) error {
	if len(username) < 1 {
		return ErrInputEmpty
	}
	if len(username) > 191 {
		return ErrInputTooLong
	}
	if !usernamePattern.MatchString(username) {
		return errors.Join(ErrInputInvalid,
			errors.New("username must start with a letter or digit and contain only letters, digits, '_', '-' and '.'"))
	}
	return nil
}

// ValidateName validates a first or last name.
func ValidateName(name string, maxLength int) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInputEmpty
	}
	if len(name) > maxLength {
		return ErrInputTooLong
	}
	if !namePattern.MatchString(name) {
		return ErrInputInvalid
	}
	return nil
}

// ValidateArguments rejects pass-through arguments that could not have
// been typed on a command line.
func ValidateArguments(args []string, maxLength int) error {
	total := 0
	for _, a := range args {
		if strings.ContainsAny(a, "\x00\n\r") {
			return ErrInputInvalid
		}
		total += len(a)
	}
	if total > maxLength {
		return ErrInputTooLong
	}
	return nil
}

// ValidatePath validates an absolute file system path.
func ValidatePath(path string) error {
	if strings.Contains(path, "..") {
		return ErrInputInvalid
	}
	if !strings.HasPrefix(path, "/") {
		return ErrInputInvalid
	}
	if strings.ContainsAny(path, "\x00\n\r") {
		return ErrInputInvalid
	}
	return nil
}

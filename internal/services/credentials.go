package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/nabzkeeper/internal/common"
	"github.com/dmitrijs2005/nabzkeeper/internal/config"
)

var (
	phoneChars  = regexp.MustCompile(`^[0-9+\-\s()]+$`)
	phoneFormat = regexp.MustCompile(`^[0-9+\-\s()]{8,15}$`)
)

func validatePhone(fl validator.FieldLevel) bool {
	return phoneFormat.MatchString(fl.Field().String())
}

// credentialRules checks usernames and passwords before registration.
type credentialRules struct {
	validate          *validator.Validate
	loginType         string
	minUsernameLength int
	minPasswordLength int
}

func newCredentialRules(cfg *config.Config) *credentialRules {
	restricted := make(map[string]struct{}, len(cfg.RestrictedUsernames))
	for _, name := range cfg.RestrictedUsernames {
		restricted[strings.ToLower(name)] = struct{}{}
	}

	v := validator.New()
	_ = v.RegisterValidation("phone", validatePhone)
	_ = v.RegisterValidation("unrestricted", func(fl validator.FieldLevel) bool {
		_, taken := restricted[strings.ToLower(fl.Field().String())]
		return !taken
	})

	return &credentialRules{
		validate:          v,
		loginType:         strings.ToLower(cfg.LoginType),
		minUsernameLength: cfg.MinUsernameLength,
		minPasswordLength: cfg.MinPasswordLength,
	}
}

func (r *credentialRules) checkUsername(username string) error {
	if err := r.validate.Var(username, fmt.Sprintf("min=%d", r.minUsernameLength)); err != nil {
		return fmt.Errorf("%w: username must be at least %d characters", common.ErrValidation, r.minUsernameLength)
	}
	if err := r.validate.Var(username, "unrestricted"); err != nil {
		return fmt.Errorf("%w: this username is not available", common.ErrValidation)
	}

	allowsEmail := r.loginType == config.LoginTypeEmail || r.loginType == config.LoginTypeAny
	if allowsEmail && strings.Contains(username, "@") {
		if err := r.validate.Var(username, "email"); err != nil {
			return fmt.Errorf("%w: invalid email format", common.ErrValidation)
		}
	}

	allowsPhone := r.loginType == config.LoginTypePhone || r.loginType == config.LoginTypeAny
	if allowsPhone && phoneChars.MatchString(username) {
		if err := r.validate.Var(username, "phone"); err != nil {
			return fmt.Errorf("%w: invalid phone number format", common.ErrValidation)
		}
	}
	return nil
}

func (r *credentialRules) checkPassword(password string) error {
	if err := r.validate.Var(password, fmt.Sprintf("min=%d", r.minPasswordLength)); err != nil {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrValidation, r.minPasswordLength)
	}
	return nil
}

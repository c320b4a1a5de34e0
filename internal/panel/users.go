package panel

import (
	"context"
	"fmt"
	"log"

	"github.com/pandeptwidyaop/panelctl/internal/apperr"
	"github.com/pandeptwidyaop/panelctl/internal/runner"
	"github.com/pandeptwidyaop/panelctl/internal/validation"
)

// NewUser holds the fields p:user:make needs.
type NewUser struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password  string
	Admin     bool
}

// Validate checks every field before anything is sent to the panel.
func (u NewUser) Validate() error {
	if err := validation.ValidateEmail(u.Email); err != nil {
		return err
	}
	if err := validation.ValidateUsername(u.Username); err != nil {
		return err
	}
	if err := validation.ValidateName(u.FirstName, 191); err != nil {
		return fmt.Errorf("first name: %w", err)
	}
	if err := validation.ValidateName(u.LastName, 191); err != nil {
		return fmt.Errorf("last name: %w", err)
	}
	return validation.ValidatePasswordWithDefault(u.Password)
}

// CreateUser creates a panel account. The password is masked in logs.
func (p *Panel) CreateUser(ctx context.Context, u NewUser) error {
	if err := u.Validate(); err != nil {
		return err
	}

	admin := "0"
	if u.Admin {
		admin = "1"
	}
	c := p.Command(
		"p:user:make",
		"--email="+u.Email,
		"--username="+u.Username,
		"--name-first="+u.FirstName,
		"--name-last="+u.LastName,
		"--password="+u.Password,
		"--admin="+admin,
		"--no-interaction",
	)
	c.Secrets = []string{u.Password}

	if _, err := p.exec(ctx, c); err != nil {
		return err
	}
	log.Printf("[Panel] Created user %s (admin=%t)", u.Email, u.Admin)
	return nil
}

// DeleteUser removes the account identified by email.
func (p *Panel) DeleteUser(ctx context.Context, email string, confirmed bool) error {
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}
	if !confirmed {
		return apperr.ErrConfirmationDeclined
	}
	if _, err := p.Artisan(ctx, "p:user:delete", "--user="+email, "--no-interaction"); err != nil {
		return err
	}
	log.Printf("[Panel] Deleted user %s", email)
	return nil
}

// DisableTwoFactor turns off two-factor authentication for an account.
func (p *Panel) DisableTwoFactor(ctx context.Context, email string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}
	if _, err := p.Artisan(ctx, "p:user:disable2fa", "--email="+email, "--no-interaction"); err != nil {
		return err
	}
	log.Printf("[Panel] Disabled 2FA for %s", email)
	return nil
}

// SetAdmin grants or revokes administrator rights. The panel has no
// command for this, so the change is made through tinker. The email is
// validated first so it is safe inside the quoted PHP literal.
func (p *Panel) SetAdmin(ctx context.Context, email string, admin, confirmed bool) error {
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}
	if !confirmed {
		return apperr.ErrConfirmationDeclined
	}

	flag := 0
	if admin {
		flag = 1
	}
	code := fmt.Sprintf(
		`echo \Pterodactyl\Models\User::where('email', '%s')->update(['root_admin' => %d]);`,
		email, flag,
	)
	out, err := p.Artisan(ctx, "tinker", "--execute="+code)
	if err != nil {
		return err
	}
	if runner.LastLine(out) == "0" {
		return fmt.Errorf("%w: no user with email %s", apperr.ErrNotFound, email)
	}

	log.Printf("[Panel] Set root_admin=%d for %s", flag, email)
	return nil
}

package console

import (
	"context"
	"fmt"

	"github.com/pandeptwidyaop/panelctl/internal/panel"
)

func (c *Controller) maintenanceMenu(ctx context.Context) error {
	state := "off"
	if c.Panel.IsInMaintenance() {
		state = "on"
	}
	c.field("Maintenance mode", state)
	return c.loop(ctx, "Maintenance mode", "Back", []menuItem{
		{"Enable maintenance mode", func(ctx context.Context) error {
			return c.do("Enable maintenance mode", c.Panel.Root(), func() error {
				return c.Panel.MaintenanceOn(ctx)
			})
		}},
		{"Disable maintenance mode", func(ctx context.Context) error {
			return c.do("Disable maintenance mode", c.Panel.Root(), func() error {
				return c.Panel.MaintenanceOff(ctx)
			})
		}},
	})
}

func (c *Controller) userMenu(ctx context.Context) error {
	return c.loop(ctx, "Users", "Back", []menuItem{
		{"Create user", c.createUser},
		{"Delete user", c.deleteUser},
		{"Disable two-factor authentication", c.disable2FA},
		{"Grant administrator rights", func(ctx context.Context) error { return c.setAdmin(ctx, true) }},
		{"Revoke administrator rights", func(ctx context.Context) error { return c.setAdmin(ctx, false) }},
	})
}

func (c *Controller) createUser(ctx context.Context) error {
	var u panel.NewUser
	var err error
	if u.Email, err = c.readLine("Email: "); err != nil {
		return err
	}
	if u.Username, err = c.readLine("Username: "); err != nil {
		return err
	}
	if u.FirstName, err = c.readLine("First name: "); err != nil {
		return err
	}
	if u.LastName, err = c.readLine("Last name: "); err != nil {
		return err
	}
	if u.Password, err = c.readSecret("Password: "); err != nil {
		return err
	}
	if u.Admin, err = c.confirm("Make this user an administrator?"); err != nil {
		return err
	}
	return c.do("Create user", u.Email, func() error {
		return c.Panel.CreateUser(ctx, u)
	})
}

func (c *Controller) deleteUser(ctx context.Context) error {
	email, err := c.readLine("Email of the user to delete: ")
	if err != nil {
		return err
	}
	ok, err := c.confirm(fmt.Sprintf("Delete %s? Their servers must be removed first.", email))
	if err != nil {
		return err
	}
	return c.do("Delete user", email, func() error {
		return c.Panel.DeleteUser(ctx, email, ok)
	})
}

func (c *Controller) disable2FA(ctx context.Context) error {
	email, err := c.readLine("Email: ")
	if err != nil {
		return err
	}
	return c.do("Disable 2FA", email, func() error {
		return c.Panel.DisableTwoFactor(ctx, email)
	})
}

func (c *Controller) setAdmin(ctx context.Context, admin bool) error {
	email, err := c.readLine("Email: ")
	if err != nil {
		return err
	}
	action, question := "Grant admin", fmt.Sprintf("Give %s full control of the panel?", email)
	if !admin {
		action, question = "Revoke admin", fmt.Sprintf("Remove administrator rights from %s?", email)
	}
	ok, err := c.confirm(question)
	if err != nil {
		return err
	}
	return c.do(action, email, func() error {
		return c.Panel.SetAdmin(ctx, email, admin, ok)
	})
}

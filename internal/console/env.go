package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pandeptwidyaop/panelctl/internal/apperr"
)

// sensitiveMarkers hide values whose key contains one of them.
var sensitiveMarkers = []string{"PASSWORD", "SECRET", "KEY", "TOKEN"}

func isSensitive(key string) bool {
	upper := strings.ToUpper(key)
	for _, m := range sensitiveMarkers {
		if strings.Contains(upper, m) {
			return true
		}
	}
	return false
}

// Mask hides the value of keys that look like credentials.
func Mask(key, value string) string {
	if value == "" || !isSensitive(key) {
		return value
	}
	return "********"
}

func (c *Controller) envMenu(ctx context.Context) error {
	if c.Env == nil {
		err := fmt.Errorf("%w: environment file %s", apperr.ErrNotFound, c.Config.Panel.EnvPath())
		c.report("Open environment", err)
		return err
	}
	return c.loop(ctx, "Environment ("+c.Env.Path()+")", "Back", []menuItem{
		{"Show all settings", c.showEnv},
		{"Get a setting", c.getEnv},
		{"Change a setting", c.setEnv},
		{"Toggle debug mode", c.toggleDebug},
		{"Set application URL", c.setAppURL},
		{"Set timezone", c.setTimezone},
		{"Regenerate application key", c.regenerateKey},
	})
}

func (c *Controller) showEnv(ctx context.Context) error {
	entries, err := c.Env.Entries()
	if err != nil {
		c.report("Read environment", err)
		return err
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Key, Mask(e.Key, e.Value)})
	}
	c.table([]string{"KEY", "VALUE"}, rows)
	return nil
}

func (c *Controller) getEnv(ctx context.Context) error {
	key, err := c.readLine("Key: ")
	if err != nil {
		return err
	}
	v, ok, err := c.Env.Get(key)
	if err != nil {
		c.report("Read "+key, err)
		return err
	}
	if !ok {
		c.info("%s is not set.", key)
		return nil
	}
	c.field(key, Mask(key, v))
	return nil
}

func (c *Controller) setEnv(ctx context.Context) error {
	key, err := c.readLine("Key: ")
	if err != nil {
		return err
	}
	var value string
	if isSensitive(key) {
		value, err = c.readSecret("New value: ")
	} else {
		value, err = c.in.ReadLine("New value: ")
		if err != nil {
			err = inputError{err}
		}
	}
	if err != nil {
		return err
	}
	return c.writeEnv(ctx, key, value)
}

// writeEnv stores one setting and clears the panel's config cache so it
// takes effect. A failed cache clear is shown as a warning only.
func (c *Controller) writeEnv(ctx context.Context, key, value string) error {
	err := c.do("Set "+key, c.Env.Path(), func() error {
		return c.Env.Set(key, value)
	})
	if err != nil {
		return err
	}
	if err := c.Panel.ClearCaches(ctx); err != nil {
		c.info("%s %v", styleWarn.Render("Setting saved, but clearing the config cache failed:"), err)
	}
	return nil
}

func (c *Controller) toggleDebug(ctx context.Context) error {
	current := c.Env.Lookup("APP_DEBUG", "false")
	next := "true"
	if strings.EqualFold(current, "true") {
		next = "false"
	}
	c.field("APP_DEBUG", current+" → "+next)
	if next == "true" {
		fmt.Fprintln(c.out, styleWarn.Render("Debug mode shows stack traces to visitors; turn it off when done."))
	}
	return c.writeEnv(ctx, "APP_DEBUG", next)
}

func (c *Controller) setAppURL(ctx context.Context) error {
	c.field("APP_URL", c.Env.Lookup("APP_URL", "(unset)"))
	url, err := c.readLine("New URL: ")
	if err != nil {
		return err
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		err := fmt.Errorf("%w: URL must start with http:// or https://", apperr.ErrValidation)
		c.report("Set APP_URL", err)
		return err
	}
	return c.writeEnv(ctx, "APP_URL", strings.TrimRight(url, "/"))
}

func (c *Controller) setTimezone(ctx context.Context) error {
	c.field("APP_TIMEZONE", c.Env.Lookup("APP_TIMEZONE", "(unset)"))
	tz, err := c.readLine("New timezone (e.g. Europe/Amsterdam): ")
	if err != nil {
		return err
	}
	if _, lerr := time.LoadLocation(tz); lerr != nil || tz == "" {
		err := fmt.Errorf("%w: unknown timezone %q", apperr.ErrValidation, tz)
		c.report("Set APP_TIMEZONE", err)
		return err
	}
	return c.writeEnv(ctx, "APP_TIMEZONE", tz)
}

func (c *Controller) regenerateKey(ctx context.Context) error {
	fmt.Fprintln(c.out, styleWarn.Render(
		"A new APP_KEY makes every value encrypted with the old key unreadable, including stored node and API credentials."))
	ok, err := c.confirm("Regenerate the application key?")
	if err != nil {
		return err
	}
	return c.do("Regenerate application key", c.Env.Path(), func() error {
		return c.Panel.GenerateKey(ctx, ok)
	})
}

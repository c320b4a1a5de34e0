// Package console implements the interactive operator menu.
//
// Every action runs synchronously. Its outcome is always printed and
// logged, errors return the operator to the menu, and irreversible actions
// ask for confirmation first.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/pandeptwidyaop/panelctl/internal/apperr"
	"github.com/pandeptwidyaop/panelctl/internal/backup"
	"github.com/pandeptwidyaop/panelctl/internal/config"
	"github.com/pandeptwidyaop/panelctl/internal/envfile"
	"github.com/pandeptwidyaop/panelctl/internal/history"
	"github.com/pandeptwidyaop/panelctl/internal/panel"
	"github.com/pandeptwidyaop/panelctl/internal/runner"
	"github.com/pandeptwidyaop/panelctl/internal/service"
	"github.com/pandeptwidyaop/panelctl/internal/update"
)

// Interactive runs a command attached to the operator's terminal.
type Interactive interface {
	RunInteractive(ctx context.Context, c runner.Command) error
}

// Deps are the components the console dispatches to. History and
// Interactive may be nil.
type Deps struct {
	Config      *config.Config
	Env         *envfile.Store
	Backups     *backup.Manager
	Panel       *panel.Panel
	Services    *service.Manager
	Updater     *update.Updater
	History     *history.Service
	Runner      runner.Runner
	Interactive Interactive
}

// Controller presents the menus.
type Controller struct {
	Deps
	in  InputProvider
	out io.Writer
}

// New returns a Controller reading from in and writing to out.
func New(deps Deps, in InputProvider, out io.Writer) *Controller {
	return &Controller{Deps: deps, in: in, out: out}
}

type menuItem struct {
	label string
	run   func(ctx context.Context) error
}

// Run shows the main menu until the operator exits or input ends.
func (c *Controller) Run(ctx context.Context) error {
	log.Printf("[Console] Session started")
	defer log.Printf("[Console] Session ended")

	items := []menuItem{
		{"Backups", c.backupMenu},
		{"Environment settings", c.envMenu},
		{"Maintenance mode", c.maintenanceMenu},
		{"Users", c.userMenu},
		{"Services", c.serviceMenu},
		{"Tail panel log", c.tailLog},
		{"Run artisan command", c.artisanPassthrough},
		{"Update panel", c.updatePanel},
		{"Status", c.Status},
		{"Recent operations", c.ShowHistory},
	}
	err := c.loop(ctx, "Panel console", "Exit", items)
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(c.out)
		return nil
	}
	return err
}

// loop shows a menu until 0 is chosen. Only input errors end it.
func (c *Controller) loop(ctx context.Context, title, back string, items []menuItem) error {
	for {
		n, err := c.choose(title, back, items)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if err := items[n-1].run(ctx); err != nil && isInputError(err) {
			return err
		}
	}
}

// choose prints a numbered menu and re-prompts until a valid number is
// entered.
func (c *Controller) choose(title, back string, items []menuItem) (int, error) {
	for {
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, styleTitle.Render(title))
		fmt.Fprintln(c.out, styleDivider.Render(strings.Repeat("─", len(title)+4)))
		for i, it := range items {
			fmt.Fprintf(c.out, "  %s %s\n", styleKey.Render(fmt.Sprintf("%2d)", i+1)), styleOption.Render(it.label))
		}
		fmt.Fprintf(c.out, "  %s %s\n", styleKey.Render(" 0)"), styleOption.Render(back))

		answer, err := c.in.ReadLine("Select an option: ")
		if err != nil {
			return 0, inputError{err}
		}
		n, err := strconv.Atoi(strings.TrimSpace(answer))
		if err != nil || n < 0 || n > len(items) {
			fmt.Fprintln(c.out, styleWarn.Render(fmt.Sprintf("Invalid selection %q, choose 0-%d.", answer, len(items))))
			continue
		}
		return n, nil
	}
}

// inputError marks failures reading operator input, which end the menu.
type inputError struct{ err error }

func (e inputError) Error() string { return e.err.Error() }
func (e inputError) Unwrap() error { return e.err }

func isInputError(err error) bool {
	var ie inputError
	return errors.As(err, &ie)
}

func (c *Controller) readLine(prompt string) (string, error) {
	s, err := c.in.ReadLine(prompt)
	if err != nil {
		return "", inputError{err}
	}
	return strings.TrimSpace(s), nil
}

func (c *Controller) readSecret(prompt string) (string, error) {
	s, err := c.in.ReadSecret(prompt)
	if err != nil {
		return "", inputError{err}
	}
	return s, nil
}

func (c *Controller) confirm(prompt string) (bool, error) {
	ok, err := c.in.Confirm(prompt)
	if err != nil {
		return false, inputError{err}
	}
	return ok, nil
}

// do runs fn as one recorded operation and reports its outcome.
func (c *Controller) do(action, target string, fn func() error) error {
	var err error
	if c.History != nil {
		err = c.History.Track(action, target, fn)
	} else {
		err = fn()
	}
	c.report(action, err)
	return err
}

// report prints and logs the outcome of an action.
func (c *Controller) report(action string, err error) {
	switch {
	case err == nil:
		log.Printf("[Console] %s: success", action)
		fmt.Fprintln(c.out, styleOK.Render("✔ "+action+" succeeded."))
	case isInputError(err):
		log.Printf("[Console] %s: input closed", action)
	case apperr.IsDeclined(err):
		log.Printf("[Console] %s: aborted by operator", action)
		fmt.Fprintln(c.out, styleWarn.Render("Aborted."))
	default:
		log.Printf("[Console] %s: failed: %v", action, err)
		fmt.Fprintln(c.out, styleFail.Render("✘ "+action+" failed: "+err.Error()))
	}
}

func (c *Controller) info(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

func (c *Controller) field(label, value string) {
	fmt.Fprintf(c.out, "  %s %s\n", styleLabel.Render(label+":"), value)
}

func (c *Controller) table(header []string, rows [][]string) {
	tw := tablewriter.NewWriter(c.out)
	tw.SetHeader(header)
	tw.SetAutoWrapText(false)
	tw.AppendBulk(rows)
	tw.Render()
}

// pick lets the operator choose one of labels by number; 0 cancels and
// returns -1.
func (c *Controller) pick(prompt string, labels []string) (int, error) {
	for i, l := range labels {
		fmt.Fprintf(c.out, "  %s %s\n", styleKey.Render(fmt.Sprintf("%2d)", i+1)), l)
	}
	for {
		answer, err := c.readLine(prompt + " (0 to cancel): ")
		if err != nil {
			return -1, err
		}
		n, convErr := strconv.Atoi(answer)
		if convErr != nil || n < 0 || n > len(labels) {
			fmt.Fprintln(c.out, styleWarn.Render(fmt.Sprintf("Invalid selection %q, choose 0-%d.", answer, len(labels))))
			continue
		}
		return n - 1, nil
	}
}

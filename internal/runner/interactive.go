package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// RunInteractive runs c attached to the operator's terminal through a
// pseudo-terminal, so prompts of the child program work as if it had been
// started from a shell. Output is not captured.
func (r *ExecRunner) RunInteractive(ctx context.Context, c Command) error {
	log.Printf("[Runner] Running interactively %s", c)

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	cmd.Env = append(cmd.Env, c.Env...)

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return wrapExit(c.Name, cmd.Run())
	}

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("%w: failed to start PTY: %v", ErrCommandFailed, err)
	}
	defer func() { _ = ptmx.Close() }()

	resize := make(chan os.Signal, 1)
	signal.Notify(resize, syscall.SIGWINCH)
	defer signal.Stop(resize)
	go func() {
		for range resize {
			_ = pty.InheritSize(os.Stdin, ptmx)
		}
	}()
	resize <- syscall.SIGWINCH

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("%w: failed to set raw mode: %v", ErrCommandFailed, err)
	}
	defer func() { _ = term.Restore(int(os.Stdin.Fd()), oldState) }()

	go func() { _, _ = io.Copy(ptmx, os.Stdin) }()
	_, _ = io.Copy(os.Stdout, ptmx)

	return wrapExit(c.Name, cmd.Wait())
}

func wrapExit(name string, err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%w: %s exited with code %d", ErrCommandFailed, name, exitErr.ExitCode())
	}
	return fmt.Errorf("%w: %s: %v", ErrCommandFailed, name, err)
}

package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// InputProvider is where the console reads operator answers from.
type InputProvider interface {
	// ReadLine prints prompt and returns one line without its line ending.
	ReadLine(prompt string) (string, error)
	// ReadSecret reads a line without echoing it when possible.
	ReadSecret(prompt string) (string, error)
	// Confirm asks a yes/no question. Anything but an explicit yes is no.
	Confirm(prompt string) (bool, error)
}

// IsAffirmative reports whether an answer to a yes/no prompt means yes.
func IsAffirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// TerminalInput reads from the operator's terminal.
type TerminalInput struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	tty bool
}

// NewTerminalInput reads from stdin and prompts on out.
func NewTerminalInput(out io.Writer) *TerminalInput {
	fd := int(os.Stdin.Fd())
	return &TerminalInput{
		in:  bufio.NewReader(os.Stdin),
		out: out,
		fd:  fd,
		tty: term.IsTerminal(fd),
	}
}

// ReadLine prints prompt and reads one line.
func (t *TerminalInput) ReadLine(prompt string) (string, error) {
	fmt.Fprint(t.out, prompt)
	line, err := t.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadSecret reads without echo on a terminal and falls back to a plain
// read with a warning otherwise.
func (t *TerminalInput) ReadSecret(prompt string) (string, error) {
	if t.tty {
		fmt.Fprint(t.out, prompt)
		b, err := term.ReadPassword(t.fd)
		fmt.Fprintln(t.out)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(b), "\r\n"), nil
	}
	fmt.Fprintln(t.out, "warning: reading secret from stdin; input will not be masked")
	return t.ReadLine(prompt)
}

// Confirm asks prompt with a [y/N] suffix.
func (t *TerminalInput) Confirm(prompt string) (bool, error) {
	answer, err := t.ReadLine(prompt + " [y/N]: ")
	if err != nil {
		return false, err
	}
	return IsAffirmative(answer), nil
}

// ScriptedInput replays canned answers. It is used to drive the console
// without a terminal.
type ScriptedInput struct {
	answers []string
	pos     int

	// Prompts records every prompt shown, in order.
	Prompts []string
}

// NewScriptedInput returns a provider that answers with lines in order and
// then reports io.EOF.
func NewScriptedInput(lines ...string) *ScriptedInput {
	return &ScriptedInput{answers: lines}
}

// ReadLine returns the next scripted answer.
func (s *ScriptedInput) ReadLine(prompt string) (string, error) {
	s.Prompts = append(s.Prompts, prompt)
	if s.pos >= len(s.answers) {
		return "", io.EOF
	}
	line := s.answers[s.pos]
	s.pos++
	return line, nil
}

// ReadSecret returns the next scripted answer.
func (s *ScriptedInput) ReadSecret(prompt string) (string, error) {
	return s.ReadLine(prompt)
}

// Confirm consumes the next scripted answer as a yes/no reply.
func (s *ScriptedInput) Confirm(prompt string) (bool, error) {
	answer, err := s.ReadLine(prompt + " [y/N]: ")
	if err != nil {
		return false, err
	}
	return IsAffirmative(answer), nil
}

// Remaining returns how many answers have not been consumed.
func (s *ScriptedInput) Remaining() int {
	return len(s.answers) - s.pos
}

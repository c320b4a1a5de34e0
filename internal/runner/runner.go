// Package runner executes external programs for the console and reports
// their exit status.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// ErrCommandFailed is returned when a program exits with a non-zero status
// or cannot be started.
var ErrCommandFailed = errors.New("command failed")

// Command describes one program invocation.
type Command struct {
	Name    string
	Args    []string
	Dir     string
	// Env is appended to the console's own environment. Values placed
	// here are never logged.
	Env     []string
	Stdin   io.Reader
	// OnLine, when set, receives every output line as it is produced.
	OnLine  func(line string)
	// Secrets are masked wherever they occur in String.
	Secrets []string
}

// String renders the command line for logs.
func (c Command) String() string {
	line := c.Name
	if len(c.Args) > 0 {
		line += " " + strings.Join(c.Args, " ")
	}
	for _, s := range c.Secrets {
		if s != "" {
			line = strings.ReplaceAll(line, s, "********")
		}
	}
	return line
}

// Result is the outcome of a finished command.
type Result struct {
	Output   string
	ExitCode int
}

// Runner runs external commands and waits for them to finish.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner runs commands as child processes.
type ExecRunner struct{}

// New returns a Runner backed by os/exec.
func New() *ExecRunner {
	return &ExecRunner{}
}

// Run starts cmd, collects stdout and stderr, and waits for it to exit.
// A non-zero exit returns the Result together with ErrCommandFailed.
func (r *ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	log.Printf("[Runner] Running %s", c)

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	if c.Stdin != nil {
		cmd.Stdin = c.Stdin
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCommandFailed, c.Name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCommandFailed, c.Name, err)
	}

	if err := cmd.Start(); err != nil {
		log.Printf("[Runner] Error starting %s: %v", c.Name, err)
		return &Result{ExitCode: -1}, fmt.Errorf("%w: %s: %v", ErrCommandFailed, c.Name, err)
	}

	var output strings.Builder
	var outputMu sync.Mutex

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		collect(stdout, &output, &outputMu, c.OnLine)
	}()
	go func() {
		defer wg.Done()
		collect(stderr, &output, &outputMu, c.OnLine)
	}()

	wg.Wait()
	err = cmd.Wait()

	res := &Result{Output: output.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
		log.Printf("[Runner] %s exited with code %d", c.Name, res.ExitCode)
		return res, fmt.Errorf("%w: %s exited with code %d", ErrCommandFailed, c.Name, res.ExitCode)
	}

	return res, nil
}

func collect(r io.Reader, output *strings.Builder, mu *sync.Mutex, onLine func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		mu.Lock()
		output.WriteString(line)
		output.WriteByte('\n')
		mu.Unlock()

		if onLine != nil {
			onLine(line)
		}
	}
}

// LastLine returns the last line of s with surrounding space removed. Tools
// usually print the reason for a failure there.
func LastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

// LastLine returns the last line of the captured output, or "" for a nil
// Result.
func (r *Result) LastLine() string {
	if r == nil {
		return ""
	}
	return LastLine(r.Output)
}

// ExitCode extracts the exit status carried by a Result, or -1.
func ExitCode(res *Result) int {
	if res == nil {
		return -1
	}
	return res.ExitCode
}

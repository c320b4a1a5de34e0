package runner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestExecRunner_Success(t *testing.T) {
	r := New()

	res, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo hello; echo oops >&2"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", res.ExitCode)
	}
	if !strings.Contains(res.Output, "hello") || !strings.Contains(res.Output, "oops") {
		t.Errorf("expected stdout and stderr in output, got %q", res.Output)
	}
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	r := New()

	res, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "exit 3"}})
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("expected ErrCommandFailed, got %v", err)
	}
	if ExitCode(res) != 3 {
		t.Errorf("expected exit code 3, got %d", ExitCode(res))
	}
}

func TestExecRunner_MissingBinary(t *testing.T) {
	r := New()

	res, err := r.Run(context.Background(), Command{Name: "definitely-not-a-real-binary-xyz"})
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("expected ErrCommandFailed, got %v", err)
	}
	if ExitCode(res) != -1 {
		t.Errorf("expected exit code -1, got %d", ExitCode(res))
	}
}

func TestExecRunner_StdinEnvAndDir(t *testing.T) {
	r := New()
	dir := t.TempDir()

	res, err := r.Run(context.Background(), Command{
		Name:  "sh",
		Args:  []string{"-c", `read line; echo "$line-$SECRET_VALUE"; pwd`},
		Dir:   dir,
		Env:   []string{"SECRET_VALUE=s3cret"},
		Stdin: strings.NewReader("input\n"),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(res.Output, "input-s3cret") {
		t.Errorf("expected stdin and env to reach the command, got %q", res.Output)
	}
	if !strings.Contains(res.Output, dir) {
		t.Errorf("expected working directory %s in output, got %q", dir, res.Output)
	}
}

func TestExecRunner_OnLine(t *testing.T) {
	r := New()

	var mu sync.Mutex
	var lines []string
	_, err := r.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo one; echo two"},
		OnLine: func(line string) {
			mu.Lock()
			lines = append(lines, line)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Errorf("unexpected streamed lines %v", lines)
	}
}

func TestCommand_String(t *testing.T) {
	c := Command{Name: "php", Args: []string{"artisan", "down"}}
	if c.String() != "php artisan down" {
		t.Errorf("unexpected String() %q", c.String())
	}
	if (Command{Name: "true"}).String() != "true" {
		t.Error("expected bare name without args")
	}
}

func TestCommand_StringMasksSecrets(t *testing.T) {
	c := Command{
		Name:    "php",
		Args:    []string{"artisan", "p:user:make", "--password=Hunter2pw"},
		Secrets: []string{"Hunter2pw", ""},
	}
	if got := c.String(); got != "php artisan p:user:make --password=********" {
		t.Errorf("unexpected String() %q", got)
	}
}

func TestLastLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"single", "single"},
		{"first\nsecond\n", "second"},
		{"Loading\n  mysqldump: Access denied  \n\n", "mysqldump: Access denied"},
	}
	for _, tt := range tests {
		if got := LastLine(tt.in); got != tt.want {
			t.Errorf("LastLine(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}

	var nilResult *Result
	if got := nilResult.LastLine(); got != "" {
		t.Errorf("expected empty line for nil result, got %q", got)
	}
	if got := (&Result{Output: "a\nb"}).LastLine(); got != "b" {
		t.Errorf("expected b, got %q", got)
	}
}

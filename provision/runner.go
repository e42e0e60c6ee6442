package provision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// ErrDryRun is returned for existence checks in dry-run mode, so every
// resource is treated as missing.
var ErrDryRun = errors.New("dry run")

// Command is one invocation of the cloud CLI.
type Command struct {
	Name  string
	Args  []string
	Stdin string
	// Check marks read-only existence checks.
	Check bool
	// DryRunOutput stands in for the output of a lookup during a dry run.
	DryRunOutput string
}

func (c Command) String() string {
	parts := append([]string{c.Name}, c.Args...)
	s := strings.Join(parts, " ")
	if c.Stdin != "" {
		s += " <<< [redacted]"
	}
	return s
}

// Runner executes commands and returns their trimmed stdout.
type Runner interface {
	Run(ctx context.Context, cmd Command) (string, error)
}

type ExecRunner struct {
	Stderr io.Writer
}

func (r ExecRunner) Run(ctx context.Context, c Command) (string, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if r.Stderr != nil && !c.Check {
		r.Stderr.Write(stderr.Bytes())
	}
	if err != nil {
		return strings.TrimSpace(stdout.String()), fmt.Errorf("%s: %w: %s", c.Name, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// DryRunRunner prints commands instead of executing them.
type DryRunRunner struct {
	Out io.Writer
}

func (r DryRunRunner) Run(ctx context.Context, c Command) (string, error) {
	if c.Check {
		fmt.Fprintf(r.Out, "[check] %s\n", c)
		return "", ErrDryRun
	}
	fmt.Fprintf(r.Out, "%s\n", c)
	return c.DryRunOutput, nil
}

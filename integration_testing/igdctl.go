package itest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"
	"time"
)

// Igdctl is one invocation of the igdctl binary under test.
type Igdctl struct {
	T       *testing.T
	Binary  string
	Env     []string
	Args    []string
	Timeout time.Duration

	Stdout bytes.Buffer
	Stderr bytes.Buffer
}

// Run executes the binary and returns its exit code.
func (o *Igdctl) Run() int {
	o.T.Helper()

	timeout := o.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, o.Binary, o.Args...)
	cmd.Stdout = &o.Stdout
	cmd.Stderr = &o.Stderr
	cmd.Env = append(os.Environ(), o.Env...)

	err := cmd.Run()
	if ctx.Err() != nil {
		o.T.Fatalf("igdctl %v did not exit within %s", o.Args, timeout)
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exitErr):
		return exitErr.ExitCode()
	default:
		o.T.Fatalf("unable to run igdctl: %v", err)
		return -1
	}
}

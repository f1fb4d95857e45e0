package compiler

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
)

// Runner starts an external process and waits for it.
type Runner interface {
	Run(ctx context.Context, name string, args []string) error
}

// ExecRunner runs processes with os/exec, passing their output through.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (r ExecRunner) Run(ctx context.Context, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	return cmd.Run()
}

// ClosureCompiler drives the Closure Compiler command line tool.
type ClosureCompiler struct {
	bin    string
	runner Runner
}

func NewClosureCompiler(bin string, runner Runner) *ClosureCompiler {
	if bin == "" {
		bin = DefaultClosureBinary
	}
	if runner == nil {
		runner = ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
	}
	return &ClosureCompiler{
		bin:    bin,
		runner: runner,
	}
}

// Args builds the closure command line. Inputs keep the caller's order since
// closure concatenates them in that order.
func (c *ClosureCompiler) Args(job Job) []string {
	args := []string{
		"--js_output_file", job.OutFile,
		"--create_source_map", job.MapFile,
	}
	for _, in := range job.Inputs {
		args = append(args, "--js", in)
	}
	return args
}

func (c *ClosureCompiler) Command(job Job) []string {
	return append([]string{c.bin}, c.Args(job)...)
}

func (c *ClosureCompiler) Compile(ctx context.Context, job Job) error {
	err := c.runner.Run(ctx, c.bin, c.Args(job))
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return &CompileError{
			Message: err.Error(),
			Cause:   ErrCauseNotFound,
		}
	case errors.As(err, &exitErr):
		return &CompileError{
			Message:  err.Error(),
			Cause:    ErrCauseNonZeroExit,
			ExitCode: exitErr.ExitCode(),
		}
	default:
		return &CompileError{
			Message: err.Error(),
			Cause:   ErrCauseStartFailure,
		}
	}
}

package compiler

import (
	"context"
	"fmt"
	"strings"
)

// Backend names a compiler implementation.
type Backend string

const (
	BackendClosure Backend = "closure"
	BackendEsbuild Backend = "esbuild"
)

// DefaultClosureBinary is looked up on PATH when no binary is configured.
const DefaultClosureBinary = "closure-compiler"

// Job is one bundling request: inputs in evaluation order plus the two
// outputs to produce.
type Job struct {
	Inputs  []string
	OutFile string
	MapFile string
}

// Compiler turns a list of readable JavaScript files into one bundle and a
// source map.
type Compiler interface {
	Compile(ctx context.Context, job Job) error
	// Command describes the invocation for logs and dry runs.
	Command(job Job) []string
}

// New returns the compiler for backend. bin and runner only matter for the
// closure backend; empty values select the defaults.
func New(backend Backend, bin string, runner Runner) (Compiler, error) {
	switch backend {
	case BackendClosure, "":
		return NewClosureCompiler(bin, runner), nil
	case BackendEsbuild:
		return NewEsbuildCompiler(), nil
	default:
		return nil, fmt.Errorf("unknown compiler backend %q", backend)
	}
}

// ParseBackend validates a backend name.
func ParseBackend(name string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(name))); b {
	case BackendClosure, BackendEsbuild:
		return b, nil
	default:
		return "", fmt.Errorf("unknown compiler backend %q (want %q or %q)", name, BackendClosure, BackendEsbuild)
	}
}

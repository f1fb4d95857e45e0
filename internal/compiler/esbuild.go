package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	esbuildapi "github.com/evanw/esbuild/pkg/api"

	"github.com/rohmanhakim/vendor-bundler/pkg/fileutil"
)

const esbuildEntryName = "vendor-bundler-entry.js"

// EsbuildCompiler bundles in-process with esbuild. Inputs are imported, in
// order, from a synthetic entry module and the result is minified into a
// single IIFE.
//
// Unlike closure, each input becomes its own module scope: top-level var
// declarations do not leak onto window. Libraries that publish themselves
// through explicit window assignments work either way.
//
// UMD builds (jQuery, lodash, moment and the like) are the exception. Any
// input that mentions module or exports is wrapped as CommonJS, so the UMD
// header sees module.exports and assigns to it instead of registering its
// window global. The wrapped module cannot be handed a global module
// binding from outside, since esbuild treats module as a CommonJS symbol
// rather than a free identifier. Bundle such libraries with the closure
// backend.
type EsbuildCompiler struct{}

func NewEsbuildCompiler() *EsbuildCompiler {
	return &EsbuildCompiler{}
}

func (c *EsbuildCompiler) Command(job Job) []string {
	cmd := []string{
		"esbuild",
		"--bundle",
		"--minify",
		"--format=iife",
		"--sourcemap=external",
		"--outfile=" + job.OutFile,
	}
	return append(cmd, job.Inputs...)
}

func (c *EsbuildCompiler) Compile(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return &CompileError{Message: err.Error(), Cause: ErrCauseStartFailure}
	}

	entry, err := entrySource(job.Inputs)
	if err != nil {
		return &CompileError{Message: err.Error(), Cause: ErrCauseCompileFailed}
	}
	outFile, err := filepath.Abs(job.OutFile)
	if err != nil {
		return &CompileError{Message: err.Error(), Cause: ErrCauseWriteFailure}
	}
	resolveDir, err := os.Getwd()
	if err != nil {
		return &CompileError{Message: err.Error(), Cause: ErrCauseStartFailure}
	}

	result := esbuildapi.Build(esbuildapi.BuildOptions{
		Stdin: &esbuildapi.StdinOptions{
			Contents:   entry,
			ResolveDir: resolveDir,
			Sourcefile: esbuildEntryName,
			Loader:     esbuildapi.LoaderJS,
		},
		Bundle:            true,
		Write:             false,
		Format:            esbuildapi.FormatIIFE,
		Platform:          esbuildapi.PlatformBrowser,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		Sourcemap:         esbuildapi.SourceMapExternal,
		Outfile:           outFile,
		LogLevel:          esbuildapi.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		return &CompileError{
			Message: formatMessages(result.Errors),
			Cause:   ErrCauseCompileFailed,
		}
	}

	var bundle, sourceMap []byte
	for _, out := range result.OutputFiles {
		if strings.HasSuffix(out.Path, ".map") {
			sourceMap = out.Contents
		} else {
			bundle = out.Contents
		}
	}
	if bundle == nil || sourceMap == nil {
		return &CompileError{
			Message: fmt.Sprintf("esbuild returned %d output files", len(result.OutputFiles)),
			Cause:   ErrCauseCompileFailed,
		}
	}

	if _, err := fileutil.WriteFileAtomic(job.OutFile, bytes.NewReader(bundle), 0644); err != nil {
		return &CompileError{Message: err.Error(), Cause: ErrCauseWriteFailure}
	}
	if _, err := fileutil.WriteFileAtomic(job.MapFile, bytes.NewReader(sourceMap), 0644); err != nil {
		return &CompileError{Message: err.Error(), Cause: ErrCauseWriteFailure}
	}
	return nil
}

// entrySource imports every input by absolute path so evaluation order
// follows the input order.
func entrySource(inputs []string) (string, error) {
	var b strings.Builder
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return "", err
		}
		quoted, err := json.Marshal(filepath.ToSlash(abs))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "import %s;\n", quoted)
	}
	return b.String(), nil
}

func formatMessages(msgs []esbuildapi.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			lines = append(lines, fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text))
			continue
		}
		lines = append(lines, m.Text)
	}
	return strings.Join(lines, "; ")
}

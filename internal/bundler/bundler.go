package bundler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rohmanhakim/vendor-bundler/internal/cache"
	"github.com/rohmanhakim/vendor-bundler/internal/compiler"
	"github.com/rohmanhakim/vendor-bundler/internal/metadata"
	"github.com/rohmanhakim/vendor-bundler/pkg/failure"
	"github.com/sirupsen/logrus"
)

var ErrNoSources = errors.New("at least one source is required")

// SourceResolver maps source references to local files.
type SourceResolver interface {
	Resolve(ctx context.Context, ref string) (string, failure.ClassifiedError)
	Locate(ref string) cache.Location
}

/*
Bundler is the whole pipeline of one invocation:

 1. resolve every source, one at a time, in the given order
 2. hand the resolved paths to the compiler once

The first failure aborts the run. The compiler only ever sees a complete
input list, so a failed fetch never leaves a bundle behind.
*/
type Bundler struct {
	resolver     SourceResolver
	compiler     compiler.Compiler
	metadataSink metadata.MetadataSink
	logger       logrus.FieldLogger
}

func NewBundler(
	resolver SourceResolver,
	c compiler.Compiler,
	metadataSink metadata.MetadataSink,
	logger logrus.FieldLogger,
) *Bundler {
	return &Bundler{
		resolver:     resolver,
		compiler:     c,
		metadataSink: metadataSink,
		logger:       logger,
	}
}

func (b *Bundler) Run(ctx context.Context, req Request) (Result, error) {
	if len(req.Sources) == 0 {
		return Result{}, ErrNoSources
	}

	result := Result{
		dryRun: req.DryRun,
		inputs: make([]string, 0, len(req.Sources)),
	}

	for _, src := range req.Sources {
		loc := b.resolver.Locate(src)
		switch {
		case !loc.Remote():
			result.local++
		case loc.Cached():
			result.cacheHits++
		default:
			result.downloads++
		}

		if req.DryRun {
			result.inputs = append(result.inputs, loc.Path())
			continue
		}

		path, err := b.resolver.Resolve(ctx, src)
		if err != nil {
			return Result{}, fmt.Errorf("resolve %s: %w", src, err)
		}
		result.inputs = append(result.inputs, path)
	}

	job := compiler.Job{
		Inputs:  result.inputs,
		OutFile: req.OutFile,
		MapFile: req.MapFile,
	}
	result.command = b.compiler.Command(job)

	if req.DryRun {
		b.logger.WithFields(logrus.Fields{
			"command":   strings.Join(result.command, " "),
			"downloads": result.downloads,
		}).Info("Dry run, not executing")
		return result, nil
	}

	b.logger.WithField("command", strings.Join(result.command, " ")).Info("Executing")
	if err := b.compiler.Compile(ctx, job); err != nil {
		b.recordCompileError(result.command, err)
		return Result{}, fmt.Errorf("compile %s: %w", req.OutFile, err)
	}

	b.metadataSink.RecordArtifact(metadata.ArtifactBundle, req.OutFile, []metadata.Attribute{
		metadata.NewAttr(metadata.AttrWritePath, req.OutFile),
	})
	b.metadataSink.RecordArtifact(metadata.ArtifactSourceMap, req.MapFile, []metadata.Attribute{
		metadata.NewAttr(metadata.AttrWritePath, req.MapFile),
	})
	return result, nil
}

func (b *Bundler) recordCompileError(command []string, err error) {
	attrs := []metadata.Attribute{
		metadata.NewAttr(metadata.AttrCommand, strings.Join(command, " ")),
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) && compileErr.Cause == compiler.ErrCauseNonZeroExit {
		attrs = append(attrs, metadata.NewAttr(metadata.AttrExitCode, strconv.Itoa(compileErr.ExitCode)))
	}
	b.metadataSink.RecordError(
		time.Now(),
		"bundler",
		"Bundler.Run",
		metadata.CauseCompileFailure,
		err.Error(),
		attrs,
	)
}

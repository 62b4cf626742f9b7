// Package build runs a plan through the cache, the generator and the build
// ledger. The CLI and the compile service share it.
package build

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/wpkernel/wpkgen/internal/compiler/cache"
	"github.com/wpkernel/wpkgen/internal/compiler/codegen"
	"github.com/wpkernel/wpkgen/internal/compiler/errors"
	"github.com/wpkernel/wpkgen/internal/compiler/plan"
	"github.com/wpkernel/wpkgen/internal/ledger"
)

// Recorder stores a summary of each build
type Recorder interface {
	Record(ctx context.Context, e *ledger.Entry) error
}

// Observer is told about every finished build
type Observer interface {
	Observe(res *Result)
}

// Pipeline wires the build stages together. Coordinator, Recorder and
// Observer are optional.
type Pipeline struct {
	Generator   *codegen.Generator
	Coordinator *cache.Coordinator
	Recorder    Recorder
	Observer    Observer
	Logger      *zap.Logger
}

// Input is one plan to build
type Input struct {
	// Path names the plan; it is read when Source is nil
	Path   string
	Source []byte
	// Format defaults to the one implied by Path
	Format plan.Format
	// IncludeBaseController overrides the document when set
	IncludeBaseController *bool
	// OnWarning receives warnings as they are raised. On a cache hit the
	// stored warnings are replayed instead.
	OnWarning func(errors.Warning)
}

// Result is a finished build
type Result struct {
	Artifact *cache.Artifact
	Document *plan.Document
	Cached   bool
	Duration time.Duration
}

// Run builds in. Plan problems come back as compiler errors; ledger
// failures are logged and do not fail the build.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	start := time.Now()

	source := in.Source
	if source == nil {
		data, err := os.ReadFile(in.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read plan: %w", err)
		}
		source = data
	}
	format := in.Format
	if format == "" {
		format = plan.FormatFor(in.Path)
	}

	doc, err := plan.Parse(source, format)
	if err != nil {
		if ce, ok := errors.As(err); ok && in.Path != "" {
			return nil, ce.WithFile(in.Path)
		}
		return nil, err
	}
	doc.Path = in.Path

	fingerprint := ""
	if in.IncludeBaseController != nil {
		doc.IncludeBaseController = *in.IncludeBaseController
		fingerprint = "includeBaseController=" + strconv.FormatBool(*in.IncludeBaseController)
	}

	produce := func(ctx context.Context) (*cache.Artifact, error) {
		out, err := plan.Build(ctx, p.generator(), doc, codegen.Hooks{OnWarning: in.OnWarning})
		if err != nil {
			return nil, err
		}
		return cache.NewArtifact(out)
	}

	res := &Result{Document: doc}
	if p.Coordinator != nil {
		res.Artifact, res.Cached, err = p.Coordinator.Build(ctx, cache.Request{Path: in.Path, Source: source, Fingerprint: fingerprint}, produce)
	} else {
		res.Artifact, err = produce(ctx)
	}
	if err != nil {
		return nil, err
	}
	if res.Cached && in.OnWarning != nil {
		for _, w := range res.Artifact.Warnings {
			in.OnWarning(w)
		}
	}
	res.Duration = time.Since(start)

	if p.Recorder != nil {
		entry := ledger.EntryFor(res.Artifact, in.Path, doc.Namespace, res.Cached, res.Duration)
		if err := p.Recorder.Record(ctx, &entry); err != nil {
			logger.Warn("failed to record build", zap.Error(err))
		}
	}
	if p.Observer != nil {
		p.Observer.Observe(res)
	}

	logger.Debug("build finished",
		zap.String("file", in.Path),
		zap.Bool("cached", res.Cached),
		zap.Int("files", len(res.Artifact.Files)),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (p *Pipeline) generator() *codegen.Generator {
	if p.Generator != nil {
		return p.Generator
	}
	return codegen.NewGenerator(codegen.Options{Logger: p.Logger})
}

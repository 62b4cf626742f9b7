package codegen

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wpkernel/wpkgen/internal/compiler/ast"
	"github.com/wpkernel/wpkgen/internal/compiler/errors"
	"github.com/wpkernel/wpkgen/internal/compiler/metadata"
	"github.com/wpkernel/wpkgen/internal/compiler/routes"
)

// Options configures a Generator
type Options struct {
	Logger *zap.Logger
	// Workers bounds how many controllers are built concurrently; values
	// below 2 build sequentially
	Workers int
}

// Generator transforms resource plans into controller programs
type Generator struct {
	logger  *zap.Logger
	workers int
}

// NewGenerator creates a new code generator
func NewGenerator(opts Options) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Generator{logger: logger, workers: workers}
}

// GenerateModule builds one controller file per resource, then the
// optional base controller and the index. Output order never depends on
// the worker count.
func (g *Generator) GenerateModule(ctx context.Context, opts ModuleOptions) (*ModuleResult, error) {
	if err := checkClassNames(opts.Resources); err != nil {
		return nil, err
	}

	buildID := uuid.NewString()
	logger := g.logger.With(zap.String("build", buildID))
	start := time.Now()

	controllers := make([]ModuleFile, len(opts.Resources))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i := range opts.Resources {
		i := i
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			file, err := g.buildController(opts, opts.Resources[i])
			if err != nil {
				return err
			}
			controllers[i] = file
			logger.Debug("controller generated",
				zap.String("resource", opts.Resources[i].Name),
				zap.String("file", file.FileName),
			)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		logger.Warn("module generation failed", zap.Error(err))
		return nil, err
	}

	files := controllers
	if opts.IncludeBaseController {
		files = append(files, BuildBaseControllerFile(opts))
	}
	files = append(files, BuildIndexFile(opts.Origin, opts.PluginNamespace, indexEntries(files, opts)))

	logger.Info("module generated",
		zap.Int("resources", len(opts.Resources)),
		zap.Int("files", len(files)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &ModuleResult{BuildID: buildID, Files: files}, nil
}

func checkClassNames(resources []ResourcePlan) error {
	seen := make(map[string]string, len(resources))
	for _, r := range resources {
		if other, ok := seen[r.ClassName]; ok {
			return errors.NewDuplicateClassName(errors.Location{Resource: r.Name}, r.ClassName).
				WithSuggestion("Rename resource " + r.Name + " or " + other + " so their controllers differ")
		}
		seen[r.ClassName] = r.Name
	}
	return nil
}

// buildController runs every route builder against a fresh metadata host.
// Builders may record cache events and tags; the route kind used for
// identity handling is read back after the builder ran.
func (g *Generator) buildController(opts ModuleOptions, res ResourcePlan) (ModuleFile, error) {
	defs := make([]routes.Definition, len(res.Routes))
	for i, r := range res.Routes {
		defs[i] = r.Definition
	}

	host := metadata.NewControllerHost(routes.BuildControllerMetadata(res.Name, res.Identity, defs, res.CacheKeys, res.Mutation))
	metadata.AppendHelperSignatures(host, res.HelperSignatures...)

	configs := make([]RouteConfig, 0, len(res.Routes))
	methods := make([]*ast.ClassMethod, 0, len(res.Routes))
	for i, plan := range res.Routes {
		loc := errors.Location{Resource: res.Name, Route: routeLabel(plan.Definition.Method, plan.Definition.Path)}

		initial, ok := host.Route(i)
		if !ok {
			return ModuleFile{}, errors.NewRouteIndexOutOfRange(loc, i, len(host.Snapshot().Routes))
		}

		var stmts []ast.Stmt
		if plan.BuildStatements != nil {
			var err error
			stmts, err = plan.BuildStatements(RouteContext{Index: i, Metadata: initial, Host: host})
			if err != nil {
				return ModuleFile{}, err
			}
		}
		if len(stmts) == 0 && plan.BuildFallbackStatements != nil {
			stmts = plan.BuildFallbackStatements()
		}

		final, _ := host.Route(i)
		cfg := RouteConfig{
			MethodName:      plan.MethodName,
			Metadata:        final,
			Capability:      plan.Definition.Capability,
			CapabilityClass: opts.CapabilityClass,
			DocblockSummary: plan.DocblockSummary,
			UsesIdentity:    routes.UsesIdentity(plan.Definition, final.Kind, res.Identity.Param),
			IdentityParam:   res.Identity.Param,
			Statements:      stmts,
		}
		method, err := BuildRouteMethod(cfg)
		if err != nil {
			return ModuleFile{}, err
		}
		configs = append(configs, cfg)
		methods = append(methods, method)
	}

	class := BuildControllerClass(ControllerClass{
		ClassName:    res.ClassName,
		ResourceName: res.Name,
		SchemaKey:    res.SchemaKey,
		RestArgs:     res.RestArgs,
		Routes:       methods,
		Helpers:      res.HelperMethods,
	})

	return ComposeFile(FileSpec{
		FileName:   ControllerFileName(res.ClassName),
		Namespace:  RestNamespace(opts.PluginNamespace),
		Docblock:   ControllerDocblock(opts.Origin, res),
		Metadata:   host.Snapshot(),
		Uses:       DeriveImports(configs, ImportOptions{CapabilityClass: opts.CapabilityClass, Helpers: res.HelperMethods}),
		Statements: []ast.Stmt{class},
	}), nil
}

package plan

import (
	"context"

	"github.com/wpkernel/wpkgen/internal/compiler/capability"
	"github.com/wpkernel/wpkgen/internal/compiler/codegen"
	"github.com/wpkernel/wpkgen/internal/compiler/errors"
	"github.com/wpkernel/wpkgen/internal/compiler/identity"
	"github.com/wpkernel/wpkgen/internal/compiler/metadata"
	"github.com/wpkernel/wpkgen/internal/compiler/routes"
	"github.com/wpkernel/wpkgen/internal/compiler/storage"
	ustrings "github.com/wpkernel/wpkgen/internal/util/strings"
)

// DefaultOrigin names the plan source in docblocks when the document
// does not
const DefaultOrigin = "wpkgen.plan.yaml"

// Compiled is a validated plan ready for the generator
type Compiled struct {
	Module       codegen.ModuleOptions
	Capabilities metadata.CapabilityMap
	// CapabilityHelper is nil when no route enforces a capability and the
	// plan declares no map
	CapabilityHelper *codegen.ModuleFile
	Warnings         []errors.Warning
}

// Output is the result of Build
type Output struct {
	Result       *codegen.ModuleResult
	Capabilities metadata.CapabilityMap
	Warnings     []errors.Warning
}

// Compile validates doc and turns each resource into a ResourcePlan.
// Warnings go to hooks as they are found and are also collected on the
// result.
func Compile(doc *Document, hooks codegen.Hooks) (*Compiled, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}

	out := &Compiled{}
	warn := func(w errors.Warning) {
		out.Warnings = append(out.Warnings, w)
		hooks.Warn(w)
	}

	origin := doc.Origin
	if origin == "" {
		origin = DefaultOrigin
	}

	var hints capability.HintSet
	identities := make(map[string]string, len(doc.Resources))
	resources := make([]codegen.ResourcePlan, 0, len(doc.Resources))
	for _, res := range doc.Resources {
		rp, err := compileResource(doc, res, &hints, warn)
		if err != nil {
			return nil, err
		}
		identities[res.Name] = rp.Identity.Param
		resources = append(resources, rp)
	}

	capMap, err := capability.Resolve(capability.Input{
		SourcePath: doc.Path,
		Map:        doc.Capabilities,
		Hints:      hints.Hints(),
		Identities: identities,
	})
	if err != nil {
		return nil, err
	}
	for _, w := range capMap.Warnings {
		warn(w)
	}
	out.Capabilities = capMap

	out.Module = codegen.ModuleOptions{
		Origin:                origin,
		PluginNamespace:       doc.Namespace,
		SanitizedNamespace:    doc.SanitizedNamespace,
		Resources:             resources,
		IncludeBaseController: doc.IncludeBaseController,
		Hooks:                 hooks,
	}
	if len(capMap.Definitions) > 0 || len(capMap.Missing) > 0 || doc.Capabilities != nil {
		helper := capability.BuildHelperFile(origin, doc.Namespace, capMap)
		out.CapabilityHelper = &helper
		out.Module.CapabilityClass = capability.QualifiedClassName(doc.Namespace)
		out.Module.AdditionalIndexEntries = append(out.Module.AdditionalIndexEntries, capability.IndexEntry(doc.Namespace))
	}
	return out, nil
}

func compileResource(doc *Document, res Resource, hints *capability.HintSet, warn func(errors.Warning)) (codegen.ResourcePlan, error) {
	loc := errors.Location{Resource: res.Name}
	id := identity.Resolve(res.Identity)
	pascal := ustrings.ToPascalCase(res.Name)

	cacheKeys := res.CacheKeys
	if cacheKeys.List == nil {
		cacheKeys.List = []any{res.Name, "list"}
	}
	if cacheKeys.Get == nil {
		cacheKeys.Get = []any{res.Name, "get"}
	}

	fallback := codegen.FallbackContext{Resource: res.Name, Transport: "local"}
	var (
		strategy  storage.Strategy
		artifacts *storage.Artifacts
		handlers  storage.HandlerSet
	)
	if res.Storage != nil {
		var err error
		if strategy, err = res.Storage.Strategy(loc); err != nil {
			return codegen.ResourcePlan{}, err
		}
		artifacts, err = storage.Build(strategy, storage.Context{
			Resource:   res.Name,
			PascalName: pascal,
			Namespace:  doc.Namespace,
			Identity:   id,
			CacheKeys:  cacheKeys,
		})
		if err != nil {
			return codegen.ResourcePlan{}, err
		}
		handlers = artifacts.Handlers
		fallback.StorageMode = string(strategy.Mode())
		fallback.Reason = "No " + fallback.StorageMode + " handler covers this route."
		fallback.Hint = "Implement the route by hand or map it onto a list/get/create/update/remove path."
	} else {
		fallback.Reason = "Resource has no storage configured."
		fallback.Hint = "Add a storage block (transient, wp-option, wp-taxonomy or wp-post) to generate handlers."
	}

	defs := make([]routes.Definition, len(res.Routes))
	for i, r := range res.Routes {
		defs[i] = r.Definition()
	}
	names := methodNames(defs)

	plans := make([]codegen.RoutePlan, 0, len(defs))
	for i, def := range defs {
		if def.Capability == "" && routes.IsWriteMethod(def.Method) {
			warn(errors.NewRouteCapabilityMissing(res.Name, def.Method, def.Path))
		}
		if def.Capability != "" {
			hints.Add(def.Capability, capability.Reference{Resource: res.Name, Method: def.Method, Path: def.Path})
		}
		plans = append(plans, codegen.BuildRouteSet(codegen.RouteSetOptions{
			Definition:      def,
			MethodName:      names[i],
			DocblockSummary: res.Routes[i].Summary,
			Handlers:        handlers,
			Fallback:        fallback,
		}))
	}

	schemaKey := res.SchemaKey
	if schemaKey == "" {
		schemaKey = res.Name
	}

	rp := codegen.ResourcePlan{
		Name:             res.Name,
		ClassName:        pascal + "Controller",
		SchemaKey:        schemaKey,
		SchemaProvenance: res.SchemaProvenance,
		RestArgs:         restArgs(id, strategy),
		Identity:         id,
		CacheKeys:        cacheKeys,
		Routes:           plans,
	}
	if artifacts != nil {
		rp.HelperMethods = artifacts.Methods()
		rp.HelperSignatures = artifacts.Signatures()
	}
	if _, ok := strategy.(*storage.ContentPost); ok {
		rp.Mutation = &routes.MutationMetadata{ChannelTag: storage.PostMutationContract.ChannelTag}
	}
	return rp, nil
}

// Build compiles doc and runs the generator. The capability helper, when
// present, is placed just before the index file.
func Build(ctx context.Context, gen *codegen.Generator, doc *Document, hooks codegen.Hooks) (*Output, error) {
	compiled, err := Compile(doc, hooks)
	if err != nil {
		return nil, err
	}
	result, err := gen.GenerateModule(ctx, compiled.Module)
	if err != nil {
		return nil, err
	}
	if compiled.CapabilityHelper != nil {
		last := len(result.Files) - 1
		files := make([]codegen.ModuleFile, 0, len(result.Files)+1)
		files = append(files, result.Files[:last]...)
		files = append(files, *compiled.CapabilityHelper, result.Files[last])
		result.Files = files
	}
	return &Output{Result: result, Capabilities: compiled.Capabilities, Warnings: compiled.Warnings}, nil
}

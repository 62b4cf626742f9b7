package commands

import (
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/wpkernel/wpkgen/internal/cli/ui"
	"github.com/wpkernel/wpkgen/internal/compiler/codegen"
	"github.com/wpkernel/wpkgen/internal/compiler/errors"
	"github.com/wpkernel/wpkgen/internal/compiler/metadata"
	"github.com/wpkernel/wpkgen/internal/compiler/plan"
)

type inspectOptions struct {
	resource string
	json     bool
}

// report is what inspect shows for one plan
type report struct {
	Namespace string                       `json:"namespace"`
	Files     []string                     `json:"files"`
	Routes    []routeRow                   `json:"routes"`
	Events    []eventRow                   `json:"cacheEvents"`
	Fallbacks []codegen.FallbackDiagnostic `json:"fallbacks"`
	Warnings  []errors.Warning             `json:"warnings"`
}

type routeRow struct {
	Resource string             `json:"resource"`
	Method   string             `json:"method"`
	Path     string             `json:"path"`
	Kind     metadata.RouteKind `json:"kind"`
}

type eventRow struct {
	Resource string `json:"resource"`
	metadata.CacheEvent
}

func newInspectCommand(a *app) *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect [plan]",
		Short: "Show how a plan compiles without writing files",
		Long: `Compile a plan in memory and list its classified routes, the cache
events they record, the routes generated as "not implemented" stubs and
the warnings raised along the way.`,
		Example: `  wpkgen inspect
  wpkgen inspect plans/shop.plan.yaml --resource book
  wpkgen inspect --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, a, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.resource, "resource", "r", "", "Only show one resource")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the report as JSON")
	cmd.Flags().String("include-base-controller", "", "Override the plan: true or false")

	return cmd
}

func runInspect(cmd *cobra.Command, a *app, opts *inspectOptions, args []string) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	path := a.cfg.Plan.Path
	if len(args) == 1 {
		path = args[0]
	}
	doc, err := plan.Load(path)
	if err != nil {
		ui.BuildFailed(stderr, err, a.noColor)
		return errReported
	}
	override, err := a.cfg.Build.BaseControllerOverride()
	if err != nil {
		return err
	}
	if override != nil {
		doc.IncludeBaseController = *override
	}

	if opts.resource != "" && !hasResource(doc, opts.resource) {
		names := make([]string, len(doc.Resources))
		for i, r := range doc.Resources {
			names[i] = r.Name
		}
		ui.Message{
			Level:        ui.LevelError,
			Context:      "resource not found",
			Problem:      fmt.Sprintf("Cannot find resource '%s'.", opts.resource),
			Suggestions:  ui.Suggest(opts.resource, names, 3),
			HelpCommands: []string{"See all resources: wpkgen inspect " + path},
			NoColor:      a.noColor,
		}.Write(stderr)
		return errReported
	}

	gen := codegen.NewGenerator(codegen.Options{Logger: a.logger, Workers: a.cfg.Build.Workers})
	out, err := plan.Build(cmd.Context(), gen, doc, codegen.Hooks{})
	if err != nil {
		ui.BuildFailed(stderr, err, a.noColor)
		return errReported
	}

	r := newReport(doc, out, opts.resource)
	if opts.json {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
		return nil
	}
	r.render(stdout, a.noColor)
	return nil
}

func hasResource(doc *plan.Document, name string) bool {
	for _, r := range doc.Resources {
		if r.Name == name {
			return true
		}
	}
	return false
}

func newReport(doc *plan.Document, out *plan.Output, only string) *report {
	r := &report{
		Namespace: doc.Namespace,
		Routes:    []routeRow{},
		Events:    []eventRow{},
		Fallbacks: []codegen.FallbackDiagnostic{},
		Warnings:  []errors.Warning{},
	}

	for _, f := range out.Result.Files {
		r.Files = append(r.Files, f.FileName)

		cm, ok := f.Metadata.(*metadata.ControllerMetadata)
		if !ok || (only != "" && cm.Name != only) {
			continue
		}
		for _, route := range cm.Routes {
			r.Routes = append(r.Routes, routeRow{Resource: cm.Name, Method: route.Method, Path: route.Path, Kind: route.Kind})
		}
		if cm.Cache != nil {
			for _, e := range cm.Cache.Events {
				r.Events = append(r.Events, eventRow{Resource: cm.Name, CacheEvent: e})
			}
		}
		r.Fallbacks = append(r.Fallbacks, codegen.Fallbacks(f.Program)...)
	}

	for _, w := range out.Warnings {
		if only == "" || w.Context["resource"] == nil || w.Context["resource"] == only {
			r.Warnings = append(r.Warnings, w)
		}
	}
	return r
}

func (r *report) render(w io.Writer, noColor bool) {
	kv := ui.NewKeyValues(w, noColor)
	kv.Add("Namespace", r.Namespace)
	kv.Add("Files", strings.Join(r.Files, ", "))
	kv.Render()
	fmt.Fprintln(w)

	ui.Heading(w, "Routes", noColor)
	routes := ui.NewTable(w, noColor, "RESOURCE", "METHOD", "PATH", "KIND")
	for _, row := range r.Routes {
		routes.AddRow(row.Resource, row.Method, row.Path, string(row.Kind))
	}
	routes.Render()
	fmt.Fprintln(w)

	ui.Heading(w, "Cache events", noColor)
	events := ui.NewTable(w, noColor, "RESOURCE", "SCOPE", "OPERATION", "SEGMENTS")
	for _, e := range r.Events {
		events.AddRow(e.Resource, string(e.Scope), string(e.Operation), strings.Join(e.Segments, " "))
	}
	events.Render()

	if len(r.Fallbacks) > 0 {
		fmt.Fprintln(w)
		ui.Heading(w, "Not implemented", noColor)
		fallbacks := ui.NewTable(w, noColor, "RESOURCE", "METHOD", "PATH", "REASON")
		for _, f := range r.Fallbacks {
			fallbacks.AddRow(f.Resource, f.Method, f.Path, f.Reason)
		}
		fallbacks.Render()
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w)
		ui.Heading(w, "Warnings", noColor)
		for _, warning := range r.Warnings {
			ui.Warning(w, warning, noColor)
		}
	}
}

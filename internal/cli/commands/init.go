package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wpkernel/wpkgen/internal/cli/config"
	"github.com/wpkernel/wpkgen/internal/cli/ui"
	"github.com/wpkernel/wpkgen/internal/compiler/capability"
	"github.com/wpkernel/wpkgen/internal/compiler/identity"
	"github.com/wpkernel/wpkgen/internal/compiler/plan"
	"github.com/wpkernel/wpkgen/internal/compiler/routes"
	"github.com/wpkernel/wpkgen/internal/compiler/storage"
)

// askFunc matches survey.Ask so tests can answer the prompts
type askFunc func(qs []*survey.Question, response interface{}, opts ...survey.AskOpt) error

var ask askFunc = survey.Ask

// initAnswers are the values init collects
type initAnswers struct {
	Namespace    string `survey:"namespace"`
	Sanitized    string `survey:"sanitized"`
	Resource     string `survey:"resource"`
	Storage      string `survey:"storage"`
	CacheBackend string `survey:"cache"`
}

var resourceName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func newInitCommand(a *app) *cobra.Command {
	answers := &initAnswers{}
	var yes bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create wpkgen.yaml and a starter plan",
		Long: `Ask a few questions, then write wpkgen.yaml and a starter plan with one
resource and the five CRUD routes. Existing files are never overwritten.`,
		Example: `  # Interactive
  wpkgen init

  # Non-interactive
  wpkgen init --yes --namespace 'Acme\Shop' --resource product --storage wp-post`,
		Annotations: map[string]string{"config": "skip"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				if err := ask(initQuestions(answers), answers); err != nil {
					return err
				}
			}
			if answers.Sanitized == "" {
				answers.Sanitized = sanitizeNamespace(answers.Namespace)
			}
			if err := validateAnswers(answers); err != nil {
				return err
			}
			return runInit(cmd, a, answers)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip prompts and use flags")
	cmd.Flags().StringVar(&answers.Namespace, "namespace", `Acme\Plugin`, "PHP namespace of the plugin")
	cmd.Flags().StringVar(&answers.Sanitized, "sanitized", "", "Sanitized namespace (default: derived from --namespace)")
	cmd.Flags().StringVar(&answers.Resource, "resource", "book", "First resource name")
	cmd.Flags().StringVar(&answers.Storage, "storage", string(storage.ModePost), "Storage mode of the first resource")
	cmd.Flags().StringVar(&answers.CacheBackend, "cache-backend", "memory", "Cache backend: memory, redis or none")

	return cmd
}

func initQuestions(defaults *initAnswers) []*survey.Question {
	return []*survey.Question{
		{
			Name:     "namespace",
			Prompt:   &survey.Input{Message: "Plugin namespace:", Default: defaults.Namespace},
			Validate: survey.Required,
		},
		{
			Name:   "sanitized",
			Prompt: &survey.Input{Message: "Sanitized namespace (blank to derive):", Default: defaults.Sanitized},
		},
		{
			Name:     "resource",
			Prompt:   &survey.Input{Message: "First resource:", Default: defaults.Resource},
			Validate: survey.ComposeValidators(survey.Required, validateResourceName),
		},
		{
			Name:   "storage",
			Prompt: &survey.Select{Message: "Storage mode:", Options: storage.KnownModes(), Default: defaults.Storage},
		},
		{
			Name:   "cache",
			Prompt: &survey.Select{Message: "Build cache:", Options: []string{"memory", "redis", "none"}, Default: defaults.CacheBackend},
		},
	}
}

func validateResourceName(v interface{}) error {
	s, _ := v.(string)
	if !resourceName.MatchString(s) {
		return fmt.Errorf("resource names are lower case letters, digits and underscores")
	}
	return nil
}

func validateAnswers(in *initAnswers) error {
	if strings.TrimSpace(in.Namespace) == "" {
		return fmt.Errorf("namespace is required")
	}
	if err := validateResourceName(in.Resource); err != nil {
		return err
	}
	if !slices.Contains(storage.KnownModes(), in.Storage) {
		return fmt.Errorf("unknown storage mode %q", in.Storage)
	}
	switch in.CacheBackend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("unknown cache backend %q", in.CacheBackend)
	}
	return nil
}

// sanitizeNamespace turns `Acme\Shop` into "acme-shop"
func sanitizeNamespace(ns string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(ns) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func runInit(cmd *cobra.Command, a *app, in *initAnswers) error {
	stdout := cmd.OutOrStdout()

	cfg := config.Default()
	cfg.Plan.Path = "wpkgen.plan.yaml"
	cfg.Cache.Backend = in.CacheBackend

	configPath := config.FileName
	if a.configFile != "" {
		configPath = a.configFile
	}

	doc := starterPlan(in)
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	// the starter must round-trip before anything is written
	parsed, err := plan.Parse(data, plan.FormatYAML)
	if err == nil {
		err = plan.Validate(parsed)
	}
	if err != nil {
		return fmt.Errorf("starter plan is invalid: %w", err)
	}

	if err := config.Write(configPath, cfg); err != nil {
		return err
	}
	ui.Success(stdout, "Created "+configPath, a.noColor)

	if _, err := os.Stat(cfg.Plan.Path); err == nil {
		ui.Message{Level: ui.LevelInfo, Problem: cfg.Plan.Path + " already exists, left unchanged", NoColor: a.noColor}.Write(stdout)
	} else {
		if dir := filepath.Dir(cfg.Plan.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		if err := os.WriteFile(cfg.Plan.Path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write plan: %w", err)
		}
		ui.Success(stdout, "Created "+cfg.Plan.Path, a.noColor)
	}

	fmt.Fprintln(stdout)
	ui.Heading(stdout, "Next steps", a.noColor)
	fmt.Fprintln(stdout, "  wpkgen inspect")
	fmt.Fprintln(stdout, "  wpkgen generate")
	return nil
}

// starterPlan builds a one-resource plan with list, get, create, update
// and remove routes guarded by a single capability
func starterPlan(in *initAnswers) *plan.Document {
	name := in.Resource
	base := "/" + name + "s"
	manage := name + ".manage"

	res := plan.Resource{
		Name:      name,
		SchemaKey: name,
		Identity:  &identity.Descriptor{Type: identity.Number, Param: "id"},
		CacheKeys: routes.CacheKeys{
			List:   []any{name, "list"},
			Get:    []any{name, "get", ":id"},
			Update: []any{name, "update", ":id"},
			Remove: []any{name, "remove", ":id"},
		},
		Storage: &plan.Storage{Mode: in.Storage},
		Routes: []plan.Route{
			{Method: "GET", Path: base},
			{Method: "GET", Path: base + "/:id"},
			{Method: "POST", Path: base, Capability: manage},
			{Method: "PUT", Path: base + "/:id", Capability: manage},
			{Method: "DELETE", Path: base + "/:id", Capability: manage},
		},
	}
	switch storage.Mode(in.Storage) {
	case storage.ModePost:
		res.Storage.PostType = name
		res.Storage.Statuses = []string{"draft", "publish"}
		res.Storage.Supports = []string{"title", "editor"}
	case storage.ModeOption:
		res.Storage.Option = strings.ReplaceAll(in.Sanitized, "-", "_") + "_" + name
	case storage.ModeTaxonomy:
		res.Storage.Taxonomy = name
	}

	return &plan.Document{
		Origin:                config.FileName,
		Namespace:             in.Namespace,
		SanitizedNamespace:    in.Sanitized,
		IncludeBaseController: true,
		Capabilities: map[string]capability.Entry{
			manage: {Capability: "manage_options"},
		},
		Resources: []plan.Resource{res},
	}
}
